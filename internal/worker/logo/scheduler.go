// Package logo は企業ロゴのバックグラウンド解決処理を提供する。
package logo

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hitoshi/ethicheck/internal/cache"
	"github.com/hitoshi/ethicheck/internal/metrics"
	"github.com/hitoshi/ethicheck/internal/model"
)

// defaultBatchSize は1サイクルで処理する企業数の上限。
const defaultBatchSize = 50

// CompanyLogoStore はロゴ未設定企業の取得と更新を行う。
// repository.CompanyRepositoryが満たす。
type CompanyLogoStore interface {
	ListMissingLogo(ctx context.Context, limit int) ([]*model.Company, error)
	UpdateLogo(ctx context.Context, companyID, logoURL string) error
}

// Resolver はWebサイトURLからロゴURLを解決する。company.LogoResolverが満たす。
type Resolver interface {
	Resolve(ctx context.Context, websiteURL string) (string, error)
}

// Scheduler はロゴ解決のスケジューリングと並列制御を行う。
type Scheduler struct {
	companies      CompanyLogoStore
	resolver       Resolver
	cache          cache.Store
	metrics        metrics.MetricsCollector
	logger         *slog.Logger
	maxConcurrency int
	batchSize      int
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はデフォルト値5を使用する。
func NewScheduler(
	companies CompanyLogoStore,
	resolver Resolver,
	store cache.Store,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	maxConcurrency int,
) *Scheduler {
	if maxConcurrency <= 0 {
		maxConcurrency = 5
	}
	if store == nil {
		store = cache.NopStore{}
	}
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &Scheduler{
		companies:      companies,
		resolver:       resolver,
		cache:          store,
		metrics:        collector,
		logger:         logger,
		maxConcurrency: maxConcurrency,
		batchSize:      defaultBatchSize,
	}
}

// Start はintervalごとにRunOnceを実行する。起動直後に1回実行し、ctxがキャンセルされるまで継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("ロゴスケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Int("max_concurrency", s.maxConcurrency),
	)

	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("ロゴ解決サイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("ロゴスケジューラを停止しました")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("ロゴ解決サイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce はロゴ未設定の企業を取得し、semaphoreパターンで並列数を制御しながら解決する。
// 個々の企業の失敗はログに記録し、サイクル全体は継続する。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()

	companies, err := s.companies.ListMissingLogo(ctx, s.batchSize)
	if err != nil {
		return err
	}

	if len(companies) == 0 {
		s.logger.Info("ロゴ解決対象の企業はありません")
		return nil
	}

	s.logger.Info("ロゴ解決サイクルを開始します",
		slog.Int("company_count", len(companies)),
	)

	sem := make(chan struct{}, s.maxConcurrency)
	var wg sync.WaitGroup
	var found atomic.Int64

	for _, c := range companies {
		wg.Add(1)
		sem <- struct{}{}

		go func(c *model.Company) {
			defer wg.Done()
			defer func() { <-sem }()

			if s.resolveOne(ctx, c) {
				found.Add(1)
			}
		}(c)
	}

	wg.Wait()

	if found.Load() > 0 {
		if err := s.cache.Invalidate(ctx, cache.KeyCompanies); err != nil {
			s.logger.Warn("キャッシュの無効化に失敗しました",
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.Info("ロゴ解決サイクルが完了しました",
		slog.Int("company_count", len(companies)),
		slog.Int64("found_count", found.Load()),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}

// resolveOne は1社のロゴを解決して保存する。ロゴが見つかった場合trueを返す。
// 見つからない場合も空文字列で更新し、次のサイクルで後回しにする。
func (s *Scheduler) resolveOne(ctx context.Context, c *model.Company) bool {
	start := time.Now()
	logoURL, err := s.resolver.Resolve(ctx, c.WebsiteURL)
	s.metrics.RecordLogoLatency(time.Since(start))

	switch {
	case err != nil:
		s.metrics.RecordLogoResolution(metrics.LogoResultError)
		s.logger.Warn("ロゴの解決に失敗しました",
			slog.String("company_id", c.ID),
			slog.String("website_url", c.WebsiteURL),
			slog.String("error", err.Error()),
		)
		logoURL = ""
	case logoURL == "":
		s.metrics.RecordLogoResolution(metrics.LogoResultNotFound)
	default:
		s.metrics.RecordLogoResolution(metrics.LogoResultFound)
	}

	if err := s.companies.UpdateLogo(ctx, c.ID, logoURL); err != nil {
		s.logger.Error("ロゴURLの保存に失敗しました",
			slog.String("company_id", c.ID),
			slog.String("error", err.Error()),
		)
		return false
	}
	return logoURL != ""
}
