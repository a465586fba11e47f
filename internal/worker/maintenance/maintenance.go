// Package maintenance は定期メンテナンスジョブを提供する。
// 期限切れセッションの削除と、終了日を過ぎたボイコットの終了処理を行う。
package maintenance

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/ethicheck/internal/cache"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// BoycottExpirer は終了日を過ぎたボイコットを終了させる。
// repository.BoycottRepositoryが満たす。
type BoycottExpirer interface {
	EndExpired(ctx context.Context, now time.Time) (int64, error)
}

// Job は定期メンテナンスジョブ。冪等であり、対象が無くてもエラーにならない。
type Job struct {
	db       Executor
	boycotts BoycottExpirer
	cache    cache.Store
	logger   *slog.Logger
	now      func() time.Time
}

// NewJob は新しいJobを生成する。storeがnilの場合はキャッシュ無効化を行わない。
func NewJob(db Executor, boycotts BoycottExpirer, store cache.Store, logger *slog.Logger) *Job {
	if store == nil {
		store = cache.NopStore{}
	}
	return &Job{
		db:       db,
		boycotts: boycotts,
		cache:    store,
		logger:   logger,
		now:      time.Now,
	}
}

// Run はメンテナンスを1回実行する。
// セッション削除に失敗した場合もボイコットの終了処理は実行し、最初のエラーを返す。
func (j *Job) Run(ctx context.Context) error {
	start := j.now()

	sessions, sessErr := j.purgeSessions(ctx, start)
	ended, boyErr := j.endBoycotts(ctx, start)

	j.logger.Info("メンテナンスジョブが完了しました",
		slog.Int64("deleted_sessions", sessions),
		slog.Int64("ended_boycotts", ended),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	if sessErr != nil {
		return sessErr
	}
	return boyErr
}

func (j *Job) purgeSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := j.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		j.logger.Error("期限切れセッションの削除に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("期限切れセッションの削除に失敗: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗: %w", err)
	}
	return n, nil
}

func (j *Job) endBoycotts(ctx context.Context, now time.Time) (int64, error) {
	n, err := j.boycotts.EndExpired(ctx, now)
	if err != nil {
		j.logger.Error("期限切れボイコットの終了処理に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("期限切れボイコットの終了処理に失敗: %w", err)
	}

	if n > 0 {
		if err := j.cache.Invalidate(ctx, cache.KeyBoycotts, cache.KeyBoycottStats, cache.KeyCompanies); err != nil {
			j.logger.Warn("キャッシュの無効化に失敗しました",
				slog.String("error", err.Error()),
			)
		}
	}
	return n, nil
}

// Start はintervalごとにRunを実行する。起動直後に1回実行し、ctxがキャンセルされるまで継続する。
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("メンテナンスジョブを開始しました",
		slog.Duration("interval", interval),
	)

	// エラーはRun内でログ出力済み
	_ = j.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("メンテナンスジョブを停止しました")
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
