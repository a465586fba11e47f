// Package app はコマンドの解析、依存関係のワイヤリング、各起動モードの実行を行う。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hitoshi/ethicheck/internal/company"
	"github.com/hitoshi/ethicheck/internal/config"
	"github.com/hitoshi/ethicheck/internal/database"
	"github.com/hitoshi/ethicheck/internal/logger"
	"github.com/hitoshi/ethicheck/internal/metrics"
	"github.com/hitoshi/ethicheck/internal/middleware"
	"github.com/hitoshi/ethicheck/internal/realtime"
	"github.com/hitoshi/ethicheck/internal/repository"
	"github.com/hitoshi/ethicheck/internal/security"
	"github.com/hitoshi/ethicheck/internal/worker/logo"
	"github.com/hitoshi/ethicheck/internal/worker/maintenance"
)

const (
	dbConnectTimeout = 10 * time.Second
	shutdownTimeout  = 30 * time.Second
)

// Init はアプリケーションの初期化を行う。
// カレントディレクトリの.envを読み込み（既存の環境変数が優先）、
// JSON構造化ログをセットアップしてから環境変数の設定を読み込む。
func Init(w io.Writer) (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	logger.SetupDefault(w, logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	db, err := database.Connect(ctx, cfg.DatabaseURL, dbConnectTimeout)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	store, closeCache := openCache(ctx, cfg)
	defer closeCache()

	hub := realtime.NewHub(cfg.CORSAllowedOrigin, slog.Default())
	defer hub.Close()

	publisher, closeEvents, err := openEvents(cfg, hub)
	if err != nil {
		return err
	}
	defer closeEvents()

	reg := newRegistry()
	collector := metrics.NewCollector(reg)

	rateLimiter := middleware.NewRateLimiter(middleware.PerMinuteConfig(cfg.RateLimitGeneral, cfg.RateLimitPostCreate))
	defer rateLimiter.Stop()

	router := buildRouter(cfg, db, serverDeps{
		cache:       store,
		publisher:   publisher,
		metrics:     collector,
		metricsHTTP: metrics.Handler(reg),
		realtime:    hub,
		rateLimiter: rateLimiter,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return serveUntilDone(ctx, server, "API server")
}

// runWorker はワーカーモードで起動する。
// メンテナンスジョブとロゴスケジューラを起動し、/metricsをMETRICS_PORTで公開する。
func runWorker(ctx context.Context, cfg *config.Config) error {
	db, err := database.Connect(ctx, cfg.DatabaseURL, dbConnectTimeout)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	store, closeCache := openCache(ctx, cfg)
	defer closeCache()

	reg := newRegistry()
	collector := metrics.NewCollector(reg)

	boycottRepo := repository.NewPostgresBoycottRepo(db)
	companyRepo := repository.NewPostgresCompanyRepo(db)

	job := maintenance.NewJob(db, boycottRepo, store, slog.Default())

	resolver := company.NewLogoResolver(security.NewSSRFGuard(), cfg.LogoFetchTimeout, cfg.LogoFetchMaxSize)
	scheduler := logo.NewScheduler(companyRepo, resolver, store, collector, slog.Default(), cfg.LogoMaxConcurrent)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	metricsServer := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("worker starting",
		slog.Duration("session_cleanup_interval", cfg.SessionCleanupInterval),
		slog.Duration("logo_interval", cfg.LogoInterval),
		slog.Int("logo_max_concurrent", cfg.LogoMaxConcurrent),
	)

	go job.Start(ctx, cfg.SessionCleanupInterval)
	go scheduler.Start(ctx, cfg.LogoInterval)

	return serveUntilDone(ctx, metricsServer, "worker metrics server")
}

// serveUntilDone はserverを起動し、ctxがキャンセルされたらシャットダウンする。
func serveUntilDone(ctx context.Context, server *http.Server, name string) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info(name+" starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("%s listen error: %w", name, err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down " + name + "...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s shutdown failed: %w", name, err)
	}

	slog.Info(name + " stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := database.Version(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードを伏せ字にする。解析できない場合は全体を伏せる。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
