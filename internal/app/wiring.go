package app

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/ethicheck/internal/auth"
	"github.com/hitoshi/ethicheck/internal/boycott"
	"github.com/hitoshi/ethicheck/internal/cache"
	"github.com/hitoshi/ethicheck/internal/company"
	"github.com/hitoshi/ethicheck/internal/config"
	"github.com/hitoshi/ethicheck/internal/events"
	"github.com/hitoshi/ethicheck/internal/follow"
	"github.com/hitoshi/ethicheck/internal/handler"
	"github.com/hitoshi/ethicheck/internal/metrics"
	"github.com/hitoshi/ethicheck/internal/middleware"
	"github.com/hitoshi/ethicheck/internal/post"
	"github.com/hitoshi/ethicheck/internal/profile"
	"github.com/hitoshi/ethicheck/internal/realtime"
	"github.com/hitoshi/ethicheck/internal/repository"
	"github.com/hitoshi/ethicheck/internal/security"
	"github.com/hitoshi/ethicheck/internal/user"
)

// serverDeps はbuildRouterに渡すインフラ依存。
type serverDeps struct {
	cache       cache.Store
	publisher   events.Publisher
	metrics     metrics.MetricsCollector
	metricsHTTP http.Handler
	realtime    http.Handler
	rateLimiter *middleware.RateLimiter
}

// newRegistry はアプリケーション用のPrometheusレジストリを生成する。
// Goランタイムとプロセスのメトリクスも登録する。
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// openCache はREDIS_URLが設定されていればRedisキャッシュを開く。
// 未設定または接続できない場合はキャッシュを無効にして起動を続ける。
func openCache(ctx context.Context, cfg *config.Config) (cache.Store, func()) {
	if cfg.RedisURL == "" {
		slog.Info("cache disabled: REDIS_URL is not set")
		return cache.NopStore{}, func() {}
	}

	store, err := cache.NewRedisStore(ctx, cfg.RedisURL, cfg.CacheTTL)
	if err != nil {
		slog.Warn("cache disabled: failed to connect to redis",
			slog.String("error", err.Error()),
		)
		return cache.NopStore{}, func() {}
	}

	slog.Info("redis cache enabled", slog.Duration("ttl", cfg.CacheTTL))
	return store, func() {
		if err := store.Close(); err != nil {
			slog.Warn("failed to close redis", slog.String("error", err.Error()))
		}
	}
}

// openEvents はイベントの発行先を決める。
// NATS_URLが未設定の場合はhubへ直接発行する。設定されている場合はNATSへ発行し、
// 購読したイベントをhubへ中継することで全APIインスタンスのクライアントへ届ける。
func openEvents(cfg *config.Config, hub *realtime.Hub) (events.Publisher, func(), error) {
	if cfg.NATSURL == "" {
		return hub, func() {}, nil
	}

	pub, err := events.NewNATSPublisher(cfg.NATSURL, slog.Default())
	if err != nil {
		return nil, nil, err
	}

	sub, err := pub.Subscribe(func(event events.Event) {
		// Hub.Publishはmarshalに失敗した場合のみエラーを返す
		if err := hub.Publish(context.Background(), event); err != nil {
			slog.Warn("failed to relay event", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		pub.Close()
		return nil, nil, err
	}

	slog.Info("nats event relay enabled")
	return pub, func() {
		_ = sub.Unsubscribe()
		pub.Close()
	}, nil
}

// buildRouter はリポジトリ、サービス、ハンドラーアダプタを組み立ててルーターを返す。
func buildRouter(cfg *config.Config, db *sql.DB, deps serverDeps) http.Handler {
	// 1. リポジトリ
	userRepo := repository.NewPostgresUserRepo(db)
	identRepo := repository.NewPostgresIdentityRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	profileRepo := repository.NewPostgresProfileRepo(db)
	followRepo := repository.NewPostgresFollowRepo(db)
	postRepo := repository.NewPostgresPostRepo(db)
	boycottRepo := repository.NewPostgresBoycottRepo(db)
	participantRepo := repository.NewPostgresBoycottParticipantRepo(db)
	categoryRepo := repository.NewPostgresCategoryRepo(db)
	companyRepo := repository.NewPostgresCompanyRepo(db)
	reviewRepo := repository.NewPostgresReviewRepo(db)
	stanceRepo := repository.NewPostgresStanceRepo(db)

	// 2. ドメインサービス
	oauthProvider := auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	})
	authService := auth.NewService(
		oauthProvider, userRepo, identRepo, sessionRepo,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)

	sanitizer := security.NewTextSanitizer()
	postService := post.NewService(postRepo, followRepo, participantRepo, post.Options{
		Cache:     deps.cache,
		Publisher: deps.publisher,
		Metrics:   deps.metrics,
		Sanitizer: sanitizer,
		PageSize:  cfg.FeedPageSize,
	})
	boycottService := boycott.NewService(
		boycottRepo, participantRepo, categoryRepo, postService,
		deps.cache, deps.publisher, deps.metrics,
	)
	companyService := company.NewService(companyRepo, reviewRepo, stanceRepo, categoryRepo, postService, deps.cache)
	profileService := profile.NewService(profileRepo, followRepo, stanceRepo, postRepo)
	followService := follow.NewService(followRepo, profileRepo)
	userService := user.NewService(userRepo, sessionRepo, deps.cache)

	// 3. ルーター
	return handler.NewRouter(&handler.RouterDeps{
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       deps.rateLimiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		Logger:         slog.Default(),
		StatusRecorder: deps.metrics,

		Health:         db,
		MetricsHandler: deps.metricsHTTP,
		Realtime:       deps.realtime,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		PostService:    handler.NewPostServiceAdapter(postService),
		BoycottService: handler.NewBoycottServiceAdapter(boycottService),
		CompanyService: handler.NewCompanyServiceAdapter(companyService, boycottService),
		ProfileService: handler.NewProfileServiceAdapter(profileService),
		ActivityLister: handler.NewActivityAdapter(postService, companyService, boycottService),
		FollowService:  handler.NewFollowServiceAdapter(followService),
		UserService:    userService,
	})
}
