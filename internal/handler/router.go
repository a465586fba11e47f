package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/ethicheck/internal/middleware"
)

// HealthChecker は依存サービスの疎通確認を行うインターフェース。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger
	StatusRecorder    middleware.StatusRecorder

	// 運用エンドポイント
	Health         HealthChecker
	MetricsHandler http.Handler
	Realtime       http.Handler

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	PostService    PostServiceInterface
	BoycottService BoycottServiceInterface
	CompanyService CompanyServiceInterface
	ProfileService ProfileServiceInterface
	ActivityLister ActivityListerInterface
	FollowService  FollowServiceInterface
	UserService    UserServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Metrics
//	  認証不要: Logging
//	  認証必須: Session → Logging → CSRF → RateLimit(General)
//
// ログはセッション解決後に記録し、認証済みリクエストにuser_idを含める。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.StatusRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.StatusRecorder))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	postHandler := NewPostHandler(deps.PostService)
	boycottHandler := NewBoycottHandler(deps.BoycottService)
	companyHandler := NewCompanyHandler(deps.CompanyService)
	profileHandler := NewProfileHandler(deps.ProfileService, deps.ActivityLister, deps.FollowService)
	followHandler := NewFollowHandler(deps.FollowService)
	userHandler := NewUserHandler(deps.UserService, deps.AuthConfig)

	// --- 認証不要のルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewLoggingMiddleware(logger))

		r.Get("/health", healthHandler(deps.Health))
		if deps.MetricsHandler != nil {
			r.Handle("/metrics", deps.MetricsHandler)
		}
		r.Handle("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

		// 認証ルート（OAuthフロー）
		r.Route("/auth", func(r chi.Router) {
			r.Get("/google/login", authHandler.Login)
			r.Get("/google/callback", authHandler.Callback)
			r.With(middleware.NewCSRFMiddleware(deps.CSRFConfig)).Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
		})
	})

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewLoggingMiddleware(logger))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api/posts", func(r chi.Router) {
			r.Get("/", postHandler.ListFeed)
			// 投稿作成は専用のレート制限を追加する
			r.With(deps.RateLimiter.PostCreateMiddleware()).Post("/", postHandler.CreatePost)

			r.Route("/{id}", func(r chi.Router) {
				r.Delete("/", postHandler.DeletePost)
				r.Put("/like", postHandler.Like)
				r.Delete("/like", postHandler.Unlike)
			})
		})

		r.Route("/api/boycotts", func(r chi.Router) {
			r.Get("/", boycottHandler.ListBoycotts)
			r.With(deps.RateLimiter.PostCreateMiddleware()).Post("/", boycottHandler.CreateBoycott)
			r.Get("/stats", boycottHandler.Stats)
			r.Get("/participation", boycottHandler.Participation)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", boycottHandler.GetBoycott)
				r.Delete("/", boycottHandler.DeleteBoycott)
				r.Post("/deactivate", boycottHandler.DeactivateBoycott)
				r.Post("/participants", boycottHandler.Join)
				r.Delete("/participants", boycottHandler.Leave)
			})
		})

		r.Route("/api/companies", func(r chi.Router) {
			r.Get("/", companyHandler.ListCompanies)
			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", companyHandler.GetCompany)
				r.Get("/reviews", companyHandler.ListCompanyReviews)
				r.Get("/boycotts", companyHandler.ListCompanyBoycotts)
			})
		})

		r.Put("/api/reviews", companyHandler.UpsertReview)
		r.Delete("/api/reviews/{id}", companyHandler.DeleteReview)
		r.Put("/api/stances", companyHandler.UpsertStance)
		r.Delete("/api/stances/{id}", companyHandler.DeleteStance)
		r.Get("/api/categories", companyHandler.ListCategories)

		r.Route("/api/profiles", func(r chi.Router) {
			r.Get("/me", profileHandler.GetMe)
			r.Patch("/me", profileHandler.UpdateMe)

			r.Route("/{userID}", func(r chi.Router) {
				r.Get("/", profileHandler.GetProfile)
				r.Get("/stats", profileHandler.Stats)
				r.Get("/posts", profileHandler.ListPosts)
				r.Get("/reviews", profileHandler.ListReviews)
				r.Get("/stances", profileHandler.ListStances)
				r.Get("/boycotts", profileHandler.ListBoycotts)
				r.Get("/followers", profileHandler.ListFollowers)
				r.Get("/following", profileHandler.ListFollowing)
			})
		})

		r.Put("/api/follows/{userID}", followHandler.Follow)
		r.Delete("/api/follows/{userID}", followHandler.Unfollow)
		r.Get("/api/creators", profileHandler.ListCreators)

		r.Delete("/api/users/me", userHandler.Withdraw)

		if deps.Realtime != nil {
			r.Handle("/api/realtime", deps.Realtime)
		}
	})

	return r
}

// healthHandler はGET /health のハンドラーを返す。checkerがnilの場合は常に200を返す。
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := checker.PingContext(ctx); err != nil {
				slog.Warn("health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
