package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/collectnyc/archive/internal/metrics"
	"github.com/collectnyc/archive/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionStore      middleware.SessionStore
	SessionCookie     middleware.SessionCookieConfig
	CSRFConfig        middleware.CSRFConfig
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 運用
	HealthChecker HealthChecker
	Gatherer      prometheus.Gatherer
	Metrics       metrics.MetricsCollector
	Logger        *slog.Logger

	// カタログ・閲覧
	CatalogService CatalogServiceInterface
	Verifier       VerifierInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Logging → Metrics → CORS
//	  → Session → RateLimit(General) → CSRF
//
// /health、/metrics、/api/count、/api/csrf-tokenはセッションを必要としない。
// パスワード照合（/verify、/api/items/{slug}/unlock）には照合専用のレート制限を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	catalogHandler := NewCatalogHandler(deps.CatalogService, deps.Metrics, deps.Logger)
	viewerHandler := NewViewerHandler(deps.CatalogService, deps.Verifier, deps.Logger)
	endpointHandler := NewEndpointHandler(deps.CatalogService, deps.Verifier)

	// --- セッション不要のルート ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}
	r.Get("/api/count", catalogHandler.Count)
	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

	// --- ブラウズセッションを伴うルート ---
	// ミドルウェアスタック: Session → RateLimit(General) → CSRF
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionStore, deps.SessionCookie))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		// 一覧
		r.Route("/api/catalog", func(r chi.Router) {
			r.Get("/", catalogHandler.Mount)
			r.Post("/filter", catalogHandler.ApplyFilter)
			r.Delete("/filter", catalogHandler.ClearFilter)
			r.Post("/sort/title", catalogHandler.ToggleTitleSort)
			r.Post("/sort/date", catalogHandler.CycleDateSort)
			r.Post("/view", catalogHandler.ToggleView)
		})

		// 閲覧
		r.Route("/api/items/{slug}", func(r chi.Router) {
			r.Get("/", viewerHandler.Open)
			r.Post("/next", viewerHandler.Next)
			r.Post("/prev", viewerHandler.Prev)
			r.Post("/keys", viewerHandler.Key)
			r.Post("/exit", viewerHandler.Exit)
			r.With(deps.RateLimiter.VerifyMiddleware()).Post("/unlock", viewerHandler.Unlock)
		})

		// エンドポイント
		r.Post("/tag-query", endpointHandler.TagQuery)
		r.With(deps.RateLimiter.VerifyMiddleware()).Post("/verify", endpointHandler.Verify)
	})

	return r
}
