package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dayrade/nester-frontend-sub002/internal/metrics"
	"github.com/dayrade/nester-frontend-sub002/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	Collector         metrics.MetricsCollector
	Gatherer          prometheus.Gatherer

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ジョブ
	PropertyService PropertyServiceInterface
	ContentService  ContentServiceInterface
	ImageService    ImageServiceInterface

	// ブランド
	BrandResolver BrandResolverInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Logging → Recovery → Session → CSRF → RateLimit(General)
//
// 認証ルート（/auth/*）、エンジンのコールバック、/health、/metrics は
// セッションミドルウェアの外に配置する。コールバックはCookieを持たない
// サーバー間通信のため、CSRF検証の対象外でもある。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルートに効くミドルウェア
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Collector))
	r.Use(middleware.NewRecoveryMiddleware())

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	propertyHandler := NewPropertyHandler(deps.PropertyService)
	contentHandler := NewContentHandler(deps.ContentService)
	imageHandler := NewImageHandler(deps.ImageService)
	brandHandler := NewBrandHandler(deps.BrandResolver)

	// --- 認証不要のルート ---

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// 認証ルート
	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.SignUp)
		r.Post("/signin", authHandler.SignIn)
		r.Post("/signout", authHandler.SignOut)
		r.Post("/reset-password", authHandler.ResetPassword)
		r.Get("/me", authHandler.Me)
	})

	// エンジンのコールバック
	r.Post("/api/property/scrape/callback", propertyHandler.ScrapeCallback)
	r.Post("/api/content/generate/callback", contentHandler.Callback)
	r.Post("/api/images/generate/callback", imageHandler.Callback)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 物件スクレイプ
		r.Route("/api/property/scrape", func(r chi.Router) {
			// POST - ジョブ投入（投入専用レート制限を追加）
			r.With(deps.RateLimiter.JobInitiationMiddleware()).Post("/", propertyHandler.InitiateScrape)
			r.Get("/", propertyHandler.Capabilities)
		})

		// コンテンツ生成
		r.Route("/api/content/generate", func(r chi.Router) {
			r.With(deps.RateLimiter.JobInitiationMiddleware()).Post("/", contentHandler.Initiate)
			r.Get("/", contentHandler.Capabilities)
		})

		// 画像スタイル変換
		r.Route("/api/images/generate", func(r chi.Router) {
			r.With(deps.RateLimiter.JobInitiationMiddleware()).Post("/", imageHandler.Initiate)
			r.Get("/", imageHandler.Capabilities)
		})

		// 物件参照（ポーリング用）
		r.Route("/api/properties", func(r chi.Router) {
			r.Get("/", propertyHandler.ListProperties)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", propertyHandler.GetProperty)
				r.Get("/status", propertyHandler.PropertyStatus)
			})
		})

		// ブランド設定
		r.Route("/api/brand", func(r chi.Router) {
			r.Get("/", brandHandler.Get)
			r.Put("/", brandHandler.Update)
		})
	})

	return r
}
