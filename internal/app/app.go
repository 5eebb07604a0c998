// Package app はアプリケーションの初期化・起動・依存関係のワイヤリングを行う。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/dayrade/nester-frontend-sub002/internal/auth"
	"github.com/dayrade/nester-frontend-sub002/internal/brand"
	"github.com/dayrade/nester-frontend-sub002/internal/config"
	"github.com/dayrade/nester-frontend-sub002/internal/database"
	"github.com/dayrade/nester-frontend-sub002/internal/handler"
	"github.com/dayrade/nester-frontend-sub002/internal/identity"
	jobpkg "github.com/dayrade/nester-frontend-sub002/internal/job"
	"github.com/dayrade/nester-frontend-sub002/internal/listing"
	"github.com/dayrade/nester-frontend-sub002/internal/logger"
	"github.com/dayrade/nester-frontend-sub002/internal/metrics"
	"github.com/dayrade/nester-frontend-sub002/internal/middleware"
	"github.com/dayrade/nester-frontend-sub002/internal/repository"
	"github.com/dayrade/nester-frontend-sub002/internal/security"
	"github.com/dayrade/nester-frontend-sub002/internal/worker/cleanup"
	"github.com/dayrade/nester-frontend-sub002/internal/worker/reaper"
	"github.com/dayrade/nester-frontend-sub002/internal/workflow"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
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
		slog.String("public_base_url", cfg.PublicBaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	agentRepo := repository.NewPostgresAgentRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	brandRepo := repository.NewPostgresBrandRepo(db)
	propertyRepo := repository.NewPostgresPropertyRepo(db)
	contentRepo := repository.NewPostgresContentRepo(db)
	imageRepo := repository.NewPostgresImageRepo(db)
	jobRepo := repository.NewPostgresJobRepo(db)

	// 3. セキュリティサービスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()

	// 4. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 5. ドメインサービスの初期化
	provider := identity.NewHTTPProvider(nil, identity.ProviderConfig{
		BaseURL:   cfg.IdentityProviderURL,
		JWTSecret: cfg.IdentityJWTSecret,
	})
	authService := auth.NewService(provider, agentRepo, sessionRepo,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge})

	brandDefaults, err := brand.LoadDefaults(cfg.BrandDefaultsPath)
	if err != nil {
		return fmt.Errorf("failed to load brand defaults: %w", err)
	}
	brandResolver := brand.NewResolver(brandRepo, brandDefaults)

	dispatcher := workflow.NewClient(
		&http.Client{Timeout: cfg.EngineTimeout},
		slog.Default(), cfg.WorkflowEngineURL, cfg.WorkflowAPIKey,
	)

	previewFetcher := listing.NewPreviewFetcher(ssrfGuard, cfg.PreviewTimeout, cfg.PreviewMaxSize)

	jobService := jobpkg.NewService(
		propertyRepo, contentRepo, imageRepo, jobRepo,
		dispatcher, ssrfGuard, previewFetcher, sanitizer,
		brandResolver, collector, cfg.PublicBaseURL,
	)

	// 6. ルーターの構築
	// configのレート値はreq/min単位なのでreq/secに変換する
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.JobInitRate = rate.Limit(float64(cfg.RateLimitJobInit) / 60.0)
	rateLimiterCfg.JobInitBurst = cfg.RateLimitJobInit

	csrfConfig := middleware.CSRFConfig{
		CookieSecure: cfg.CookieSecure,
		CookieDomain: cfg.CookieDomain,
	}

	deps := &handler.RouterDeps{
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRFConfig:        csrfConfig,
		RateLimiter:       middleware.NewRateLimiter(rateLimiterCfg),
		Logger:            slog.Default(),
		Collector:         collector,
		Gatherer:          registry,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		PropertyService: jobService,
		ContentService:  jobService,
		ImageService:    jobService,

		BrandResolver: brandResolver,
	}

	router := handler.NewRouter(deps)

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// ジョブリーパーと期限切れセッションのクリーンアップを定期実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. リーパーの初期化
	jobRepo := repository.NewPostgresJobRepo(db)
	jobReaper := reaper.NewReaper(jobRepo, nil, slog.Default())
	jobReaper.StaleAfter = cfg.JobStaleAfter

	// 3. セッションクリーンアップジョブの初期化
	sessionCleanup := cleanup.NewSessionCleanupJob(db, slog.Default())

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("job_stale_after", cfg.JobStaleAfter),
	)

	// セッションクリーンアップを1時間間隔でバックグラウンド実行
	go sessionCleanup.Start(ctx, time.Hour)

	// リーパーをメインgoroutineで実行（ブロッキング）
	jobReaper.Start(ctx, 5*time.Minute)

	slog.Info("worker stopped gracefully")
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

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
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

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
