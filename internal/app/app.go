package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/collectnyc/archive/internal/access"
	"github.com/collectnyc/archive/internal/catalog"
	"github.com/collectnyc/archive/internal/cms"
	"github.com/collectnyc/archive/internal/config"
	"github.com/collectnyc/archive/internal/database"
	"github.com/collectnyc/archive/internal/handler"
	"github.com/collectnyc/archive/internal/logger"
	"github.com/collectnyc/archive/internal/metrics"
	"github.com/collectnyc/archive/internal/middleware"
	"github.com/collectnyc/archive/internal/repository"
	"github.com/collectnyc/archive/internal/security"
	"github.com/collectnyc/archive/internal/session"
	"github.com/collectnyc/archive/internal/worker/cleanup"
	"github.com/collectnyc/archive/internal/worker/counts"
)

const (
	// sessionSweepInterval は閲覧セッションの期限切れチェック間隔。
	sessionSweepInterval = time.Minute
	// cleanupInterval は試行記録クリーンアップの実行間隔。
	cleanupInterval = 24 * time.Hour
	// shutdownTimeout はグレースフルシャットダウンの待機上限。
	shutdownTimeout = 30 * time.Second
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. LOG_LEVELを反映して再設定
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

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
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandSetPassword:
		slug, password, err := ParseSetPasswordArgs(args)
		if err != nil {
			return err
		}
		return runSetPassword(cfg, slug, password)
	default:
		return runServe(cfg)
	}
}

// openDB はDB接続を開き、疎通を確認する。
func openDB(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// newCatalogService はCMSクライアントからカタログサービスまでを組み立てる。
// CMSへの接続はhttps:443のみに制限したクライアントで行う。
func newCatalogService(cfg *config.Config, countsRepo repository.CatalogCountsRepository, collector metrics.MetricsCollector) (*catalog.Service, error) {
	guard := security.NewOutboundGuard()
	if err := guard.ValidateEndpoint(cfg.CMSAPIURL); err != nil {
		return nil, fmt.Errorf("invalid CMS_API_URL: %w", err)
	}

	client := cms.NewClient(
		guard.NewSafeClient(cfg.CMSTimeout),
		slog.Default(),
		cfg.CMSAPIURL,
		cfg.CMSAccessToken,
		cfg.CMSMaxResponseSize,
	)
	converter := catalog.NewConverter(security.NewContentSanitizer(), guard, slog.Default())
	aggregator := catalog.NewAggregator(client, converter, collector, slog.Default(), cfg.CMSDocumentType)

	return catalog.NewService(aggregator, client, converter, countsRepo, slog.Default(), cfg.CMSDocumentType), nil
}

// newRegistry はプロセス・ランタイムのメトリクスを含むレジストリを生成する。
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーとセッションスイーパーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	itemAccessRepo := repository.NewPostgresItemAccessRepo(db)
	attemptRepo := repository.NewPostgresAccessAttemptRepo(db)
	countsRepo := repository.NewPostgresCatalogCountsRepo(db)

	// 3. メトリクス
	reg := newRegistry()
	collector := metrics.NewCollector(reg)

	// 4. ドメインサービスの初期化
	catalogService, err := newCatalogService(cfg, countsRepo, collector)
	if err != nil {
		return err
	}
	accessService := access.NewService(itemAccessRepo, attemptRepo, collector, slog.Default())

	// 5. 閲覧セッションとレートリミッター
	store := session.NewStore(cfg.SessionIdleTimeout, slog.Default())
	rateLimiter := middleware.NewRateLimiter(
		middleware.PerMinuteRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitVerify),
	)
	defer rateLimiter.Stop()

	// 6. ルーターの構築
	router := handler.NewRouter(&handler.RouterDeps{
		SessionStore: store,
		SessionCookie: middleware.SessionCookieConfig{
			Secure: cfg.CookieSecure,
			Domain: cfg.CookieDomain,
			MaxAge: cfg.SessionIdleTimeout,
		},
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,

		HealthChecker: db,
		Gatherer:      reg,
		Metrics:       collector,
		Logger:        slog.Default(),

		CatalogService: catalogService,
		Verifier:       accessService,
	})

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := signalContext()
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return store.Run(gctx, sessionSweepInterval)
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down API server...")
		return shutdown(server)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 件数更新ワーカーと試行記録クリーンアップジョブを起動し、
// メトリクスを専用ポートで公開する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	// 2. リポジトリ・サービスの初期化
	countsRepo := repository.NewPostgresCatalogCountsRepo(db)

	reg := newRegistry()
	collector := metrics.NewCollector(reg)

	catalogService, err := newCatalogService(cfg, countsRepo, collector)
	if err != nil {
		return err
	}

	// 3. ジョブの初期化
	refresher := counts.NewRefresher(catalogService, countsRepo, slog.Default())
	cleanupJob := cleanup.NewCleanupJob(db, slog.Default(), cfg.AttemptRetentionDays)

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           metrics.SetupMetricsRoute(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := signalContext()
	defer cancel()

	slog.Info("worker starting",
		slog.Duration("count_refresh_interval", cfg.CountRefreshInterval),
		slog.Int("attempt_retention_days", cfg.AttemptRetentionDays),
		slog.String("metrics_addr", metricsServer.Addr),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		refresher.Start(gctx, cfg.CountRefreshInterval)
		return nil
	})

	g.Go(func() error {
		cleanupJob.Start(gctx, cleanupInterval)
		return nil
	})

	g.Go(func() error {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server listen error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down worker...")
		return shutdown(metricsServer)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(version)),
	)
	return nil
}

// runSetPassword はアイテムの閲覧パスワードを登録する。
// パスワードはbcryptハッシュとして保存され、平文は残らない。
func runSetPassword(cfg *config.Config, slug, password string) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	service := access.NewService(
		repository.NewPostgresItemAccessRepo(db),
		repository.NewPostgresAccessAttemptRepo(db),
		metrics.NopCollector{},
		slog.Default(),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := service.SetPassword(ctx, slug, password); err != nil {
		return fmt.Errorf("set-password failed: %w", err)
	}

	slog.Info("item password registered", slog.String("slug", slug))
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

// signalContext はSIGINTまたはSIGTERMでキャンセルされるコンテキストを返す。
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(stop)
	}()

	return ctx, cancel
}

// shutdown はHTTPサーバーをタイムアウト付きで停止する。
func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
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
