// Package app はサブコマンドごとの起動処理と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/musicomply/internal/auth"
	"github.com/hitoshi/musicomply/internal/checklist"
	"github.com/hitoshi/musicomply/internal/config"
	"github.com/hitoshi/musicomply/internal/contact"
	"github.com/hitoshi/musicomply/internal/database"
	"github.com/hitoshi/musicomply/internal/directory"
	"github.com/hitoshi/musicomply/internal/handler"
	"github.com/hitoshi/musicomply/internal/logger"
	"github.com/hitoshi/musicomply/internal/metrics"
	"github.com/hitoshi/musicomply/internal/middleware"
	"github.com/hitoshi/musicomply/internal/repository"
	"github.com/hitoshi/musicomply/internal/resource"
	"github.com/hitoshi/musicomply/internal/security"
	"github.com/hitoshi/musicomply/internal/session"
	"github.com/hitoshi/musicomply/internal/validation"
	"github.com/hitoshi/musicomply/internal/worker/cleanup"
	"github.com/hitoshi/musicomply/internal/worker/resourcesync"
)

// errDatabaseRequired はPostgreSQLが必須のサブコマンドでDATABASE_URLが未設定の場合のエラー。
var errDatabaseRequired = errors.New("DATABASE_URL is required for this command")

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込んでログレベルを反映する。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.SetLevel(cfg.LogLevel)

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
		slog.String("env", cfg.AppEnv),
		slog.String("port", cfg.ServerPort),
		slog.Bool("postgres", cfg.UsesPostgres()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandMigrate:
		return runMigrate(ctx, cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// openStore は設定に応じたバックエンドでStoreを構築する。
// DATABASE_URLが空の場合はインメモリストアを使い、pingerはnilになる。
func openStore(ctx context.Context, cfg *config.Config) (*repository.Store, handler.Pinger, func(), error) {
	if !cfg.UsesPostgres() {
		store, err := repository.NewMemoryStore(cfg.SessionMaxEntries)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create memory store: %w", err)
		}
		slog.Warn("DATABASE_URL is not set; using in-memory store (data is lost on restart)")
		return store, nil, func() {}, nil
	}

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("database connection established")

	closeFn := func() {
		if err := db.Close(); err != nil {
			slog.Warn("failed to close database", slog.String("error", err.Error()))
		}
	}
	return repository.NewPostgresStore(db), db, closeFn, nil
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

// newHTTPHandler はStoreからサービスとルーターを組み立てる。
// 戻り値の関数でレートリミッターのクリーンアップを停止する。
func newHTTPHandler(cfg *config.Config, store *repository.Store, pinger handler.Pinger, reg *prometheus.Registry, collector *metrics.Collector) (http.Handler, func()) {
	sessions := session.NewManager(store.Sessions, store.Users, session.Config{
		TTL:          cfg.SessionMaxAge,
		CookieDomain: cfg.CookieDomain,
		CookieSecure: cfg.CookieSecure,
	})
	sanitizer := security.NewTextSanitizer()
	limiter := middleware.NewRateLimiter(middleware.NewAuthRateLimiterConfig(cfg.RateLimitAuth))

	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		SessionResolver:   sessions,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		HSTS:              cfg.CookieSecure,
		RateLimiter:       limiter,
		HTTPMetrics:       collector,
		MetricsHandler:    metrics.Handler(reg),
		HealthPinger:      pinger,

		Decoder: validation.New(),

		AuthService: auth.NewService(store.Users, auth.NewScryptHasher(cfg.HashMaxConcurrent)),
		Sessions:    sessions,
		AuthEvents:  collector,

		ChecklistService: checklist.NewService(store.ChecklistItems, store.UserChecklists, store.Users),
		DirectoryService: directory.NewService(store.Directory, sanitizer),
		ResourceService:  resource.NewService(store.Resources, sanitizer),
		ContactService:   contact.NewService(store.Messages, store.Subscribers, sanitizer),
	}

	return handler.NewRouter(deps), limiter.Stop
}

// startBackgroundJobs はセッションクリーンアップとリソース同期をバックグラウンドで起動する。
// ctxのキャンセル後、戻り値のWaitGroupで終了を待てる。
func startBackgroundJobs(ctx context.Context, cfg *config.Config, store *repository.Store, collector *metrics.Collector) *sync.WaitGroup {
	var recorder interface {
		cleanup.SweepRecorder
		resourcesync.Recorder
	}
	if collector != nil {
		recorder = collector
	}

	sweeper := cleanup.NewSessionSweeper(store.Sessions, recorder, slog.Default())

	guard := security.NewSSRFGuard()
	sanitizer := security.NewTextSanitizer()
	fetcher := resourcesync.NewFetcher(
		resource.NewService(store.Resources, sanitizer),
		guard,
		sanitizer,
		recorder,
		slog.Default(),
		resourcesync.FetcherConfig{
			Timeout:     cfg.FetchTimeout,
			MaxBodySize: cfg.FetchMaxSize,
			Interval:    cfg.ResourceSyncInterval,
		},
	)
	syncer := resourcesync.NewSyncer(cfg.ResourceFeedURLs, guard, fetcher, slog.Default(), 0)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		sweeper.Start(ctx, cfg.SessionSweepInterval)
	}()
	go func() {
		defer wg.Done()
		// 取り込み自体の間隔はフィードごとのNextFetchAtで決まるため、確認は短い周期で行う
		syncer.Start(ctx, time.Minute)
	}()
	return &wg
}

// runServe はAPIサーバーモードで起動する。
// インメモリストアの場合は別プロセスのworkerと状態を共有できないため、
// バックグラウンドジョブもこのプロセス内で実行する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	store, pinger, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := newRegistry()
	collector := metrics.NewCollector(reg)
	router, stopLimiter := newHTTPHandler(cfg, store, pinger, reg, collector)
	defer stopLimiter()

	jobsCtx, cancelJobs := context.WithCancel(ctx)
	defer cancelJobs()
	var jobs *sync.WaitGroup
	if !cfg.UsesPostgres() {
		jobs = startBackgroundJobs(jobsCtx, cfg, store, collector)
	}

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
	case <-ctx.Done():
	}
	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	cancelJobs()
	if jobs != nil {
		jobs.Wait()
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// PostgreSQLに接続し、セッションクリーンアップとリソース同期を実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(ctx context.Context, cfg *config.Config) error {
	if !cfg.UsesPostgres() {
		return fmt.Errorf("worker: %w", errDatabaseRequired)
	}

	store, _, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	slog.Info("worker starting",
		slog.Duration("session_sweep_interval", cfg.SessionSweepInterval),
		slog.Duration("resource_sync_interval", cfg.ResourceSyncInterval),
		slog.Int("resource_feeds", len(cfg.ResourceFeedURLs)),
	)

	// workerはメトリクスを公開しないため記録しない
	jobs := startBackgroundJobs(ctx, cfg, store, nil)
	<-ctx.Done()
	slog.Info("shutting down worker...")
	jobs.Wait()

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行し、初期データを投入する。
// 繰り返し実行しても結果は変わらない。
func runMigrate(ctx context.Context, cfg *config.Config) error {
	if !cfg.UsesPostgres() {
		return fmt.Errorf("migrate: %w", errDatabaseRequired)
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := repository.SeedPostgres(ctx, db); err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	target := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードを伏せる。解析できない場合は全体を伏せる。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
