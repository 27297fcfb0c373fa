package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/starfav/internal/catalog"
	"github.com/hitoshi/starfav/internal/config"
	"github.com/hitoshi/starfav/internal/database"
	"github.com/hitoshi/starfav/internal/favorite"
	"github.com/hitoshi/starfav/internal/handler"
	"github.com/hitoshi/starfav/internal/logger"
	"github.com/hitoshi/starfav/internal/metrics"
	"github.com/hitoshi/starfav/internal/middleware"
	"github.com/hitoshi/starfav/internal/repository"
	"github.com/hitoshi/starfav/internal/security"
	"github.com/hitoshi/starfav/internal/swapi"
	"github.com/hitoshi/starfav/internal/user"
)

// Init はアプリケーションの初期化を行う。
// .envと環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. .envがあれば読み込む（既存の環境変数が優先）
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}

	// 3. 環境変数から設定を読み込む
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

	if cmd == CommandHelp {
		writeUsage(w)
		return nil
	}

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
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg, commandArgs(args))
	case CommandImport:
		return runImport(cfg)
	case CommandAddUser:
		return runAddUser(cfg, commandArgs(args))
	default:
		return runServe(cfg)
	}
}

// openDB はDB接続を開き、疎通を確認する。
func openDB(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := database.Open(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")
	return db, nil
}

// newMetricsRegistry はアプリケーション用のPrometheusレジストリとCollectorを生成する。
func newMetricsRegistry() (*prometheus.Registry, *metrics.Collector) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, metrics.NewCollector(reg)
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := openDB(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	personRepo := repository.NewPostgresPersonRepo(db)
	planetRepo := repository.NewPostgresPlanetRepo(db)
	vehicleRepo := repository.NewPostgresVehicleRepo(db)
	favoriteRepo := repository.NewPostgresFavoriteRepo(db)

	// 3. メトリクス
	reg, collector := newMetricsRegistry()

	// 4. ドメインサービスの初期化
	favoriteService := favorite.NewService(userRepo, personRepo, planetRepo, vehicleRepo, favoriteRepo, collector)
	catalogService := catalog.NewService(personRepo, planetRepo, vehicleRepo)
	userService := user.NewService(userRepo)

	// 5. ルーターの構築
	trustedProxies, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("failed to parse trusted proxies: %w", err)
	}
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitWrite),
	)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		HTTPRecorder:      collector,
		TrustedProxies:    trustedProxies,

		HealthChecker:   db,
		MetricsGatherer: reg,

		CatalogService:  catalogService,
		UserService:     userService,
		FavoriteService: handler.NewFavoriteServiceAdapter(favoriteService),
	})

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return serveUntilSignal(server, "API server")
}

// serveUntilSignal はHTTPサーバーを起動し、SIGINT/SIGTERMでグレースフルシャットダウンする。
func serveUntilSignal(server *http.Server, name string) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	errCh := make(chan error, 1)
	go func() {
		slog.Info(name+" starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("%s listen error: %w", name, err)
	case <-stop:
	}
	slog.Info("shutting down " + name + "...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("%s shutdown failed: %w", name, err)
	}

	slog.Info(name + " stopped gracefully")
	return nil
}

// newImporter は参照データのインポーターを構築する。
// 取り込み先URLを静的に検証した上で、SSRF防止付きのHTTPクライアントを使う。
func newImporter(cfg *config.Config, db *sql.DB, recorder swapi.Recorder) (*swapi.Importer, error) {
	guard := security.NewSSRFGuard()
	if err := guard.ValidateURL(cfg.ImportBaseURL); err != nil {
		return nil, fmt.Errorf("invalid IMPORT_BASE_URL: %w", err)
	}

	clientCfg := swapi.DefaultClientConfig()
	clientCfg.APIInterval = cfg.ImportAPIInterval
	clientCfg.MaxResponseSize = cfg.ImportMaxSize

	client, err := swapi.NewClient(guard.NewSafeClient(cfg.ImportTimeout), slog.Default(), cfg.ImportBaseURL, clientCfg)
	if err != nil {
		return nil, err
	}

	return swapi.NewImporter(
		client,
		repository.NewPostgresPersonRepo(db),
		repository.NewPostgresPlanetRepo(db),
		repository.NewPostgresVehicleRepo(db),
		recorder,
		slog.Default(),
		cfg.ImportInterval,
	), nil
}

// runWorker はワーカーモードで起動する。
// 参照データの定期インポートを実行し、/metrics を公開する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := openDB(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	// 2. メトリクス
	reg, collector := newMetricsRegistry()

	// 3. インポーターの初期化
	importer, err := newImporter(cfg, db, collector)
	if err != nil {
		return err
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 4. メトリクスエンドポイントをバックグラウンドで公開
	metricsServer := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           metrics.SetupMetricsRoute(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", slog.String("error", err.Error()))
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker starting",
		slog.String("import_base_url", cfg.ImportBaseURL),
		slog.Duration("import_interval", cfg.ImportInterval),
	)

	// インポーターをメインgoroutineで実行（ブロッキング）
	importer.Start(ctx)

	slog.Info("worker stopped gracefully")
	return nil
}

// runImport は参照データのインポートを1回実行する。
func runImport(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := openDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	importer, err := newImporter(cfg, db, nil)
	if err != nil {
		return err
	}

	summary, err := importer.RunOnce(ctx)
	slog.Info("import summary",
		slog.Any("people", summary.People),
		slog.Any("planets", summary.Planets),
		slog.Any("vehicles", summary.Vehicles),
	)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// 引数なしまたは "up" で未適用のマイグレーションを全て適用し、
// "down [n]" で直近n件（省略時1件）をロールバックする。
func runMigrate(cfg *config.Config, args []string) error {
	direction, steps, err := parseMigrateArgs(args)
	if err != nil {
		return err
	}

	slog.Info("running database migrations",
		slog.String("direction", direction),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	var version uint
	if direction == "down" {
		version, err = database.RollbackMigrations(cfg.DatabaseURL, steps)
	} else {
		version, err = database.RunMigrations(cfg.DatabaseURL)
	}
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully", slog.Uint64("version", uint64(version)))
	return nil
}

// parseMigrateArgs はmigrateサブコマンドの引数を解釈する。
func parseMigrateArgs(args []string) (direction string, steps int, err error) {
	if len(args) == 0 {
		return "up", 0, nil
	}

	switch args[0] {
	case "up":
		if len(args) > 1 {
			return "", 0, fmt.Errorf("usage: migrate up")
		}
		return "up", 0, nil
	case "down":
		steps = 1
		if len(args) > 1 {
			steps, err = strconv.Atoi(args[1])
			if err != nil || steps <= 0 {
				return "", 0, fmt.Errorf("invalid rollback steps: %q", args[1])
			}
		}
		return "down", steps, nil
	default:
		return "", 0, fmt.Errorf("unknown migrate direction: %q (usage: migrate [up|down [n]])", args[0])
	}
}

// runAddUser はユーザーを作成する。
// パスワードはbcryptでハッシュ化して保存する。
func runAddUser(cfg *config.Config, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: adduser <email> <password>")
	}

	ctx := context.Background()
	db, err := openDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := user.NewService(repository.NewPostgresUserRepo(db))
	u, err := svc.Create(ctx, user.CreateInput{Email: args[0], Password: args[1]})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user created",
		slog.Int64("user_id", u.ID),
		slog.String("email", u.Email),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	endpoint := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードとクエリを伏せる。
// パースできないURLは全体を伏せる。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	u.RawQuery = ""
	return u.Redacted()
}
