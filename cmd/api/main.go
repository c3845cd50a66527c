package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bryanwahyu/deepfake-detector/internal/application"
	appdetection "github.com/bryanwahyu/deepfake-detector/internal/application/detection"
	"github.com/bryanwahyu/deepfake-detector/internal/config"
	domain "github.com/bryanwahyu/deepfake-detector/internal/domain/detection"
	"github.com/bryanwahyu/deepfake-detector/internal/infra/db/memory"
	mysqlp "github.com/bryanwahyu/deepfake-detector/internal/infra/db/mysql"
	"github.com/bryanwahyu/deepfake-detector/internal/infra/db/postgres"
	redisrepo "github.com/bryanwahyu/deepfake-detector/internal/infra/db/redis"
	"github.com/bryanwahyu/deepfake-detector/internal/infra/httpserver"
	"github.com/bryanwahyu/deepfake-detector/internal/infra/provider"
	minioStore "github.com/bryanwahyu/deepfake-detector/internal/infra/storage"
	"github.com/bryanwahyu/deepfake-detector/internal/logging"
	"github.com/bryanwahyu/deepfake-detector/internal/middleware"
)

func main() {
	// load config
	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

type backends struct {
	history  domain.HistoryRepository
	failures domain.FailureRepository
	checkers map[string]middleware.HealthChecker
	closers  []func() error
}

// openBackends wires the configured history store.
func openBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	b := &backends{checkers: map[string]middleware.HealthChecker{}}

	openSQL := func(db *sql.DB, ensure func(context.Context, *sql.DB) error) error {
		b.closers = append(b.closers, db.Close)
		b.checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
		if cfg.History.AutoMigrate {
			return ensure(ctx, db)
		}
		return nil
	}

	switch cfg.History.Backend {
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, fmt.Errorf("mysql connect: %w", err)
		}
		b.history = mysqlp.NewHistoryRepository(db)
		b.failures = mysqlp.NewFailureRepository(db)
		return b, openSQL(db, mysqlp.EnsureSchema)
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		b.history = postgres.NewHistoryRepository(db)
		b.failures = postgres.NewFailureRepository(db)
		return b, openSQL(db, postgres.EnsureSchema)
	case "redis":
		client := redisrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		repo := redisrepo.NewHistoryRepository(client)
		if err := repo.Ping(ctx); err != nil {
			client.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		b.history = repo
		b.failures = redisrepo.NewFailureRepository(client)
		b.checkers["redis"] = middleware.CheckerFunc(repo.Ping)
		b.closers = append(b.closers, client.Close)
		return b, nil
	default:
		b.history = memory.NewHistoryRepository()
		b.failures = memory.NewFailureRepository()
		return b, nil
	}
}

func (b *backends) Close() {
	for _, c := range b.closers {
		c()
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	b, err := openBackends(ctx, cfg)
	if b != nil {
		defer b.Close()
	}
	if err != nil {
		return err
	}

	prov, err := provider.New(cfg)
	if err != nil {
		return err
	}

	svc := &appdetection.Service{
		Provider:       prov,
		Repo:           b.history,
		FailureRepo:    b.failures,
		Clock:          application.SystemClock{},
		Logger:         log,
		HistoryLimit:   cfg.History.Limit,
		MaxUploadBytes: cfg.Upload.MaxBytes,
	}

	// init minio (optional, buat preview)
	if cfg.Minio.Enabled {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
			cfg.Minio.PreviewExpiry,
		)
		if err != nil {
			return fmt.Errorf("minio init: %w", err)
		}
		svc.Media = store
		b.checkers["minio"] = middleware.CheckerFunc(store.Ping)
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.Rate)
		defer limiter.Close()
	}

	apiKeys := make(map[string]string, len(cfg.Auth.APIKeys))
	for i, k := range cfg.Auth.APIKeys {
		apiKeys[fmt.Sprintf("key-%d", i+1)] = k
	}

	mux := chi.NewRouter()
	mux.Mount("/", httpserver.NewRouter(svc, httpserver.Options{
		Logger:         log,
		AllowedOrigins: cfg.AllowedOrigins(),
		APIKeys:        apiKeys,
		RateLimiter:    limiter,
		Checkers:       b.checkers,
		MaxUploadBytes: cfg.Upload.MaxBytes,
	}))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.String("addr", addr),
			zap.String("provider", prov.Name()),
			zap.String("history", cfg.History.Backend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	}
	log.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx2)
}
