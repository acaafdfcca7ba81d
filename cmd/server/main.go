package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Harshitk-cp/factlearn/internal/api"
	"github.com/Harshitk-cp/factlearn/internal/buildconfig"
	"github.com/Harshitk-cp/factlearn/internal/config"
	"github.com/Harshitk-cp/factlearn/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := config.Load(); err != nil {
		panic(err)
	}

	logger := newLogger(config.LogLevel())
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	backend, closeBackend := openBackend(ctx, logger)
	defer closeBackend()

	app, err := api.NewApp(ctx, backend, logger)
	if err != nil {
		if errors.Is(err, store.ErrMalformedDocument) {
			logger.Fatal("persisted document is corrupt, refusing to start; repair or restore it", zap.Error(err))
		}
		logger.Fatal("failed to initialize app", zap.Error(err))
	}

	// Start background services
	app.Start()

	addr := config.ServerAddr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting",
			zap.String("addr", addr),
			zap.String("version", buildconfig.Version()),
			zap.String("commit", buildconfig.Commit()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	// Stop background services after the listener so no new work arrives
	if err := app.Close(); err != nil {
		logger.Warn("error closing app", zap.Error(err))
	}

	logger.Info("server stopped")
}

func newLogger(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	lvl, parseErr := zapcore.ParseLevel(level)
	if parseErr != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	if parseErr != nil {
		logger.Warn("unrecognized LOG_LEVEL, using info", zap.String("log_level", level))
	}
	return logger
}

func openBackend(ctx context.Context, logger *zap.Logger) (store.Backend, func()) {
	switch kind := config.StoreBackend(); kind {
	case "file":
		dir := config.DataDir()
		b, err := store.NewFileBackend(dir)
		if err != nil {
			logger.Fatal("failed to open data dir", zap.String("dir", dir), zap.Error(err))
		}
		logger.Info("using file store", zap.String("dir", dir))
		return b, func() {}

	case "postgres":
		dbURL := config.DatabaseURL()
		if dbURL == "" {
			logger.Fatal("DATABASE_URL is required for the postgres store")
		}

		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		if err := pool.Ping(ctx); err != nil {
			logger.Fatal("failed to ping database", zap.Error(err))
		}
		logger.Info("connected to database")

		b := store.NewPostgresBackend(pool)
		if err := b.EnsureSchema(ctx); err != nil {
			logger.Fatal("failed to create schema", zap.Error(err))
		}
		return b, pool.Close

	default:
		logger.Fatal("unknown STORE_BACKEND (valid options: file, postgres)", zap.String("store_backend", kind))
		return nil, nil
	}
}
