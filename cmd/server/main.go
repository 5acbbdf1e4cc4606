package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mealbox/orders-api/internal/app"
	"github.com/mealbox/orders-api/internal/audit"
	"github.com/mealbox/orders-api/internal/config"
	"github.com/mealbox/orders-api/internal/db"
	"github.com/mealbox/orders-api/internal/lock"
	"github.com/mealbox/orders-api/internal/sheet"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	sourcePool := pool
	if cfg.SourceDatabaseURL != cfg.DatabaseURL {
		sourcePool, err = db.Connect(ctx, cfg.SourceDatabaseURL)
		if err != nil {
			logger.Error("connect source database", "error", err)
			os.Exit(1)
		}
		defer sourcePool.Close()
	}

	source := sheet.NewPGStore(sourcePool)
	if err := app.Bootstrap(ctx, cfg, source); err != nil {
		logger.Error("bootstrap sheets", "error", err)
		os.Exit(1)
	}

	handler, err := app.New(cfg, app.Deps{
		Source:      source,
		Colors:      source,
		Destination: sheet.NewPGStore(pool),
		Locker:      newLocker(cfg, sourcePool),
		AuditSink:   audit.NewPGSink(pool),
		DB:          pool,
	}, logger)
	if err != nil {
		logger.Error("build router", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	go func() {
		logger.Info("api_started", "addr", cfg.Addr, "lock_backend", cfg.LockBackend, "timezone", cfg.Location.String())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("api server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

// Advisory locks live next to the sheets they guard, so several replicas
// sharing one source database serialise on the same key.
func newLocker(cfg config.Config, sourcePool *pgxpool.Pool) lock.Locker {
	if cfg.LockBackend == config.LockBackendPostgres {
		return lock.NewAdvisory(sourcePool, cfg.LockKey, cfg.LockWait)
	}
	return lock.NewMutex(cfg.LockWait)
}
