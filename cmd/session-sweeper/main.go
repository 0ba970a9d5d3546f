package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-portal/internal/config"
	"github.com/hackgods/clinic-portal/internal/db"
	"github.com/hackgods/clinic-portal/internal/logging"
	"github.com/hackgods/clinic-portal/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.SessionBackend != config.SessionBackendPostgres {
		logger.Info("session backend expires on its own, nothing to sweep", zap.String("session_backend", cfg.SessionBackend))
		return
	}

	logger.Info("session sweeper starting", zap.String("env", cfg.Env), zap.Duration("interval", cfg.SweepInterval))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal("postgres connection error", zap.Error(err))
	}
	defer pool.Close()
	logger.Info("connected to Postgres")

	store := session.NewPgStore(pool)
	if err := store.EnsureSchema(rootCtx); err != nil {
		logger.Fatal("session schema error", zap.Error(err))
	}

	// Run once at startup
	runOnce(rootCtx, store, logger)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info("shutdown signal received, stopping session sweeper")
			return
		case <-ticker.C:
			runOnce(rootCtx, store, logger)
		}
	}
}

func runOnce(ctx context.Context, store *session.PgStore, logger *zap.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	n, err := store.DeleteExpired(runCtx, start)
	if err != nil {
		logger.Error("sweep run error", zap.Error(err))
		return
	}
	logger.Info("sweep run complete", zap.Int64("deleted", n), zap.Duration("took", time.Since(start)))
}
