package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-portal/internal/apiclient"
	"github.com/hackgods/clinic-portal/internal/appointment"
	"github.com/hackgods/clinic-portal/internal/config"
	"github.com/hackgods/clinic-portal/internal/db"
	"github.com/hackgods/clinic-portal/internal/logging"
	"github.com/hackgods/clinic-portal/internal/portal"
	redisclient "github.com/hackgods/clinic-portal/internal/redis"
	"github.com/hackgods/clinic-portal/internal/session"
)

var version = "dev"

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

	loc, _ := cfg.Location()
	logger.Info("portal starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("api_base_url", cfg.APIBaseURL),
		zap.String("session_backend", cfg.SessionBackend),
		// Appointments are matched to slots by wall clock in this zone.
		zap.String("slot_timezone", loc.String()),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api, err := apiclient.New(cfg.APIBaseURL, cfg.HTTPTimeout, logger)
	if err != nil {
		logger.Fatal("api client init error", zap.Error(err))
	}

	var (
		store  session.Store
		locker redisclient.Locker = redisclient.NewLocalLocker(cfg.SubmitLockTTL)
	)

	switch cfg.SessionBackend {
	case config.SessionBackendRedis:
		rdb, err := redisclient.NewRedisClient(rootCtx, redisclient.Options{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			logger.Fatal("redis connection error", zap.Error(err))
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Warn("error closing redis", zap.Error(err))
			}
		}()
		logger.Info("connected to Redis", zap.String("addr", cfg.RedisAddr))

		store = session.NewRedisStore(rdb)
		locker = redisclient.NewRedisLocker(rdb, cfg.SubmitLockTTL)

	case config.SessionBackendPostgres:
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
		cancelPg()
		if err != nil {
			logger.Fatal("postgres connection error", zap.Error(err))
		}
		defer pool.Close()
		logger.Info("connected to Postgres")

		pg := session.NewPgStore(pool)
		if err := pg.EnsureSchema(rootCtx); err != nil {
			logger.Fatal("session schema error", zap.Error(err))
		}
		store = pg

	default:
		logger.Warn("using in-memory sessions; they are lost on restart")
		store = session.NewMemoryStore()
	}

	repo := appointment.NewAPIRepository(api, loc, logger)
	svc := appointment.NewService(repo, locker, loc, logger)

	limiter := portal.NewRateLimiter(cfg.LoginRate, cfg.LoginBurst, logger)
	go limiter.Run(rootCtx)

	rc := portal.RouterConfig{
		API:      api,
		Sessions: session.NewManager(store, cfg.SessionTTL, cfg.CookieSecure, logger),
		Schedule: svc,
		Limiter:  limiter,
		Logger:   logger,
		Env:      cfg.Env,
		Version:  version,
	}
	srv, err := portal.NewServer(rc)
	if err != nil {
		logger.Fatal("portal init error", zap.Error(err))
	}
	go srv.SweepViewState(rootCtx, cfg.SweepInterval, cfg.SessionTTL)

	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           srv.Routes(rc),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	logger.Info("shutting down portal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	logger.Info("portal stopped")
}
