package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"campustrack/internal/attendance"
	"campustrack/internal/auth"
	"campustrack/internal/config"
	"campustrack/internal/metrics"
	"campustrack/internal/server"
	"campustrack/internal/session"
	"campustrack/internal/store"
)

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, logger); err != nil {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
}

func runHTTP(cfg config.App, logger *slog.Logger) error {
	db, err := store.NewDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.Migrate(migrateCtx); err != nil {
		return err
	}

	redisClient := store.NewRedis(cfg)

	var sessions session.Store
	if cfg.SessionBackend == "memory" {
		sessions = session.NewMemory(cfg.SessionTTL)
		logger.Info("using in-memory sessions")
	} else {
		sessions = session.NewRedisStore(redisClient.Client, cfg.SessionTTL)
	}

	repo := attendance.NewRepository(db.Client)
	svc := attendance.NewService(repo, logger, cfg.DefaultLocation, cfg.MaxReportRows)

	r := server.New(server.Deps{
		Cfg:        cfg,
		Attendance: svc,
		Users:      auth.NewRepository(db.Client),
		Sessions:   sessions,
		Metrics:    metrics.New(prometheus.DefaultRegisterer),
		Logger:     logger,
		DBHealthy: func(ctx context.Context) bool {
			return db.Client.PingContext(ctx) == nil
		},
		RedisHealthy: redisClient.Healthy,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	// Give outstanding requests 10 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced shutdown", "error", err)
	}

	logger.Info("server exited")
	return nil
}
