package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lookout/internal/app/presence"
	"lookout/internal/app/registry"
	"lookout/internal/app/server"
	"lookout/internal/app/worker"
	"lookout/internal/config"
	"lookout/internal/core/services"
	"lookout/internal/platform/logger"
	"lookout/internal/platform/telemetry"
	"lookout/internal/plugins/postgres"
	redisPlugin "lookout/internal/plugins/redis"

	"github.com/redis/go-redis/v9"
)

func main() {
	// Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Config
	cfg := config.Load()

	// Logger
	log := logger.NewLogger(*cfg)
	log.Info("starting application")

	otelShutdown, err := telemetry.InitTelemetry(ctx, *cfg)
	if err != nil {
		log.Error("failed to initialize telemetry", "err", err)
	}
	defer func() {
		log.Info("flushing telemetry...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Error("telemetry shutdown failed", "err", err)
		}
	}()

	// Infra
	var pdb *sql.DB
	if pdb, err = postgres.New(ctx, *cfg.Postgres); err != nil {
		log.Error("postgres connection failed", "DSN", cfg.Postgres.DSN, "err", err)
		return
	}
	defer pdb.Close()
	log.Info("postgres connected")
	var rdb *redis.Client
	if rdb, err = redisPlugin.NewRedisClient(ctx, *cfg.Redis); err != nil {
		log.Error("redis connection failed", "url", cfg.Redis.URL, "err", err)
		return
	}
	defer rdb.Close()
	log.Info("redis connected")

	// Adapters
	notifRepo := postgres.NewNotificationRepo(pdb)
	txManager := postgres.NewTxManager(pdb)
	queue := redisPlugin.NewNotificationQueue(rdb)

	// Core
	tracker := presence.New()
	hub := registry.NewRegistry()
	tokenSvc := services.NewTokenService(cfg.SecretToken)
	managerSvc := services.NewManagerService(log, tracker)
	notificationSvc := services.NewNotificationService(log, tracker, queue, notifRepo, txManager)

	// Background workers
	delivery := worker.NewDeliveryWorker(log, queue, hub, tracker, notificationSvc, cfg.Worker.DeliveryGroup)
	go func() {
		if err := delivery.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("delivery worker stopped", "err", err)
		}
	}()
	sweeper := worker.NewSweeper(log, tracker, cfg.Presence.SweepInterval, cfg.Presence.InactivityThreshold)
	go func() {
		if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("sweeper stopped", "err", err)
		}
	}()

	// Server
	srv := server.NewServer(
		log,
		cfg.Service.Name,
		cfg.Service.Addr,
		cfg.Presence.HeartbeatPeriod,
		tokenSvc,
		managerSvc,
		notificationSvc,
		hub,
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "err", err)
	}
}
