package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"amora/internal/app/registry"
	"amora/internal/app/relay"
	"amora/internal/app/server"
	"amora/internal/config"
	"amora/internal/core/presence"
	"amora/internal/core/services"
	"amora/internal/platform/logger"
	"amora/internal/platform/telemetry"
	"amora/internal/plugins/postgres"
	redisPlugin "amora/internal/plugins/redis"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Config
	_ = godotenv.Load()
	cfg := config.Load()

	// Logger
	log := logger.NewLogger(*cfg)
	log.Info("starting application")

	otelShutdown, err := telemetry.InitTelemetry(ctx, *cfg)
	if err != nil {
		log.Error("failed to initialize telemetry", "err", err)
	}
	defer func() {
		if otelShutdown == nil {
			return
		}
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
		log.Error("postgres connection failed", "err", err)
		return
	}
	log.Info("postgres connected")
	var rdb *redis.Client
	if rdb, err = redisPlugin.NewRedisClient(ctx, *cfg.Redis); err != nil {
		log.Error("redis connection failed", "url", cfg.Redis.URL)
		return
	}
	log.Info("redis connected")

	// Adapters
	userRepo := postgres.NewUserRepo(pdb)
	msgRepo := postgres.NewMessageRepo(pdb)
	groupRepo := postgres.NewGroupRepo(pdb)
	txManager := postgres.NewTxManager(pdb)
	notifier := redisPlugin.NewRedisNotifier(rdb)

	// Core
	tracker := presence.NewTracker()
	caster := registry.New()
	userSvc := services.NewUserService(log, userRepo)
	tokenSvc := services.NewTokenService(cfg.SecretToken)
	msgSvc := services.NewMessageService(log, msgRepo, userRepo, txManager)
	groupSvc := services.NewGroupService(log, groupRepo)
	hub := services.NewHub(log, userRepo, msgRepo, msgSvc, groupSvc, tracker, caster, notifier, txManager)

	// Notification relay
	rly := relay.NewNotificationRelay(log, notifier, caster, tracker)
	go func() {
		if err := rly.Run(ctx); err != nil {
			log.Error("notification relay stopped", "err", err)
		}
	}()

	// Server
	srv := server.NewServer(log, cfg, userSvc, tokenSvc, msgSvc, hub, caster)
	if err := srv.Start(ctx); err != nil {
		log.Error("server stopped", "err", err)
	}
}
