package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"telegram-channel-admin/internal/application"
	"telegram-channel-admin/internal/config"
	"telegram-channel-admin/internal/infra/metrics"
	"telegram-channel-admin/internal/infra/mongodb"
	red "telegram-channel-admin/internal/infra/redis"
	"telegram-channel-admin/internal/infra/sched"
	tele "telegram-channel-admin/internal/infra/telegram"
	"telegram-channel-admin/internal/infra/web"
	"telegram-channel-admin/internal/logging"
	"telegram-channel-admin/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}
	metrics.MustRegister()

	// ---- MongoDB ----
	db, closeDB, err := mongodb.Connect(ctx, &cfg.Mongo)
	if err != nil {
		logger.Fatal().Err(err).Msg("mongodb unreachable")
	}
	defer closeDB()

	// ---- Redis (optional, rate limiting only) ----
	var rateLimiter *red.RateLimiter
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis unreachable")
		}
		defer redisClient.Close()
		rateLimiter = red.NewRateLimiter(redisClient)
	} else {
		logger.Warn().Msg("redis.url not set, rate limiting disabled")
	}

	// ---- Repositories ----
	setupRepo := mongodb.NewSetupRepo(db)
	memberRepo := mongodb.NewMembershipRepo(db)
	auditRepo := mongodb.NewAuditRepo(db)

	// ---- Telegram API adapter ----
	api, err := tele.NewAPI(cfg.Bot.Token, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram client init failed")
	}

	// ---- Use cases ----
	auditUC := usecase.NewAuditUseCase(auditRepo, logger)
	setupUC := usecase.NewSetupUseCase(setupRepo, auditUC, cfg.Channel.DefaultMaxBots, logger)
	rosterUC := usecase.NewRosterUseCase(memberRepo, api, logger)
	verifier := usecase.NewVerifier(api, logger)
	promoUC := usecase.NewPromotionUseCase(setupRepo, memberRepo, auditUC, api, verifier, logger)

	// ---- Facade ----
	facade := application.NewBotFacade(setupUC, rosterUC, promoUC, auditUC, api)

	// ---- Telegram dispatcher ----
	bot, err := tele.NewBot(&cfg.Bot, api, facade, rateLimiter, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram bot init failed")
	}
	if strings.ToLower(cfg.Bot.Mode) != "polling" {
		logger.Warn().Str("mode", cfg.Bot.Mode).Msg("bot mode not implemented, falling back to polling")
	}
	go func() {
		if err := bot.StartPolling(ctx); err != nil && err != context.Canceled {
			logger.Error().Err(err).Msg("telegram polling stopped")
		}
	}()

	// ---- Admin HTTP (health + metrics) ----
	adminSrv := web.NewServer(cfg.Admin.Port, logger)
	go func() {
		if err := adminSrv.Start(); err != nil {
			logger.Error().Err(err).Msg("admin http server error")
		}
	}()

	// ---- Audit retention sweep (optional) ----
	if cfg.Audit.RetentionDays > 0 {
		worker := sched.NewRetentionWorker(cfg.Audit.SweepInterval, cfg.Audit.RetentionDays, cfg.Bot.OwnerID, auditUC, logger)
		go func() { _ = worker.Run(ctx) }()
	}

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	bot.StopPolling()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := adminSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("admin http shutdown failed")
	}
}
