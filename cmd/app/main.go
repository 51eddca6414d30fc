package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telegram-forecast-store/internal/application"
	"telegram-forecast-store/internal/config"
	"telegram-forecast-store/internal/domain/ports/adapter"
	tele "telegram-forecast-store/internal/infra/adapters/telegram"
	pg "telegram-forecast-store/internal/infra/db/postgres"
	"telegram-forecast-store/internal/infra/logging"
	"telegram-forecast-store/internal/infra/metrics"
	red "telegram-forecast-store/internal/infra/redis"
	"telegram-forecast-store/internal/infra/web"
	"telegram-forecast-store/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop bot, console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("dev mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.Connect(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()
	intentRepo := red.NewPromoIntentRepo(redisClient, cfg.Redis.IntentTTL)

	// ---- Repositories ----
	userRepo := pg.NewUserRepo(pool)
	orderRepo := pg.NewOrderRepo(pool)
	eventRepo := pg.NewPaymentEventRepo(pool)
	codeRepo := pg.NewPromoCodeRepo(pool)
	useRepo := pg.NewPromoUseRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Use cases ----
	pricingUC, err := usecase.NewPricingUseCase(&cfg.Pricing)
	if err != nil {
		logger.Fatal().Err(err).Msg("pricing config rejected")
	}
	orderUC := usecase.NewOrderUseCase(orderRepo, logger)
	lifecycleUC := usecase.NewLifecycleUseCase(userRepo, orderRepo, logger)
	reconcileUC := usecase.NewReconcileUseCase(eventRepo, orderRepo, logger)
	promoUC := usecase.NewPromoUseCase(codeRepo, useRepo, orderRepo, txManager, cfg.Bot.Username, logger)
	statsUC := usecase.NewStatsUseCase(orderRepo, userRepo)

	// ---- Telegram + storefront ----
	var bot adapter.TelegramBotAdapter
	var realBot *tele.RealBotAdapter
	if cfg.Runtime.Dev {
		bot = tele.NewNoopBotAdapter()
	} else {
		realBot, err = tele.NewRealBotAdapter(&cfg.Bot, lifecycleUC, statsUC, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram init failed")
		}
		bot = realBot
	}

	storefront := application.NewStorefront(
		pricingUC, orderUC, lifecycleUC, reconcileUC, promoUC,
		intentRepo, bot, cfg.Store.Currency, cfg.Store.MediaDir, logger,
	)

	if realBot != nil {
		realBot.Bind(storefront)
		go func() {
			if err := realBot.StartPolling(ctx); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("telegram polling stopped")
			}
		}()
	}

	// ---- Admin HTTP server ----
	adminSrv := web.NewServer(statsUC, lifecycleUC, promoUC, orderUC, cfg.Admin.APIKey, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Admin.Port),
		Handler: adminSrv.Router(),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("admin api listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("admin api error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	if realBot != nil {
		realBot.StopPolling()
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	cancel()
}
