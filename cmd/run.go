package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"

	"wingo/api"
	"wingo/auth"
	"wingo/broadcast"
	"wingo/cache"
	"wingo/config"
	"wingo/database"
	"wingo/engine"
	"wingo/events"
	"wingo/game"
	"wingo/infrastructure"
	"wingo/notify"
	"wingo/observability"
	"wingo/payment"
	"wingo/repository"
	"wingo/service"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)
	log.Info("Starting wingo...")

	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		log.WithError(err).Warn("Metrics disabled")
	}

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established successfully")

	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// Realtime hub
	hub := broadcast.NewHub(broadcast.Config{AllowedOrigins: cfg.AllowedOrigins})
	hub.SubscribeToBus(eventBus)

	// Optional integrations
	var resultCache service.ResultCache
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.WithError(err).Warn("Redis unavailable, results will be read from the database")
		} else {
			rc := cache.NewResultCache(redisClient, cache.DefaultHistorySize)
			rc.SubscribeToBus(eventBus)
			resultCache = rc
		}
	}

	var natsClient *infrastructure.NATSClient
	if cfg.NATSServers != "" {
		natsClient, err = connectNATS(ctx, cfg.NATSServers)
		if err != nil {
			log.WithError(err).Warn("NATS unavailable, events stay local")
		} else {
			publisher := infrastructure.NewNATSEventPublisher(natsClient, infrastructure.NewEventSubjectMapper())
			publisher.SubscribeToBus(eventBus)
		}
	}

	var closeDiscord func() error
	if cfg.DiscordToken != "" && cfg.DiscordAlertChannel != "" {
		session, err := notify.NewDiscordSession(cfg.DiscordToken)
		if err != nil {
			log.WithError(err).Warn("Discord alerts disabled")
		} else {
			notify.NewWithdrawalAlerter(session, cfg.DiscordAlertChannel).SubscribeToBus(eventBus)
			closeDiscord = session.Close
		}
	}

	// Game state and services
	colorState := game.NewColorState(cfg.ColorBetCutoff)
	crashState := game.NewCrashState()

	accountService := service.NewAccountService(uowFactory)
	roundService := service.NewRoundService(uowFactory, resultCache)
	outcomeService := service.NewOutcomeService(uowFactory, game.DefaultSource())
	settlementService := service.NewSettlementService(uowFactory)
	betService := service.NewBetService(uowFactory, colorState, crashState, hub)
	withdrawalService := service.NewWithdrawalService(uowFactory)
	paymentService := service.NewPaymentService(uowFactory, payment.NewClient(payment.Config{
		BaseURL:      cfg.PaymentBaseURL,
		AppID:        cfg.PaymentAppID,
		Secret:       cfg.PaymentSecret,
		ReturnURL:    cfg.PaymentReturnURL,
		CurrencyCode: cfg.ProviderCurrencyCode,
		Timeout:      cfg.PaymentTimeout,
	}), cfg.PaymentSecret)

	// Rounds interrupted by the last shutdown never resolve; return their stakes
	if refunded, err := settlementService.RefundStaleRounds(ctx); err != nil {
		log.WithError(err).Error("Failed to refund unresolved rounds")
	} else if refunded > 0 {
		log.WithField("bets", refunded).Warn("Refunded bets of unresolved rounds")
	}

	// Round clocks
	colorClock := engine.NewColorClock(colorState, roundService, outcomeService, settlementService, hub,
		engine.ColorTimingsFromConfig(cfg))
	crashClock := engine.NewCrashClock(crashState, roundService, outcomeService, settlementService, hub,
		game.Curve{A: cfg.CrashCurveA, B: cfg.CrashCurveB}, engine.CrashTimingsFromConfig(cfg))
	stopColor := colorClock.Start(ctx)
	stopCrash := crashClock.Start(ctx)

	server := api.NewServer(api.Deps{
		Accounts:    accountService,
		Bets:        betService,
		Rounds:      roundService,
		Outcomes:    outcomeService,
		Withdrawals: withdrawalService,
		Payments:    paymentService,
		Tokens:      auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL),
		Hub:         hub,
		ColorState:  colorState,
		CrashState:  crashState,
	}, api.Options{
		BetRatePerSec: cfg.BetRatePerSec,
		BetRateBurst:  cfg.BetRateBurst,
		Release:       cfg.Environment == "production",
	})

	log.WithField("environment", cfg.Environment).Info("wingo is running")
	serveErr := server.Serve(ctx, cfg.HTTPAddr)
	if serveErr != nil {
		log.WithError(serveErr).Error("HTTP server stopped")
	}

	log.Info("Shutting down wingo...")
	stopColor()
	stopCrash()
	hub.Close()

	if closeDiscord != nil {
		if err := closeDiscord(); err != nil {
			log.WithError(err).Error("Error closing Discord session")
		}
	}
	if natsClient != nil {
		if err := natsClient.Close(); err != nil {
			log.WithError(err).Error("Error closing NATS connection")
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.WithError(err).Error("Error closing Redis connection")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down metrics")
	}

	log.Info("Closing database connection...")
	db.Close()
	log.Info("Shutdown completed")

	return serveErr
}

func connectNATS(ctx context.Context, servers string) (*infrastructure.NATSClient, error) {
	client := infrastructure.NewNATSClient(servers)
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	if err := client.EnsureStream(infrastructure.NewEventSubjectMapper().StreamSubjects()); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
