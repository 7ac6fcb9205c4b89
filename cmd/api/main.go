package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"kitstock-api/internal/cache"
	"kitstock-api/internal/config"
	"kitstock-api/internal/events"
	"kitstock-api/internal/handler"
	"kitstock-api/internal/integration"
	"kitstock-api/internal/middleware"
	"kitstock-api/internal/repository"
	"kitstock-api/internal/router"
	"kitstock-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.App)
	log.Info().
		Str("environment", cfg.App.Environment).
		Str("version", cfg.App.Version).
		Msg("Starting kitstock API")

	// Store is mandatory: exit non-zero when it cannot be reached.
	store, err := repository.Open(context.Background(), cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.Store.Kind()).Msg("Failed to connect to store")
	}
	defer store.Close()
	log.Info().Str("store", store.Kind()).Msg("Store ready")

	readiness := map[string]handler.Pinger{"store": store}

	var idemCache cache.Cache
	switch cfg.Cache.Type {
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisCache, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:      cfg.Cache.RedisAddress(),
			Password:  cfg.Cache.RedisPassword,
			DB:        cfg.Cache.RedisDB,
			KeyPrefix: cfg.App.Name + ":",
		})
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		idemCache = redisCache
		readiness["cache"] = redisCache
		log.Info().Str("addr", cfg.Cache.RedisAddress()).Msg("Redis cache initialized")
	default:
		idemCache = cache.NewMemoryCache()
		log.Info().Msg("In-memory cache initialized")
	}
	defer idemCache.Close()

	var publisher events.Publisher = events.Nop{}
	if cfg.Kafka.Enabled() {
		publisher = events.NewKafkaPublisher(events.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			Producer:     cfg.App.Name,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		})
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Kafka publisher initialized")
	} else {
		log.Info().Msg("Kafka not configured, domain events disabled")
	}
	defer publisher.Close()

	// Initialize services
	kitService := service.NewKitService(store.Kits, publisher, cfg.Inventory.PairingFactor)
	codService := service.NewCODService(store.COD, store.Kits, codIntegrations(cfg), publisher)
	returnService := service.NewReturnService(store.Returns, publisher)
	authService := service.NewAuthService(store.Users, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	var authMiddleware func(http.Handler) http.Handler
	if cfg.Auth.Required {
		authMiddleware = middleware.NewAuthMiddleware(authService)
	} else {
		log.Warn().Msg("AUTH_REQUIRED is false, API routes are open")
	}

	r := router.New(router.Config{
		Handler:        handler.New(cfg.App.Version, readiness),
		KitHandler:     handler.NewKitHandler(kitService, cfg.Server.MaxUploadBytes),
		CODHandler:     handler.NewCODHandler(codService),
		ReturnHandler:  handler.NewReturnHandler(returnService),
		AuthHandler:    handler.NewAuthHandler(authService),
		AdminHandler:   handler.NewAdminHandler(kitService, store.Kind(), cfg.Cache.Type, kitService.PairingFactor()),
		AuthMiddleware: authMiddleware,
		SellMiddleware: middleware.Idempotency(idemCache, cfg.Cache.IdempotencyTTL),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Server.Address()).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Server stopped")
}

func setupLogger(app config.AppConfig) {
	level, err := zerolog.ParseLevel(app.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if app.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	log.Logger = log.With().Str("service", app.Name).Logger()
}

// codIntegrations wires only the platforms that have credentials.
func codIntegrations(cfg *config.Config) service.CODIntegrations {
	ext := service.CODIntegrations{
		ConfirmCampaign: cfg.Messaging.ConfirmKey,
		CancelCampaign:  cfg.Messaging.CancelKey,
	}
	if cfg.Billing.BaseURL != "" {
		ext.Billing = integration.NewBillingClient(cfg.Billing.BaseURL, cfg.Billing.APIKey, cfg.Billing.Timeout)
	} else {
		log.Warn().Msg("Billing platform not configured, COD payments will not be recorded")
	}
	if cfg.Storefront.BaseURL != "" {
		ext.Storefront = integration.NewStorefrontClient(cfg.Storefront.BaseURL, cfg.Storefront.AccessToken, cfg.Storefront.Timeout)
	} else {
		log.Warn().Msg("Storefront platform not configured, COD cancellations stay local")
	}
	if cfg.Messaging.BaseURL != "" {
		ext.Messenger = integration.NewMessagingClient(cfg.Messaging.BaseURL, cfg.Messaging.APIKey, cfg.Messaging.Timeout)
	} else {
		log.Warn().Msg("Messaging platform not configured, customers will not be notified")
	}
	return ext
}
