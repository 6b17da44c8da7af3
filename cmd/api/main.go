package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/handler"
	"storefront/internal/media"
	"storefront/internal/payment"
	"storefront/internal/ratelimit"
	"storefront/internal/repository"
	"storefront/internal/router"
	"storefront/internal/service"
	"storefront/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// idleVisitorTTL bounds how long the in-memory limiter remembers a client.
const idleVisitorTTL = 30 * time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting storefront API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, pool, logger); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	productRepo := repository.NewProductRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)

	gateway := payment.NewPayChanguClient(cfg.Gateway.BaseURL, cfg.Gateway.SecretKey, cfg.Gateway.Timeout, logger)

	publisher, err := newPublisher(cfg.Kafka, logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	limiter, closeLimiter, err := newCheckoutLimiter(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLimiter()

	var uploadHandler *handler.UploadHandler
	if cfg.S3.Enabled {
		uploader, err := media.NewS3Uploader(ctx, cfg.S3.Bucket, cfg.S3.Region, cfg.S3.Prefix, cfg.S3.Endpoint, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 uploader: %w", err)
		}
		uploadHandler = handler.NewUploadHandler(uploader, logger)
	} else {
		logger.Info().Msg("product image uploads disabled (S3 disabled)")
	}

	productService := service.NewProductService(productRepo, logger)
	adminProductService := service.NewAdminProductService(productRepo, cfg.Checkout.Currency, logger)
	orderService := service.NewOrderService(orderRepo, logger)
	checkoutService := service.NewCheckoutService(orderRepo, productRepo, gateway, service.CheckoutSettings{
		Currency:      cfg.Checkout.Currency,
		CallbackURL:   cfg.Checkout.CallbackURL(),
		ReturnURLBase: cfg.Checkout.ReturnURL(""),
		Title:         cfg.Gateway.CheckoutTitle,
		Description:   cfg.Gateway.Description,
	}, logger)
	reconciler := service.NewReconciler(orderRepo, productRepo, gateway, publisher, cfg.Gateway.WebhookSecret, logger)

	if cfg.Sweeper.Enabled {
		sweeper := worker.NewSweeper(orderRepo, reconciler, worker.SweeperConfig{
			Interval:  cfg.Sweeper.Interval,
			MinAge:    cfg.Sweeper.MinAge,
			MaxAge:    cfg.Sweeper.MaxAge,
			Workers:   cfg.Sweeper.Workers,
			BatchSize: cfg.Sweeper.BatchSize,
		}, logger)
		sweeperDone := make(chan struct{})
		go func() {
			defer close(sweeperDone)
			sweeper.Run(ctx)
		}()
		defer func() {
			cancel()
			<-sweeperDone
		}()
	}

	mux := router.New(router.Handlers{
		Health:       handler.NewHealthHandler(pool, logger),
		Product:      handler.NewProductHandler(productService, logger),
		AdminProduct: handler.NewAdminProductHandler(adminProductService, logger),
		Order:        handler.NewOrderHandler(orderService, logger),
		Checkout:     handler.NewCheckoutHandler(checkoutService, logger),
		Webhook:      handler.NewWebhookHandler(reconciler, logger),
		Upload:       uploadHandler,
	}, router.Options{
		JWTSecret:       []byte(cfg.Auth.JWTSecret),
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		CheckoutLimiter: limiter,
	}, logger)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// newPublisher returns a Kafka publisher when enabled and a no-op otherwise.
func newPublisher(cfg config.KafkaConfig, logger zerolog.Logger) (events.Publisher, error) {
	if !cfg.Enabled {
		logger.Info().Msg("domain event publishing disabled (Kafka disabled)")
		return events.NopPublisher{}, nil
	}
	publisher, err := events.NewKafkaPublisher(cfg.Brokers, cfg.ClientID, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize kafka publisher: %w", err)
	}
	return publisher, nil
}

// newCheckoutLimiter builds the checkout throttle. The Redis backend is shared
// across replicas; the memory backend is per process.
func newCheckoutLimiter(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (ratelimit.Limiter, func(), error) {
	if cfg.RateLimit.Backend != "redis" {
		return ratelimit.NewMemoryLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, idleVisitorTTL), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close redis client")
		}
	}
	return ratelimit.NewRedisLimiter(client, "checkout", cfg.RateLimit.Requests, cfg.RateLimit.Window, logger), closeFn, nil
}
