package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handler"
	"storefront/internal/metrics"
	"storefront/internal/notify"
	"storefront/internal/repository"
	"storefront/internal/router"
	"storefront/internal/service"
	"storefront/internal/session"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; the environment may already be populated.
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger)
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		logger.Warn().Err(envErr).Msg("failed to read .env file")
	}
	logger.Info().Msg("starting storefront API server")

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

	drafts, closeDrafts, err := newDraftStore(ctx, cfg.Redis, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize checkout draft store: %w", err)
	}
	defer closeDrafts()

	notifier, closeNotifier := newNotifier(cfg, logger)
	defer closeNotifier()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	productRepo := repository.NewProductRepository(pool, logger)
	cartRepo := repository.NewCartRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	userRepo := repository.NewUserRepository(pool, logger)

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	catalogService := service.NewCatalogService(productRepo, logger)
	cartService := service.NewCartService(cartRepo, productRepo, m, logger)
	checkoutService := service.NewCheckoutService(service.CheckoutDeps{
		Carts:    cartRepo,
		Products: productRepo,
		Orders:   orderRepo,
		Users:    userRepo,
		Drafts:   drafts,
		Notifier: notifier,
		Metrics:  m,
		DraftTTL: cfg.Checkout.DraftTTL,
	}, logger)
	orderService := service.NewOrderService(orderRepo, notifier, logger)
	accountService := service.NewAccountService(userRepo, cartService, checkoutService, tokens, auth.DefaultParams, logger)

	mux := router.New(router.Handlers{
		Products: handler.NewProductHandler(catalogService, logger),
		Cart:     handler.NewCartHandler(cartService, logger),
		Checkout: handler.NewCheckoutHandler(checkoutService, logger),
		Orders:   handler.NewOrderHandler(orderService, logger),
		Accounts: handler.NewAccountHandler(accountService, logger),
		Staff:    handler.NewStaffHandler(catalogService, orderService, logger),
	}, router.Options{
		Auth:      cfg.Auth,
		CORS:      cfg.CORS,
		RateLimit: cfg.RateLimit,
		Tokens:    tokens,
		Metrics:   m,
		DB:        pool,
	}, logger)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

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

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
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

// newDraftStore uses Redis when enabled and the in-process store otherwise.
func newDraftStore(ctx context.Context, cfg config.RedisConfig, logger zerolog.Logger) (session.DraftStore, func(), error) {
	if !cfg.Enabled {
		logger.Info().Msg("using in-memory checkout draft store (redis disabled)")
		return session.NewMemoryStore(), func() {}, nil
	}

	client, err := session.NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close redis client")
		}
	}
	return session.NewRedisStore(client, logger), closeFn, nil
}

// newNotifier fans out to every enabled channel.
func newNotifier(cfg *config.Config, logger zerolog.Logger) (notify.Notifier, func()) {
	var (
		notifiers notify.Multi
		closers   []func()
	)

	if cfg.Email.Enabled {
		notifiers = append(notifiers, notify.NewEmail(cfg.Email.APIKey, cfg.Email.From, logger))
	}
	if cfg.Kafka.Enabled {
		events := notify.NewEvents(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		notifiers = append(notifiers, events)
		closers = append(closers, func() {
			if err := events.Close(); err != nil {
				logger.Warn().Err(err).Msg("failed to close kafka writer")
			}
		})
	}

	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	if len(notifiers) == 0 {
		logger.Info().Msg("order notifications disabled")
		return notify.Nop{}, closeAll
	}
	return notifiers, closeAll
}
