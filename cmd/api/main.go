package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lumastore/storefront-backend/api/routes"
	"github.com/lumastore/storefront-backend/internal/cart"
	"github.com/lumastore/storefront-backend/internal/catalog"
	"github.com/lumastore/storefront-backend/internal/contacts"
	"github.com/lumastore/storefront-backend/internal/notify"
	"github.com/lumastore/storefront-backend/internal/orders"
	"github.com/lumastore/storefront-backend/internal/pricing"
	"github.com/lumastore/storefront-backend/internal/reconcile"
	"github.com/lumastore/storefront-backend/internal/settlement"
	"github.com/lumastore/storefront-backend/internal/wizard"
	"github.com/lumastore/storefront-backend/pkg/clientstate"
	"github.com/lumastore/storefront-backend/pkg/config"
	"github.com/lumastore/storefront-backend/pkg/db"
	"github.com/lumastore/storefront-backend/pkg/gateway"
	"github.com/lumastore/storefront-backend/pkg/logger"
	"github.com/lumastore/storefront-backend/pkg/metrics"
	"github.com/lumastore/storefront-backend/pkg/migrate"
	"github.com/lumastore/storefront-backend/pkg/platform"
	pkgpubsub "github.com/lumastore/storefront-backend/pkg/pubsub"
	"github.com/lumastore/storefront-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	paymentMetrics := metrics.NewPaymentMetrics(registry)

	cartStore, err := clientstate.NewStore(redisClient, "cart")
	if err != nil {
		logg.Error(context.Background(), "failed to create cart state store", err)
		os.Exit(1)
	}
	wizardStore, err := clientstate.NewStore(redisClient, "wizard")
	if err != nil {
		logg.Error(context.Background(), "failed to create wizard state store", err)
		os.Exit(1)
	}

	pricingService, err := pricing.NewService(pricing.ServiceParams{Config: cfg.Pricing})
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing service", err)
		os.Exit(1)
	}

	catalogRepo := catalog.NewRepository(dbClient.DB())

	contactsService, err := contacts.NewService(contacts.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create contacts service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:     orders.NewRepository(dbClient.DB()),
		Catalog:  catalogRepo,
		Contacts: contactsService,
		Pricing:  pricingService,
		TX:       dbClient,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cart.ServiceParams{
		Store:   cartStore,
		Catalog: catalogRepo,
		Pricing: pricingService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	gatewayClient, err := gateway.NewClient(cfg.Gateway, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create gateway client", err)
		os.Exit(1)
	}

	reconcileQueue, err := reconcile.NewQueue(reconcile.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile queue", err)
		os.Exit(1)
	}

	settlementParams := settlement.ServiceParams{
		Accounts:  settlement.NewRepository(dbClient.DB()),
		Orders:    ordersService,
		Gateway:   gatewayClient,
		Reconcile: reconcileQueue,
		Metrics:   paymentMetrics,
		Plan:      cfg.Platform,
		Logger:    logg,
	}

	// Square is optional: without credentials the storefront still sells
	// one-time products, it just cannot settle subscription orders.
	if strings.TrimSpace(cfg.Platform.SquareAccessToken) != "" {
		platformClient, err := platform.NewClient(context.Background(), cfg.Platform, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create square client", err)
			os.Exit(1)
		}
		settlementParams.Platform = platformClient
	}

	// Pub/Sub is optional the same way: no project id, no notification events.
	if strings.TrimSpace(cfg.GCP.ProjectID) != "" {
		pubsubClient, err := pkgpubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub client", err)
			}
		}()
		publisher, err := notify.NewPublisher(pubsubClient.NotificationPublisher(), logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create notification publisher", err)
			os.Exit(1)
		}
		settlementParams.Notify = publisher
	}

	settlementService, err := settlement.NewService(settlementParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	wizardService, err := wizard.NewService(wizard.ServiceParams{
		Store:    wizardStore,
		Cart:     cartService,
		Orders:   ordersService,
		Payments: settlementService,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create wizard service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			registry,
			cartService,
			wizardService,
			ordersService,
			settlementService,
		),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server shut down gracefully")
}
