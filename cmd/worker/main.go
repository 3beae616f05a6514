package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lumastore/storefront-backend/internal/catalog"
	"github.com/lumastore/storefront-backend/internal/contacts"
	"github.com/lumastore/storefront-backend/internal/orders"
	"github.com/lumastore/storefront-backend/internal/pricing"
	"github.com/lumastore/storefront-backend/internal/reconcile"
	"github.com/lumastore/storefront-backend/pkg/config"
	"github.com/lumastore/storefront-backend/pkg/db"
	"github.com/lumastore/storefront-backend/pkg/logger"
	"github.com/lumastore/storefront-backend/pkg/metrics"
	"github.com/lumastore/storefront-backend/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "reconcile-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "reconcile-worker"

	logg = logger.New(logger.Options{
		ServiceName: "reconcile-worker",
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

	pricingService, err := pricing.NewService(pricing.ServiceParams{Config: cfg.Pricing})
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing service", err)
		os.Exit(1)
	}

	contactsService, err := contacts.NewService(contacts.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create contacts service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:     orders.NewRepository(dbClient.DB()),
		Catalog:  catalog.NewRepository(dbClient.DB()),
		Contacts: contactsService,
		Pricing:  pricingService,
		TX:       dbClient,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	worker, err := reconcile.NewWorker(reconcile.WorkerParams{
		Repo:    reconcile.NewRepository(dbClient.DB()),
		Orders:  ordersService,
		Metrics: metrics.NewReconcileMetrics(registry),
		Config:  cfg.Reconcile,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile worker", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "reconcile-worker",
	})
	logg.Info(ctx, "starting reconcile worker")

	if err := worker.Run(ctx, cfg.Reconcile.PollInterval); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "reconcile worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "reconcile worker shutting down gracefully")
}
