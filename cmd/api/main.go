package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/evanrosales/shopsphere-backend/api/routes"
	"github.com/evanrosales/shopsphere-backend/internal/cart"
	"github.com/evanrosales/shopsphere-backend/internal/catalog"
	"github.com/evanrosales/shopsphere-backend/internal/checkout"
	"github.com/evanrosales/shopsphere-backend/internal/feed"
	"github.com/evanrosales/shopsphere-backend/internal/inventory"
	"github.com/evanrosales/shopsphere-backend/internal/orders"
	"github.com/evanrosales/shopsphere-backend/pkg/config"
	"github.com/evanrosales/shopsphere-backend/pkg/db"
	"github.com/evanrosales/shopsphere-backend/pkg/db/models"
	"github.com/evanrosales/shopsphere-backend/pkg/logger"
	"github.com/evanrosales/shopsphere-backend/pkg/metrics"
	"github.com/evanrosales/shopsphere-backend/pkg/migrate"
	"github.com/evanrosales/shopsphere-backend/pkg/outbox"
	"github.com/evanrosales/shopsphere-backend/pkg/redis"
)

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

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if cfg.DB.Driver == "sqlite" {
		if err := dbClient.DB().AutoMigrate(
			&models.Product{}, &models.ProductVariant{},
			&models.CartRecord{}, &models.CartItem{},
			&models.Order{}, &models.OrderLineItem{}, &models.OrderStatusEvent{},
			&models.OutboxEvent{},
			&models.Post{}, &models.PostComment{}, &models.PostLike{},
		); err != nil {
			logg.Error(context.Background(), "failed to auto-migrate sqlite schema", err)
			os.Exit(1)
		}
	}

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
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)
	orderMetrics := metrics.NewOrderMetrics(registry)

	ledger := inventory.NewLedger()
	events := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	catalogRepo := catalog.NewRepository(dbClient.DB())
	catalogService, err := catalog.NewService(catalogRepo, dbClient, ledger, cfg.Catalog.OwnerUUID())
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	cartRepo := cart.NewRepository(dbClient.DB())
	cartService, err := cart.NewService(cartRepo, catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	orderRepo := orders.NewRepository(dbClient.DB())
	orderService, err := orders.NewService(orderRepo, dbClient, ledger, events, orderMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(
		cartRepo, catalogRepo, orderRepo, dbClient, ledger,
		events, checkoutMetrics, logg, cfg.Checkout,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	feedService, err := feed.NewService(feed.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create feed service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, registry, routes.Services{
			Catalog:  catalogService,
			Cart:     cartService,
			Checkout: checkoutService,
			Orders:   orderService,
			Feed:     feedService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
