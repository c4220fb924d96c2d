package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/threadleaf/threadleaf-backend/api/routes"
	"github.com/threadleaf/threadleaf-backend/internal/address"
	"github.com/threadleaf/threadleaf-backend/internal/cart"
	"github.com/threadleaf/threadleaf-backend/internal/catalog"
	"github.com/threadleaf/threadleaf-backend/internal/coupons"
	"github.com/threadleaf/threadleaf-backend/internal/inventory"
	"github.com/threadleaf/threadleaf-backend/internal/orders"
	"github.com/threadleaf/threadleaf-backend/internal/returns"
	"github.com/threadleaf/threadleaf-backend/internal/shipping"
	"github.com/threadleaf/threadleaf-backend/internal/wishlist"
	"github.com/threadleaf/threadleaf-backend/pkg/config"
	"github.com/threadleaf/threadleaf-backend/pkg/db"
	"github.com/threadleaf/threadleaf-backend/pkg/logger"
	"github.com/threadleaf/threadleaf-backend/pkg/metrics"
	"github.com/threadleaf/threadleaf-backend/pkg/migrate"
	"github.com/threadleaf/threadleaf-backend/pkg/redis"
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

	conn := dbClient.DB()
	catalogRepo := catalog.NewRepository(conn)
	addressRepo := address.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)
	ledger := inventory.NewLedger()

	catalogSvc, err := catalog.NewService(catalogRepo, dbClient)
	fatalOn(logg, "failed to create catalog service", err)

	couponSvc, err := coupons.NewService(coupons.NewRepository(conn))
	fatalOn(logg, "failed to create coupon service", err)

	addressSvc, err := address.NewService(addressRepo, dbClient)
	fatalOn(logg, "failed to create address service", err)

	cartSvc, err := cart.NewService(cart.NewRepository(conn), catalogRepo)
	fatalOn(logg, "failed to create cart service", err)

	wishlistSvc, err := wishlist.NewService(wishlist.NewRepository(conn), catalogRepo)
	fatalOn(logg, "failed to create wishlist service", err)

	ordersSvc, err := orders.NewService(ordersRepo, dbClient, catalogRepo, addressRepo, couponSvc, ledger)
	fatalOn(logg, "failed to create orders service", err)

	returnsSvc, err := returns.NewService(returns.NewRepository(conn), dbClient, ordersRepo, catalogRepo, ledger, cfg.Returns.WindowDays)
	fatalOn(logg, "failed to create returns service", err)

	var shippingSvc shipping.Service
	if cfg.Shipping.Email != "" && cfg.Shipping.Password != "" {
		carrier, err := shipping.NewClient(cfg.Shipping)
		fatalOn(logg, "failed to create carrier client", err)

		shippingSvc, err = shipping.NewService(shipping.NewRepository(conn), carrier, ordersRepo, addressRepo)
		fatalOn(logg, "failed to create shipping service", err)
	} else {
		logg.Warn(context.Background(), "carrier credentials not configured, shipment booking disabled")
	}

	httpMetrics := metrics.NewHTTPMetrics()

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
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, httpMetrics, routes.Services{
			Catalog:  catalogSvc,
			Coupons:  couponSvc,
			Orders:   ordersSvc,
			Returns:  returnsSvc,
			Cart:     cartSvc,
			Wishlist: wishlistSvc,
			Address:  addressSvc,
			Shipping: shippingSvc,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func fatalOn(logg *logger.Logger, msg string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}
