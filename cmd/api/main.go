package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/anaghvyas/trystyle-backend/api/routes"
	"github.com/anaghvyas/trystyle-backend/internal/catalog"
	"github.com/anaghvyas/trystyle-backend/internal/coupons"
	"github.com/anaghvyas/trystyle-backend/internal/inventory"
	"github.com/anaghvyas/trystyle-backend/internal/notifications"
	"github.com/anaghvyas/trystyle-backend/internal/orders"
	"github.com/anaghvyas/trystyle-backend/internal/payments"
	"github.com/anaghvyas/trystyle-backend/internal/pricing"
	"github.com/anaghvyas/trystyle-backend/internal/reservations"
	"github.com/anaghvyas/trystyle-backend/pkg/config"
	"github.com/anaghvyas/trystyle-backend/pkg/db"
	"github.com/anaghvyas/trystyle-backend/pkg/logger"
	"github.com/anaghvyas/trystyle-backend/pkg/migrate"
	"github.com/anaghvyas/trystyle-backend/pkg/razorpay"
	"github.com/anaghvyas/trystyle-backend/pkg/redis"
	"github.com/anaghvyas/trystyle-backend/pkg/stripe"
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

	razorpayClient, err := razorpay.NewClient(context.Background(), cfg.Razorpay, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create razorpay client", err)
		os.Exit(1)
	}
	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe client", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	catalogRepo := catalog.NewRepository(conn)
	inventoryRepo := inventory.NewRepository(conn)
	reservationsRepo := reservations.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)
	couponsRepo := coupons.NewRepository(conn)
	paymentsRepo := payments.NewRepository(conn)
	notificationsRepo := notifications.NewRepository(conn)

	inventoryService, err := inventory.NewService(inventoryRepo, dbClient, cfg.Checkout.LowStockThreshold)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	reservationsService, err := reservations.NewService(reservationsRepo, inventoryRepo, dbClient, logg, cfg.Checkout.ReservationTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create reservation service", err)
		os.Exit(1)
	}

	pricingEngine, err := pricing.NewEngine(catalogRepo, cfg.Pricing)
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing engine", err)
		os.Exit(1)
	}

	couponsService, err := coupons.NewService(couponsRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create coupon service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notificationsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification service", err)
		os.Exit(1)
	}

	returnWindow := time.Duration(cfg.Checkout.ReturnWindowDays) * 24 * time.Hour
	ordersService, err := orders.NewService(
		ordersRepo,
		inventoryRepo,
		reservationsService,
		pricingEngine,
		couponsService,
		notificationsService,
		dbClient,
		logg,
		returnWindow,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(
		paymentsRepo,
		ordersRepo,
		ordersService,
		razorpayClient,
		payments.NewStripeGateway(stripeClient),
		dbClient,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
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

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			reservationsService,
			ordersService,
			couponsService,
			pricingEngine,
			inventoryService,
			notificationsService,
			paymentsService,
		),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		logg.Info(ctx, "shutting down api server")
		graceCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logg.Error(ctx, "error during server shutdown", err)
		}
	}()

	logg.Info(ctx, "starting api server")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}
