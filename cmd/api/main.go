package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jmcampos/minimart-backend/api/routes"
	authsvc "github.com/jmcampos/minimart-backend/internal/auth"
	cartsvc "github.com/jmcampos/minimart-backend/internal/cart"
	checkoutsvc "github.com/jmcampos/minimart-backend/internal/checkout"
	ordersvc "github.com/jmcampos/minimart-backend/internal/orders"
	productsvc "github.com/jmcampos/minimart-backend/internal/products"
	usersvc "github.com/jmcampos/minimart-backend/internal/users"
	"github.com/jmcampos/minimart-backend/pkg/config"
	"github.com/jmcampos/minimart-backend/pkg/db"
	"github.com/jmcampos/minimart-backend/pkg/logger"
	"github.com/jmcampos/minimart-backend/pkg/metrics"
	"github.com/jmcampos/minimart-backend/pkg/migrate"
	"github.com/jmcampos/minimart-backend/pkg/outbox"
	"github.com/jmcampos/minimart-backend/pkg/redis"
	"github.com/jmcampos/minimart-backend/pkg/session"
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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	userRepo := usersvc.NewRepository(dbClient.DB())
	productRepo := productsvc.NewRepository(dbClient.DB())
	mirrorRepo := cartsvc.NewMirrorRepository(dbClient.DB())
	orderRepo := ordersvc.NewRepository(dbClient.DB())
	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	productService, err := productsvc.NewService(productRepo, logg)
	exitOnErr(logg, "product service", err)

	cartService, err := cartsvc.NewService(mirrorRepo, productRepo, sessionManager, logg)
	exitOnErr(logg, "cart service", err)

	checkoutService, err := checkoutsvc.NewService(
		orderRepo, productRepo, mirrorRepo, sessionManager, outboxSvc, dbClient.DB(), logg)
	exitOnErr(logg, "checkout service", err)

	orderService, err := ordersvc.NewService(orderRepo)
	exitOnErr(logg, "order service", err)

	authService, err := authsvc.NewService(userRepo, sessionManager, cartService, cfg, logg)
	exitOnErr(logg, "auth service", err)

	userService, err := usersvc.NewService(userRepo, orderRepo, cfg.Password, logg)
	exitOnErr(logg, "user service", err)

	httpMetrics := metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)

	router := routes.NewRouter(routes.RouterParams{
		Config:      cfg,
		Logger:      logg,
		DB:          dbClient,
		Redis:       redisClient,
		Sessions:    sessionManager,
		HTTPMetrics: httpMetrics,
		Auth:        authService,
		Products:    productService,
		Cart:        cartService,
		Checkout:    checkoutService,
		Orders:      orderService,
		Users:       userService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "api server shut down gracefully")
}

func exitOnErr(logg *logger.Logger, what string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+what, err)
	os.Exit(1)
}
