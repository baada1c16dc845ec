package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	httpmetrics "novaReco/app/echo-server/metrics"
	"novaReco/app/echo-server/router"
	"novaReco/business/interaction"
	"novaReco/business/popularity"
	"novaReco/business/precompute"
	"novaReco/business/product"
	"novaReco/business/recommend"
	"novaReco/internal/middleware"
	redisRepo "novaReco/internal/repository/redis"
	"novaReco/internal/rest"
	"novaReco/internal/supervisor"
	"novaReco/internal/supervisor/services"
	"novaReco/pkg/config"
	redisdb "novaReco/pkg/database/redis"
	"novaReco/pkg/logger"
	"novaReco/pkg/metrics"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.App.Environment)
	defer logger.Sync()
	logger.Info("Starting "+cfg.App.Name, "version", cfg.App.Version, "store", cfg.Store.Driver)

	metrics.Init()
	httpmetrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(cfg)
	if err != nil {
		logger.Fatal("Failed to open store", "error", err)
	}
	defer store.close()

	if cfg.Analytics.Sink == "redis" {
		client, err := redisdb.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			// analytics is best effort; serve without it
			logger.Warn("Redis unavailable, recommendation analytics disabled", "error", err)
		} else {
			store.analytics = redisRepo.NewAnalyticsStream(client, redisRepo.StreamConfig{
				StreamKey:       cfg.Analytics.StreamKey,
				MaxLen:          cfg.Analytics.StreamMaxLen,
				BreakerFailures: cfg.Analytics.BreakerFailures,
				BreakerTimeout:  cfg.Analytics.BreakerOpenAfter,
			})
			store.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
			store.closers = append(store.closers, func() {
				if err := redisdb.CloseRedisClient(client); err != nil {
					logger.Error("Failed to close redis", "error", err)
				}
			})
		}
	}

	// Init service
	productService := product.NewProductService(store.products)
	interactionService := interaction.NewInteractionService(store.events, store.profiles, productService)
	recommendService := recommend.NewRecommendService(store.edges, store.products, store.profiles, store.events, store.analytics, recommend.Config{
		DefaultLimit:     cfg.Engine.DefaultLimit,
		AnalyticsTimeout: cfg.Analytics.WriteTimeout,
	})
	engine := precompute.NewEngine(store.products, store.events, store.edges, cfg.Engine.Workers)
	runner := precompute.NewRunner(engine)
	calculator := popularity.NewCalculator(store.events, store.products)

	// Init handler
	recommendationHandler := rest.NewRecommendationHandler(recommendService, productService, cfg.Server.RequestTimeout)
	productHandler := rest.NewProductHandler(productService, cfg.Server.RequestTimeout)
	eventHandler := rest.NewEventHandler(interactionService, cfg.Server.RequestTimeout)
	adminHandler := rest.NewAdminHandler(runner, engine, calculator, cfg.Engine.PopularityWindowDays, 0)
	healthHandler := rest.NewHealthHandler(store.checks)

	// Init echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler

	e.Use(echomiddleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(httpmetrics.Middleware())
	e.Use(echomiddleware.BodyLimit("1M"))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	router.SetHealthRoutes(e, healthHandler)

	api := e.Group("/api/v1")
	router.SetRecommendationRoutes(api, recommendationHandler)
	router.SetupProductRoutes(api, productHandler)
	router.SetEventRoutes(api, eventHandler)
	router.SetAdminRoutes(api, adminHandler)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	tree := supervisor.NewTree(supervisor.TreeConfig{})
	tree.AddAPI(services.NewHTTPServerService(server, 10*time.Second))
	tree.AddJob(services.NewPeriodicService("precompute", func(ctx context.Context, shop string) error {
		_, err := runner.Run(ctx, shop)
		return err
	}, store.products, services.PeriodicConfig{
		Interval:     cfg.Engine.PrecomputeInterval,
		RunOnStartup: cfg.Engine.RunOnStartup,
		Shops:        cfg.Engine.Shops,
	}))
	tree.AddJob(services.NewPeriodicService("popularity", func(ctx context.Context, shop string) error {
		_, err := calculator.Recompute(ctx, shop, cfg.Engine.PopularityWindowDays)
		return err
	}, store.products, services.PeriodicConfig{
		Interval:     cfg.Engine.PopularityInterval,
		RunOnStartup: cfg.Engine.RunOnStartup,
		Shops:        cfg.Engine.Shops,
	}))

	logger.Info("Server starting", "address", server.Addr)
	done := tree.ServeBackground(ctx)

	<-ctx.Done()
	logger.Info("Shutting down server...")

	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Supervisor stopped with error", "error", err)
	}

	runner.Close()
	recommendService.Wait()

	logger.Info("Server stopped")
}
