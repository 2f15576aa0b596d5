package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sakashimaa/go-event-shop/internal/cart/client"
	"github.com/sakashimaa/go-event-shop/internal/cart/service"
	cartHttp "github.com/sakashimaa/go-event-shop/internal/cart/transport/http"
	"github.com/sakashimaa/go-event-shop/pkg/aggregate"
	"github.com/sakashimaa/go-event-shop/pkg/concurrency"
	"github.com/sakashimaa/go-event-shop/pkg/config"
	"github.com/sakashimaa/go-event-shop/pkg/contracts"
	"github.com/sakashimaa/go-event-shop/pkg/httpserver"
	"github.com/sakashimaa/go-event-shop/pkg/metrics"
	"github.com/sakashimaa/go-event-shop/pkg/pubsub"
	"github.com/sakashimaa/go-event-shop/pkg/statestore"
	"github.com/sakashimaa/go-event-shop/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env loaded: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad("config/cart.yaml")

	logger, err := config.NewLogger(config.LoggerConfig{
		Level:   cfg.Log.Level,
		Env:     cfg.Env,
		Service: "cart",
	})
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	tp, err := utils.InitTracer(ctx, "cart-service", cfg.Env, cfg.Tracing.Endpoint, cfg.Tracing.Enabled)
	if err != nil {
		logger.Fatal("error init tracer", zap.Error(err))
	}

	mode, err := aggregate.ParseMode(cfg.Consistency.Mode)
	if err != nil {
		logger.Fatal("invalid consistency mode", zap.Error(err))
	}

	store, err := statestore.Open(ctx, cfg.StateStore, logger)
	if err != nil {
		logger.Fatal("error opening state store", zap.Error(err))
	}

	bus, err := pubsub.Open(ctx, cfg.PubSub, "cart", logger)
	if err != nil {
		logger.Fatal("error opening pubsub", zap.Error(err))
	}

	m := metrics.New("cart")

	carts, err := aggregate.NewRepository[contracts.CartDto](
		store,
		contracts.CartKey,
		aggregate.WithMode(mode),
		aggregate.WithMaxAttempts(cfg.Consistency.MaxAttempts),
		aggregate.WithConflictHook(m.Conflict),
	)
	if err != nil {
		logger.Fatal("error creating cart repository", zap.Error(err))
	}

	pool := concurrency.NewWorkerPool(concurrency.PoolConfig{
		Name:        "cart-notifier",
		MaxWorkers:  cfg.Notifier.Workers,
		MaxCapacity: cfg.Notifier.Capacity,
		IdleTimeout: time.Minute,
		NonBlocking: true,
	}, logger)
	notifier := service.NewPoolNotifier(pool, bus, cfg.HTTP.Timeout, m, logger)

	catalog := client.NewCatalogClient(cfg.Services.ProductsURL, cfg.HTTP.Timeout, logger)
	cartService := service.NewCartService(catalog, carts, bus, notifier, m, logger)
	cartHandler := cartHttp.NewCartHandler(cartService, cfg.HTTP.Timeout, logger)

	app := httpserver.New(cfg, "Cart Service", m)
	cartHttp.RegisterRoutes(app, cartHandler)

	logger.Info("cart service started!",
		zap.String("mode", string(mode)),
		zap.String("state_store", cfg.StateStore.Backend),
		zap.String("pubsub", cfg.PubSub.Backend),
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP cart service listening", zap.String("port", cfg.HTTP.Port))
		return app.Listen(cfg.HTTP.Port)
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error("error shutting down HTTP server", zap.Error(err))
		}

		notifier.Close()

		if err := bus.Close(); err != nil {
			logger.Error("error closing pubsub", zap.Error(err))
		}

		if err := store.Close(); err != nil {
			logger.Error("error closing state store", zap.Error(err))
		}

		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Error("error stopping telemetry", zap.Error(err))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("cart service stopped with error", zap.Error(err))
	}
}
