package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sakashimaa/go-event-shop/internal/orders/domain"
	"github.com/sakashimaa/go-event-shop/internal/orders/service"
	"github.com/sakashimaa/go-event-shop/internal/orders/transport/events"
	ordersHttp "github.com/sakashimaa/go-event-shop/internal/orders/transport/http"
	"github.com/sakashimaa/go-event-shop/pkg/aggregate"
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

	cfg := config.MustLoad("config/orders.yaml")

	logger, err := config.NewLogger(config.LoggerConfig{
		Level:   cfg.Log.Level,
		Env:     cfg.Env,
		Service: "orders",
	})
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	tp, err := utils.InitTracer(ctx, "orders-service", cfg.Env, cfg.Tracing.Endpoint, cfg.Tracing.Enabled)
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

	bus, err := pubsub.Open(ctx, cfg.PubSub, "orders", logger)
	if err != nil {
		logger.Fatal("error opening pubsub", zap.Error(err))
	}

	m := metrics.New("orders")

	currentOrders, err := aggregate.NewRepository[domain.CurrentOrders](
		store,
		contracts.CurrentOrdersKey,
		aggregate.WithMode(mode),
		aggregate.WithMaxAttempts(cfg.Consistency.MaxAttempts),
		aggregate.WithConflictHook(m.Conflict),
	)
	if err != nil {
		logger.Fatal("error creating orders repository", zap.Error(err))
	}

	orderService := service.NewOrderService(currentOrders, service.Options{
		IdempotentOrders: cfg.Consistency.IdempotentOrders,
	}, m, logger)

	consumer := events.NewConsumer(orderService, logger)
	if err := consumer.Register(bus); err != nil {
		logger.Fatal("error subscribing", zap.Error(err))
	}

	orderHandler := ordersHttp.NewOrderHandler(orderService, cfg.HTTP.Timeout, logger)

	app := httpserver.New(cfg, "Orders Service", m)
	ordersHttp.RegisterRoutes(app, orderHandler)

	logger.Info("orders service started!",
		zap.String("mode", string(mode)),
		zap.Bool("idempotent_orders", cfg.Consistency.IdempotentOrders),
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP orders service listening", zap.String("port", cfg.HTTP.Port))
		return app.Listen(cfg.HTTP.Port)
	})

	g.Go(func() error {
		return bus.Run(gCtx)
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error("error shutting down HTTP server", zap.Error(err))
		}

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
		logger.Error("orders service stopped with error", zap.Error(err))
	}
}
