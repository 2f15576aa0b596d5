package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sakashimaa/go-event-shop/internal/catalog/migrations"
	"github.com/sakashimaa/go-event-shop/internal/catalog/repository"
	"github.com/sakashimaa/go-event-shop/internal/catalog/service"
	catalogHttp "github.com/sakashimaa/go-event-shop/internal/catalog/transport/http"
	"github.com/sakashimaa/go-event-shop/pkg/config"
	"github.com/sakashimaa/go-event-shop/pkg/db"
	"github.com/sakashimaa/go-event-shop/pkg/httpserver"
	"github.com/sakashimaa/go-event-shop/pkg/metrics"
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

	cfg := config.MustLoad("config/products.yaml")

	logger, err := config.NewLogger(config.LoggerConfig{
		Level:   cfg.Log.Level,
		Env:     cfg.Env,
		Service: "products",
	})
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	tp, err := utils.InitTracer(ctx, "product-service", cfg.Env, cfg.Tracing.Endpoint, cfg.Tracing.Enabled)
	if err != nil {
		logger.Fatal("error init tracer", zap.Error(err))
	}

	// schema is applied once at startup; the database may still be booting
	err = utils.WaitFor(ctx, logger, "catalog migrations", 10, func(context.Context) error {
		return db.Migrate(migrations.FS, ".", cfg.Postgres.URL)
	})
	if err != nil {
		logger.Fatal("error migrating catalog schema", zap.Error(err))
	}

	var pool *pgxpool.Pool
	err = utils.WaitFor(ctx, logger, "postgres", 10, func(ctx context.Context) error {
		pool, err = db.NewPostgresDB(ctx, cfg.Postgres.URL)
		return err
	})
	if err != nil {
		logger.Fatal("error creating new postgres DB", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})

	m := metrics.New("products")

	productRepository := repository.NewProductRepository(pool, logger)
	catalogService := service.NewCatalogService(productRepository, logger)
	cachedCatalogService := service.NewCachedCatalogService(catalogService, rdb, cfg.Redis.CacheTTL, logger)
	productHandler := catalogHttp.NewProductHandler(cachedCatalogService, cfg.HTTP.Timeout, logger)

	app := httpserver.New(cfg, "Product Service", m)
	catalogHttp.RegisterRoutes(app, productHandler)

	logger.Info("product service started!")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP product service listening", zap.String("port", cfg.HTTP.Port))
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

		pool.Close()

		if err := rdb.Close(); err != nil {
			logger.Error("error closing redis", zap.Error(err))
		}

		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Error("error stopping telemetry", zap.Error(err))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("product service stopped with error", zap.Error(err))
	}
}
