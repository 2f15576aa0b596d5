package statestore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sakashimaa/go-event-shop/pkg/config"
	"github.com/sakashimaa/go-event-shop/pkg/db"
	"github.com/sakashimaa/go-event-shop/pkg/utils"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendMemory   = "memory"
)

// Open connects the backend selected by cfg, waiting for it to become reachable.
func Open(ctx context.Context, cfg config.StateStore, logger *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

		err := utils.WaitFor(ctx, logger, "redis state store", 10, func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect redis state store: %w", err)
		}

		return NewRedisStore(client, cfg.Name), nil
	case BackendPostgres:
		var store *PostgresStore

		err := utils.WaitFor(ctx, logger, "postgres state store", 10, func(ctx context.Context) error {
			pool, err := db.NewPostgresDB(ctx, cfg.PostgresURL, db.WithMaxConns(4))
			if err != nil {
				return err
			}

			store = NewPostgresStore(pool, cfg.Name)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("connect postgres state store: %w", err)
		}

		if err := store.Init(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}

		return store, nil
	case BackendMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, fmt.Errorf("connect mongo state store: %w", err)
		}

		err = utils.WaitFor(ctx, logger, "mongo state store", 10, func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		})
		if err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("connect mongo state store: %w", err)
		}

		return NewMongoStore(client, cfg.MongoDatabase, cfg.Name), nil
	case BackendMemory:
		return NewMemoryStore(cfg.Name), nil
	default:
		return nil, fmt.Errorf("unknown state store backend %q", cfg.Backend)
	}
}
