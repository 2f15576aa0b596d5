package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sakashimaa/go-event-shop/internal/catalog/domain"
	"github.com/sakashimaa/go-event-shop/pkg/mylogger"
	"go.uber.org/zap"
)

const lookupKeyPrefix = "catalog:product:"

// cachedCatalogService is a read-through redis cache for Lookup. Cache
// failures are logged and fall through to the wrapped service.
type cachedCatalogService struct {
	next        CatalogService
	redisClient *redis.Client
	cacheTTL    time.Duration
	logger      *zap.Logger
}

func NewCachedCatalogService(next CatalogService, redisClient *redis.Client, cacheTTL time.Duration, logger *zap.Logger) CatalogService {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}

	return &cachedCatalogService{
		next:        next,
		redisClient: redisClient,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

func (s *cachedCatalogService) Lookup(ctx context.Context, name string) (*domain.Product, error) {
	key := lookupKeyPrefix + name

	val, err := s.redisClient.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var product domain.Product
		if err := json.Unmarshal(val, &product); err == nil {
			return &product, nil
		}
		mylogger.Warn(ctx, s.logger, "Dropping undecodable cache entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		mylogger.Warn(ctx, s.logger, "Cache read failed", zap.String("key", key), zap.Error(err))
	}

	product, err := s.next.Lookup(ctx, name)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(product); err == nil {
		if err := s.redisClient.Set(ctx, key, data, s.cacheTTL).Err(); err != nil {
			mylogger.Warn(ctx, s.logger, "Cache write failed", zap.String("key", key), zap.Error(err))
		}
	}

	return product, nil
}

func (s *cachedCatalogService) List(ctx context.Context) ([]domain.Product, error) {
	return s.next.List(ctx)
}

func (s *cachedCatalogService) Add(ctx context.Context, product *domain.Product) (int64, error) {
	id, err := s.next.Add(ctx, product)
	if err != nil {
		return 0, err
	}

	s.invalidate(ctx, lookupKeyPrefix+product.Name)
	return id, nil
}

func (s *cachedCatalogService) ClearAll(ctx context.Context) error {
	if err := s.next.ClearAll(ctx); err != nil {
		return err
	}

	var keys []string
	iter := s.redisClient.Scan(ctx, 0, lookupKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		mylogger.Warn(ctx, s.logger, "Cache scan failed", zap.Error(err))
		return nil
	}

	s.invalidate(ctx, keys...)
	return nil
}

func (s *cachedCatalogService) invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}

	if err := s.redisClient.Del(ctx, keys...).Err(); err != nil {
		mylogger.Warn(ctx, s.logger, "Cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
