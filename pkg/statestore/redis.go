package statestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Values live in a hash {data, version}. Versions come from a per-store
// counter so an etag is never reused after a delete.
var (
	setScript = redis.NewScript(`
local v = redis.call('INCR', KEYS[2])
redis.call('HSET', KEYS[1], 'data', ARGV[1], 'version', v)
return v
`)

	setIfMatchScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'version')
if ARGV[2] == '' then
	if cur then return 0 end
elseif cur ~= ARGV[2] then
	return 0
end
local v = redis.call('INCR', KEYS[2])
redis.call('HSET', KEYS[1], 'data', ARGV[1], 'version', v)
return 1
`)
)

type RedisStore struct {
	name   string
	client *redis.Client
	tracer trace.Tracer
}

func NewRedisStore(client *redis.Client, name string) *RedisStore {
	return &RedisStore{
		name:   name,
		client: client,
		tracer: otel.Tracer("statestore/redis"),
	}
}

func (s *RedisStore) Name() string { return s.name }

func (s *RedisStore) seqKey() string {
	return namespaced(s.name, "__etag_seq")
}

func (s *RedisStore) Get(ctx context.Context, key string) (Item, bool, error) {
	ctx, span := s.tracer.Start(ctx, "RedisStore.Get")
	defer span.End()

	span.SetAttributes(attribute.String("state.key", key))

	vals, err := s.client.HMGet(ctx, namespaced(s.name, key), "data", "version").Result()
	if err != nil {
		span.RecordError(err)
		return Item{}, false, transportErr("get", key, err)
	}

	if len(vals) != 2 || vals[0] == nil {
		return Item{}, false, nil
	}

	data, ok := vals[0].(string)
	if !ok {
		return Item{}, false, transportErr("get", key, fmt.Errorf("unexpected data type %T", vals[0]))
	}

	version, _ := vals[1].(string)

	return Item{Key: key, Value: []byte(data), ETag: version}, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	ctx, span := s.tracer.Start(ctx, "RedisStore.Set")
	defer span.End()

	span.SetAttributes(attribute.String("state.key", key))

	keys := []string{namespaced(s.name, key), s.seqKey()}
	if err := setScript.Run(ctx, s.client, keys, value).Err(); err != nil {
		span.RecordError(err)
		return transportErr("set", key, err)
	}

	return nil
}

func (s *RedisStore) SetIfMatch(ctx context.Context, key string, value []byte, etag string) error {
	ctx, span := s.tracer.Start(ctx, "RedisStore.SetIfMatch")
	defer span.End()

	span.SetAttributes(
		attribute.String("state.key", key),
		attribute.String("state.etag", etag),
	)

	keys := []string{namespaced(s.name, key), s.seqKey()}
	applied, err := setIfMatchScript.Run(ctx, s.client, keys, value, etag).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		span.RecordError(err)
		return transportErr("set", key, err)
	}

	if applied != 1 {
		return ErrETagMismatch
	}

	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	ctx, span := s.tracer.Start(ctx, "RedisStore.Delete")
	defer span.End()

	span.SetAttributes(attribute.String("state.key", key))

	if err := s.client.Del(ctx, namespaced(s.name, key)).Err(); err != nil {
		span.RecordError(err)
		return transportErr("delete", key, err)
	}

	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
