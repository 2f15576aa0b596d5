// Package aggregate implements whole-value read-modify-write of a keyed
// aggregate stored as JSON in a statestore.Store.
//
// In LastWriteWins mode an update is a plain Get, mutate, Set. Two concurrent
// updates that read the same value both write, and the later write silently
// discards the earlier one (lost update). Optimistic mode closes that window
// with etag-conditional writes and retries the whole read-modify-write on
// conflict; it needs a statestore.ConditionalStore.
package aggregate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sakashimaa/go-event-shop/pkg/domain"
	"github.com/sakashimaa/go-event-shop/pkg/statestore"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Mode string

const (
	LastWriteWins Mode = "last-write-wins"
	Optimistic    Mode = "optimistic"
)

// ErrNoChange returned from a mutate func skips the write.
var ErrNoChange = errors.New("aggregate unchanged")

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", LastWriteWins:
		return LastWriteWins, nil
	case Optimistic:
		return Optimistic, nil
	default:
		return "", fmt.Errorf("unknown consistency mode %q", s)
	}
}

type settings struct {
	mode        Mode
	maxAttempts int
	onConflict  func(key string)
}

type Option func(*settings)

func WithMode(mode Mode) Option {
	return func(s *settings) { s.mode = mode }
}

func WithMaxAttempts(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithConflictHook is called for every etag mismatch seen in Optimistic mode.
func WithConflictHook(fn func(key string)) Option {
	return func(s *settings) { s.onConflict = fn }
}

type Repository[T any] struct {
	store       statestore.Store
	conditional statestore.ConditionalStore
	key         string
	settings    settings
	tracer      trace.Tracer
}

func NewRepository[T any](store statestore.Store, key string, opts ...Option) (*Repository[T], error) {
	cfg := settings{
		mode:        LastWriteWins,
		maxAttempts: 5,
		onConflict:  func(string) {},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Repository[T]{
		store:    store,
		key:      key,
		settings: cfg,
		tracer:   otel.Tracer("pkg/aggregate"),
	}

	if cfg.mode == Optimistic {
		conditional, ok := store.(statestore.ConditionalStore)
		if !ok {
			return nil, fmt.Errorf("state store %q does not support conditional writes", store.Name())
		}
		r.conditional = conditional
	}

	return r, nil
}

func (r *Repository[T]) Key() string { return r.key }

func (r *Repository[T]) Mode() Mode { return r.settings.mode }

// Load returns the zero value and found=false when the key is absent.
func (r *Repository[T]) Load(ctx context.Context) (T, bool, error) {
	value, _, found, err := r.load(ctx)
	return value, found, err
}

// Update reads the aggregate, applies mutate and writes the result back.
func (r *Repository[T]) Update(ctx context.Context, mutate func(current T, found bool) (T, error)) (T, error) {
	ctx, span := r.tracer.Start(ctx, "Aggregate.Update")
	defer span.End()

	span.SetAttributes(
		attribute.String("aggregate.key", r.key),
		attribute.String("aggregate.mode", string(r.settings.mode)),
	)

	if r.settings.mode != Optimistic {
		current, _, found, err := r.load(ctx)
		if err != nil {
			return current, err
		}

		next, err := mutate(current, found)
		if err != nil {
			if errors.Is(err, ErrNoChange) {
				return current, nil
			}
			return current, err
		}

		return next, r.save(ctx, next, func(data []byte) error {
			return r.store.Set(ctx, r.key, data)
		})
	}

	var zero T
	for attempt := 1; attempt <= r.settings.maxAttempts; attempt++ {
		current, etag, found, err := r.load(ctx)
		if err != nil {
			return current, err
		}

		next, err := mutate(current, found)
		if err != nil {
			if errors.Is(err, ErrNoChange) {
				return current, nil
			}
			return current, err
		}

		err = r.save(ctx, next, func(data []byte) error {
			return r.conditional.SetIfMatch(ctx, r.key, data, etag)
		})
		if err == nil {
			span.SetAttributes(attribute.Int("aggregate.attempts", attempt))
			return next, nil
		}

		if !errors.Is(err, statestore.ErrETagMismatch) {
			return current, err
		}

		r.settings.onConflict(r.key)
	}

	return zero, fmt.Errorf("update %q gave up after %d attempts: %w", r.key, r.settings.maxAttempts, statestore.ErrETagMismatch)
}

func (r *Repository[T]) Delete(ctx context.Context) error {
	return r.store.Delete(ctx, r.key)
}

func (r *Repository[T]) load(ctx context.Context) (T, string, bool, error) {
	var value T

	item, found, err := r.store.Get(ctx, r.key)
	if err != nil || !found {
		return value, "", false, err
	}

	if err := json.Unmarshal(item.Value, &value); err != nil {
		return value, "", false, fmt.Errorf("%w: decode %q: %w", domain.ErrStorage, r.key, err)
	}

	return value, item.ETag, true, nil
}

func (r *Repository[T]) save(ctx context.Context, value T, write func(data []byte) error) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: encode %q: %w", domain.ErrStorage, r.key, err)
	}

	return write(data)
}
