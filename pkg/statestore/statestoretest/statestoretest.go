// Package statestoretest provides statestore wrappers that force specific
// interleavings and failures in tests.
package statestoretest

import (
	"context"
	"sync"

	"github.com/sakashimaa/go-event-shop/pkg/statestore"
)

// BarrierStore holds the first n Get calls until all n have read, so n
// concurrent read-modify-write sequences observe the same prior value.
type BarrierStore struct {
	statestore.ConditionalStore

	mu        sync.Mutex
	remaining int
	release   chan struct{}
}

func NewBarrierStore(inner statestore.ConditionalStore, n int) *BarrierStore {
	return &BarrierStore{
		ConditionalStore: inner,
		remaining:        n,
		release:          make(chan struct{}),
	}
}

func (b *BarrierStore) Get(ctx context.Context, key string) (statestore.Item, bool, error) {
	item, found, err := b.ConditionalStore.Get(ctx, key)

	b.mu.Lock()
	if b.remaining == 0 {
		b.mu.Unlock()
		return item, found, err
	}
	b.remaining--
	if b.remaining == 0 {
		close(b.release)
	}
	b.mu.Unlock()

	select {
	case <-b.release:
	case <-ctx.Done():
	}

	return item, found, err
}

// FaultyStore returns the configured error for an operation instead of
// calling the wrapped store.
type FaultyStore struct {
	statestore.ConditionalStore

	mu        sync.Mutex
	GetErr    error
	SetErr    error
	DeleteErr error
	Deletes   int
}

func NewFaultyStore(inner statestore.ConditionalStore) *FaultyStore {
	return &FaultyStore{ConditionalStore: inner}
}

func (f *FaultyStore) Get(ctx context.Context, key string) (statestore.Item, bool, error) {
	f.mu.Lock()
	err := f.GetErr
	f.mu.Unlock()
	if err != nil {
		return statestore.Item{}, false, err
	}
	return f.ConditionalStore.Get(ctx, key)
}

func (f *FaultyStore) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	err := f.SetErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.ConditionalStore.Set(ctx, key, value)
}

func (f *FaultyStore) SetIfMatch(ctx context.Context, key string, value []byte, etag string) error {
	f.mu.Lock()
	err := f.SetErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.ConditionalStore.SetIfMatch(ctx, key, value, etag)
}

func (f *FaultyStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	f.Deletes++
	err := f.DeleteErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.ConditionalStore.Delete(ctx, key)
}

func (f *FaultyStore) DeleteCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Deletes
}
