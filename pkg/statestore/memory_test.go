package statestore

import (
	"context"
	"errors"
	"testing"

	"github.com/sakashimaa/go-event-shop/pkg/domain"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_AbsentKeyIsNotAnError(t *testing.T) {
	store := NewMemoryStore("statestore")

	item, found, err := store.Get(context.Background(), "cart")
	require.NoError(t, err)
	require.False(t, found)
	require.Empty(t, item.Value)
}

func TestMemoryStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore("statestore")

	require.NoError(t, store.Set(ctx, "cart", []byte(`{"items":["widget"]}`)))

	item, found, err := store.Get(ctx, "cart")
	require.NoError(t, err)
	require.True(t, found)
	require.JSONEq(t, `{"items":["widget"]}`, string(item.Value))
	require.NotEmpty(t, item.ETag)

	require.NoError(t, store.Delete(ctx, "cart"))
	require.NoError(t, store.Delete(ctx, "cart"))

	_, found, err = store.Get(ctx, "cart")
	require.NoError(t, err)
	require.False(t, found)
}

func TestMemoryStore_NamesAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore("statestore")

	require.NoError(t, store.Set(ctx, "cart", []byte("a")))

	other := &MemoryStore{name: "other", entries: store.entries}
	_, found, err := other.Get(ctx, "cart")
	require.NoError(t, err)
	require.False(t, found)
}

func TestMemoryStore_SetIfMatch(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore("statestore")

	require.NoError(t, store.SetIfMatch(ctx, "cart", []byte("v1"), ""))
	require.ErrorIs(t, store.SetIfMatch(ctx, "cart", []byte("again"), ""), ErrETagMismatch)

	item, _, err := store.Get(ctx, "cart")
	require.NoError(t, err)

	require.NoError(t, store.SetIfMatch(ctx, "cart", []byte("v2"), item.ETag))
	err = store.SetIfMatch(ctx, "cart", []byte("stale"), item.ETag)
	require.ErrorIs(t, err, ErrETagMismatch)
	require.True(t, errors.Is(err, domain.ErrConflict))

	current, _, err := store.Get(ctx, "cart")
	require.NoError(t, err)
	require.Equal(t, "v2", string(current.Value))
}

func TestMemoryStore_ETagNotReusedAfterDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore("statestore")

	require.NoError(t, store.Set(ctx, "cart", []byte("v1")))
	stale, _, err := store.Get(ctx, "cart")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "cart"))
	require.NoError(t, store.Set(ctx, "cart", []byte("v1-again")))

	require.ErrorIs(t, store.SetIfMatch(ctx, "cart", []byte("v2"), stale.ETag), ErrETagMismatch)
}

func TestMemoryStore_CancelledContextIsTransportFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewMemoryStore("statestore")

	err := store.Set(ctx, "cart", []byte("v"))
	require.ErrorIs(t, err, domain.ErrTransport)
	require.ErrorIs(t, err, context.Canceled)
}
