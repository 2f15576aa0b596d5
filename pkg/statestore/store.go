// Package statestore is the key-value State Store Client shared by the shop
// services. A Store is scoped to a named store instance; keys written through
// it are namespaced as "<store>||<key>" inside the backend.
//
// The base contract is deliberately minimal: Get, unconditional Set and
// idempotent Delete. Nothing here serializes concurrent read-modify-write
// sequences. Backends that can also perform compare-and-swap implement
// ConditionalStore; callers opt into it explicitly.
package statestore

import (
	"context"
	"fmt"

	"github.com/sakashimaa/go-event-shop/pkg/domain"
)

var ErrETagMismatch = fmt.Errorf("etag mismatch: %w", domain.ErrConflict)

// Item is a stored value together with the etag of the write that produced it.
type Item struct {
	Key   string
	Value []byte
	ETag  string
}

type Store interface {
	Name() string
	// Get reports found=false with a nil error when the key is absent.
	Get(ctx context.Context, key string) (item Item, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete succeeds whether or not the key exists.
	Delete(ctx context.Context, key string) error
	Close() error
}

type ConditionalStore interface {
	Store
	// SetIfMatch writes value only when the stored etag equals etag. An empty
	// etag means the key must be absent. Any other outcome is ErrETagMismatch.
	SetIfMatch(ctx context.Context, key string, value []byte, etag string) error
}

func namespaced(store, key string) string {
	return store + "||" + key
}

func transportErr(op, key string, err error) error {
	return fmt.Errorf("%w: %s %q: %w", domain.ErrTransport, op, key, err)
}
