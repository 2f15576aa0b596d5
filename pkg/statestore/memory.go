package statestore

import (
	"context"
	"strconv"
	"sync"
)

type memoryEntry struct {
	value   []byte
	version int64
}

// MemoryStore keeps state in process. Each call is atomic on its own, but a
// Get followed by a Set is not, which is exactly what the other backends offer.
type MemoryStore struct {
	name string

	mu      sync.Mutex
	entries map[string]memoryEntry
	// seq is global so an etag is never reused after a delete
	seq int64
}

func NewMemoryStore(name string) *MemoryStore {
	return &MemoryStore{
		name:    name,
		entries: make(map[string]memoryEntry),
	}
}

func (s *MemoryStore) Name() string { return s.name }

func (s *MemoryStore) Get(ctx context.Context, key string) (Item, bool, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, false, transportErr("get", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[namespaced(s.name, key)]
	if !ok {
		return Item{}, false, nil
	}

	return Item{
		Key:   key,
		Value: append([]byte(nil), entry.value...),
		ETag:  strconv.FormatInt(entry.version, 10),
	}, true, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return transportErr("set", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.entries[namespaced(s.name, key)] = memoryEntry{
		value:   append([]byte(nil), value...),
		version: s.seq,
	}

	return nil
}

func (s *MemoryStore) SetIfMatch(ctx context.Context, key string, value []byte, etag string) error {
	if err := ctx.Err(); err != nil {
		return transportErr("set", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := namespaced(s.name, key)
	entry, ok := s.entries[k]

	switch {
	case etag == "" && ok:
		return ErrETagMismatch
	case etag != "" && (!ok || strconv.FormatInt(entry.version, 10) != etag):
		return ErrETagMismatch
	}

	s.seq++
	s.entries[k] = memoryEntry{
		value:   append([]byte(nil), value...),
		version: s.seq,
	}

	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return transportErr("delete", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, namespaced(s.name, key))
	return nil
}

func (s *MemoryStore) Close() error { return nil }
