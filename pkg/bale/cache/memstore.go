package cache

import "sync"

// MemStore is an in-memory cache backend, used in tests and for
// single-process builds that do not want a persistent cache.
type MemStore struct {
	mu    sync.RWMutex
	blobs map[Key][]byte
}

// NewMem returns an empty in-memory store.
func NewMem() *MemStore {
	return &MemStore{blobs: make(map[Key][]byte)}
}

// Get returns the value for key, or ErrMiss if absent.
func (s *MemStore) Get(key Key) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.blobs[key]
	if !ok {
		return nil, ErrMiss
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Set stores the value under key.
func (s *MemStore) Set(key Key, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	s.mu.Lock()
	s.blobs[key] = v
	s.mu.Unlock()
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemStore) Close() error { return nil }

// Len returns the number of stored entries.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

// NopStore is the disabled cache: every Get misses and every Set is
// discarded. Builds remain correct, only slower.
type NopStore struct{}

// NewNop returns the disabled cache.
func NewNop() NopStore { return NopStore{} }

// Get always returns ErrMiss.
func (NopStore) Get(Key) ([]byte, error) { return nil, ErrMiss }

// Set discards the value.
func (NopStore) Set(Key, []byte) error { return nil }

// Close is a no-op.
func (NopStore) Close() error { return nil }
