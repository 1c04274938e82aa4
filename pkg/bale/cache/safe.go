package cache

import (
	"errors"

	"github.com/balebuild/bale/pkg/bale/logging"
)

// safeStore wraps a backend so that backend failures never abort a
// build: a failed Get degrades to a miss and a failed Set is dropped,
// both logged at warn level. ErrMiss passes through untouched.
type safeStore struct {
	inner  Store
	logger *logging.Logger
}

// Safe wraps a store with the degrade-on-error policy required at the
// cache boundary. A nil store yields the disabled cache.
func Safe(inner Store) Store {
	if inner == nil {
		inner = NewNop()
	}
	return &safeStore{inner: inner, logger: logging.Get("cache")}
}

func (s *safeStore) Get(key Key) ([]byte, error) {
	data, err := s.inner.Get(key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			s.logger.Warn("cache read failed, treating as miss", "key", key, "error", err)
		}
		return nil, ErrMiss
	}
	return data, nil
}

func (s *safeStore) Set(key Key, value []byte) error {
	if err := s.inner.Set(key, value); err != nil {
		s.logger.Warn("cache write failed, entry dropped", "key", key, "error", err)
	}
	return nil
}

func (s *safeStore) Close() error {
	return s.inner.Close()
}
