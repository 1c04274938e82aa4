// Package cache provides the content-addressed blob store used to
// memoize filter invocations. Keys are deterministic digests computed
// by the caller; the store itself is a dumb key/value blob store and
// is safe for concurrent last-writer-wins access by multiple build
// processes.
package cache

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Key is a content-addressed cache key: the hex digest of the inputs
// that produced a value.
type Key string

// ErrMiss indicates that a key is not present in the cache.
var ErrMiss = errors.New("cache miss")

// Store is the cache backend interface. Implementations must tolerate
// concurrent use; races on Set resolve last-writer-wins.
type Store interface {
	// Get returns the value for key, or ErrMiss if absent.
	Get(key Key) ([]byte, error)

	// Set stores the value under key. Entries are immutable once
	// written; overwriting with identical content is harmless.
	Set(key Key, value []byte) error

	// Close releases backend resources.
	Close() error
}

// KeyOf computes a cache key from an ordered list of byte parts.
// Each part is length-prefixed before hashing so that distinct part
// boundaries never collide ("ab","c" vs "a","bc").
func KeyOf(parts ...[]byte) Key {
	h := xxhash.New()
	var n [8]byte
	for _, part := range parts {
		binary.BigEndian.PutUint64(n[:], uint64(len(part)))
		_, _ = h.Write(n[:])
		_, _ = h.Write(part)
	}
	return Key(fmt.Sprintf("%016x", h.Sum64()))
}

// KeyOfStrings is KeyOf over string parts.
func KeyOfStrings(parts ...string) Key {
	bs := make([][]byte, len(parts))
	for i, p := range parts {
		bs[i] = []byte(p)
	}
	return KeyOf(bs...)
}
