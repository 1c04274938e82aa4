package cache

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore is a Badger DB-backed cache backend. It suits watch-mode
// sessions and large caches where millions of small blob files would
// strain the filesystem.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens or creates a badger-backed cache at the given path.
func OpenBadger(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger cache: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Get returns the value for key, or ErrMiss if absent.
func (s *BadgerStore) Get(key Key) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("reading badger cache: %w", err)
	}
	return out, nil
}

// Set stores the value under key.
func (s *BadgerStore) Set(key Key, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("writing badger cache: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// Purge drops all cached entries.
func (s *BadgerStore) Purge() error {
	if err := s.db.DropAll(); err != nil {
		return fmt.Errorf("purging badger cache: %w", err)
	}
	return nil
}
