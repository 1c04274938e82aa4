package cache

import (
	"errors"
	"testing"
)

func TestBadgerStore(t *testing.T) {
	s, err := OpenBadger(t.TempDir())
	if err != nil {
		t.Fatalf("OpenBadger() error = %v", err)
	}
	defer func() { _ = s.Close() }()

	storeContract(t, s)
}

func TestBadgerStorePurge(t *testing.T) {
	s, err := OpenBadger(t.TempDir())
	if err != nil {
		t.Fatalf("OpenBadger() error = %v", err)
	}
	defer func() { _ = s.Close() }()

	key := KeyOfStrings("k")
	if err := s.Set(key, []byte("v")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Purge(); err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	if _, err := s.Get(key); !errors.Is(err, ErrMiss) {
		t.Errorf("Get() after Purge error = %v, want ErrMiss", err)
	}
}
