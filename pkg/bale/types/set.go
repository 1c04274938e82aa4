package types

import (
	"errors"
	"fmt"
	"sort"
)

// ErrBundleExists indicates a duplicate bundle name in a Set.
var ErrBundleExists = errors.New("bundle already registered")

// ErrBundleNotFound indicates a bundle reference that names no bundle.
var ErrBundleNotFound = errors.New("bundle not found")

// Set is a flat arena of bundles keyed by name. Nested bundles are
// stored alongside their parents and referenced by name, so walking a
// bundle tree is a visited-set traversal over names rather than a
// recursive pointer chase.
type Set struct {
	bundles map[string]*Bundle
	order   []string
}

// NewSet returns an empty bundle set.
func NewSet() *Set {
	return &Set{bundles: make(map[string]*Bundle)}
}

// Add registers a bundle under its name.
func (s *Set) Add(b *Bundle) error {
	if b.Name == "" {
		return errors.New("bundle name cannot be empty")
	}
	if _, ok := s.bundles[b.Name]; ok {
		return fmt.Errorf("%w: %s", ErrBundleExists, b.Name)
	}
	s.bundles[b.Name] = b
	s.order = append(s.order, b.Name)
	return nil
}

// Get returns the bundle with the given name.
func (s *Set) Get(name string) (*Bundle, error) {
	b, ok := s.bundles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBundleNotFound, name)
	}
	return b, nil
}

// Has reports whether a bundle with the given name is registered.
func (s *Set) Has(name string) bool {
	_, ok := s.bundles[name]
	return ok
}

// Names returns the bundle names in registration order.
func (s *Set) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Roots returns the names of top-level bundles: those not referenced
// as nested contents by any other bundle, sorted alphabetically.
// These are the bundles a full build iterates over.
func (s *Set) Roots() []string {
	nested := make(map[string]bool)
	for _, name := range s.order {
		for _, c := range s.bundles[name].Contents {
			if c.Kind == ContentBundle {
				nested[c.Value] = true
			}
		}
	}
	var roots []string
	for _, name := range s.order {
		if !nested[name] {
			roots = append(roots, name)
		}
	}
	sort.Strings(roots)
	return roots
}

// Len returns the number of registered bundles.
func (s *Set) Len() int {
	return len(s.order)
}
