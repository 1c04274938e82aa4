// Package manifest persists the last published version per bundle
// output. Production deployments read it instead of touching source
// files; builds rewrite it atomically after every success.
package manifest

import (
	"fmt"
	"sync"
	"time"
)

// Record is the persisted state of one bundle output's last build.
type Record struct {
	// Version is the last published version identifier.
	Version string `json:"version"`

	// BuiltAt is when the output was last built.
	BuiltAt time.Time `json:"built_at"`

	// Fingerprint digests the bundle's filter chain and configuration
	// at build time, so configuration changes invalidate outputs with
	// unchanged sources.
	Fingerprint string `json:"fingerprint,omitempty"`
}

// Backend loads and saves the output-to-record mapping. Save must be
// atomic: a crash mid-write never leaves a corrupt mapping observable.
type Backend interface {
	Load() (map[string]Record, error)
	Save(records map[string]Record) error
}

// Error is a manifest failure. It is fatal in manifest-trust mode and
// ignorable-with-warning otherwise; callers decide via errors.As.
type Error struct {
	Path string
	Err  error
}

// Error returns the formatted error message.
func (e *Error) Error() string {
	return fmt.Sprintf("manifest %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Manifest is an in-memory view over a Backend, safe for concurrent
// use by parallel bundle builds.
type Manifest struct {
	backend Backend
	mu      sync.RWMutex
	records map[string]Record
}

// New returns a manifest over the given backend, with nothing loaded.
func New(backend Backend) *Manifest {
	return &Manifest{
		backend: backend,
		records: make(map[string]Record),
	}
}

// Load replaces the in-memory records with the backend's contents.
// A missing store loads as empty, not as an error.
func (m *Manifest) Load() error {
	records, err := m.backend.Load()
	if err != nil {
		return err
	}
	if records == nil {
		records = make(map[string]Record)
	}
	m.mu.Lock()
	m.records = records
	m.mu.Unlock()
	return nil
}

// Get returns the record for an output name.
func (m *Manifest) Get(output string) (Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[output]
	return rec, ok
}

// Set stores the record for an output name in memory. Call Save to
// persist.
func (m *Manifest) Set(output string, rec Record) {
	m.mu.Lock()
	m.records[output] = rec
	m.mu.Unlock()
}

// Records returns a copy of the current mapping.
func (m *Manifest) Records() map[string]Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Record, len(m.records))
	for k, v := range m.records {
		out[k] = v
	}
	return out
}

// Save persists the current mapping through the backend.
func (m *Manifest) Save() error {
	return m.backend.Save(m.Records())
}
