package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// JSONBackend is the default manifest backend: a single JSON file,
// rewritten atomically via write-temp-then-rename.
type JSONBackend struct {
	path string
	fs   afero.Fs
}

// JSONOption configures a JSONBackend.
type JSONOption func(*JSONBackend)

// WithFs overrides the filesystem, primarily for tests.
func WithFs(fs afero.Fs) JSONOption {
	return func(b *JSONBackend) { b.fs = fs }
}

// NewJSON returns a JSON-file backend at the given path.
func NewJSON(path string, opts ...JSONOption) *JSONBackend {
	b := &JSONBackend{path: path, fs: afero.NewOsFs()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Path returns the manifest file path.
func (b *JSONBackend) Path() string { return b.path }

// Load reads the mapping from the JSON file. A missing file loads as
// an empty mapping; a corrupt file is an Error for the caller to
// judge (fatal in manifest-trust mode, a warning otherwise).
func (b *JSONBackend) Load() (map[string]Record, error) {
	data, err := afero.ReadFile(b.fs, b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Record{}, nil
		}
		return nil, &Error{Path: b.path, Err: err}
	}

	var records map[string]Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &Error{Path: b.path, Err: fmt.Errorf("corrupt manifest: %w", err)}
	}
	return records, nil
}

// Save writes the mapping atomically: marshal, write to a temp file
// in the same directory, rename into place.
func (b *JSONBackend) Save(records map[string]Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return &Error{Path: b.path, Err: fmt.Errorf("marshaling manifest: %w", err)}
	}

	dir := filepath.Dir(b.path)
	if err := b.fs.MkdirAll(dir, 0o755); err != nil {
		return &Error{Path: b.path, Err: fmt.Errorf("creating manifest directory: %w", err)}
	}

	tmpPath := b.path + ".tmp"
	if err := afero.WriteFile(b.fs, tmpPath, data, 0o644); err != nil {
		return &Error{Path: b.path, Err: fmt.Errorf("writing temp manifest: %w", err)}
	}

	if err := b.fs.Rename(tmpPath, b.path); err != nil {
		_ = b.fs.Remove(tmpPath)
		return &Error{Path: b.path, Err: fmt.Errorf("renaming temp manifest: %w", err)}
	}
	return nil
}
