package cache

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// FSStore is the default cache backend: a directory of blobs named by
// hex digest, sharded by the first two digest characters to keep
// directory fan-out manageable.
type FSStore struct {
	root string
	fs   afero.Fs
}

// FSOption configures an FSStore.
type FSOption func(*FSStore)

// WithFs overrides the filesystem, primarily for tests.
func WithFs(fs afero.Fs) FSOption {
	return func(s *FSStore) { s.fs = fs }
}

// OpenFS opens or creates a filesystem cache rooted at the given
// directory.
func OpenFS(root string, opts ...FSOption) (*FSStore, error) {
	s := &FSStore{root: root, fs: afero.NewOsFs()}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.fs.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return s, nil
}

// Get returns the blob for key, or ErrMiss if absent.
func (s *FSStore) Get(key Key) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, s.blobPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("reading cache blob %s: %w", key, err)
	}
	return data, nil
}

// Set stores the blob under key. The write goes to a temp file in the
// same directory and is renamed into place, so concurrent writers of
// the same key race cleanly (last rename wins, never a torn blob).
func (s *FSStore) Set(key Key, value []byte) error {
	path := s.blobPath(key)
	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating cache shard: %w", err)
	}

	tmp, err := afero.TempFile(s.fs, filepath.Dir(path), "blob-*")
	if err != nil {
		return fmt.Errorf("creating cache temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("writing cache blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("closing cache temp file: %w", err)
	}

	if err := s.fs.Rename(tmpName, path); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("renaming cache blob: %w", err)
	}
	return nil
}

// Close is a no-op for the filesystem store.
func (s *FSStore) Close() error { return nil }

// Purge removes every cached blob and returns the number of entries
// and bytes removed.
func (s *FSStore) Purge() (entries int, bytes int64, err error) {
	err = afero.Walk(s.fs, s.root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil || info.IsDir() {
			return nil
		}
		entries++
		bytes += info.Size()
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("walking cache directory: %w", err)
	}
	if err := s.fs.RemoveAll(s.root); err != nil {
		return 0, 0, fmt.Errorf("removing cache directory: %w", err)
	}
	if err := s.fs.MkdirAll(s.root, 0o755); err != nil {
		return 0, 0, fmt.Errorf("recreating cache directory: %w", err)
	}
	return entries, bytes, nil
}

// Stats returns the entry count and total size of the cache.
func (s *FSStore) Stats() (entries int, bytes int64, err error) {
	err = afero.Walk(s.fs, s.root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil || info.IsDir() {
			return nil
		}
		entries++
		bytes += info.Size()
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("walking cache directory: %w", err)
	}
	return entries, bytes, nil
}

// blobPath returns the sharded path for a key.
func (s *FSStore) blobPath(key Key) string {
	k := string(key)
	if len(k) < 2 {
		k = "00" + k
	}
	return filepath.Join(s.root, k[:2], k)
}
