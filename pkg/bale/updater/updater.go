// Package updater decides whether a bundle's output is stale relative
// to its sources, extra dependencies, and filter configuration. In
// manifest-trust mode it never touches the filesystem and trusts the
// last recorded version unconditionally.
package updater

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/balebuild/bale/pkg/bale/cache"
	"github.com/balebuild/bale/pkg/bale/filter"
	"github.com/balebuild/bale/pkg/bale/logging"
	"github.com/balebuild/bale/pkg/bale/manifest"
	"github.com/balebuild/bale/pkg/bale/types"
)

// ErrNoRecord indicates manifest-trust mode was asked about a bundle
// the manifest has never seen. There is nothing to trust and nothing
// to build from; fatal in that mode.
var ErrNoRecord = errors.New("no manifest record for bundle")

// Options configures an Updater.
type Options struct {
	// Fs is the filesystem stat calls go through. Defaults to the OS
	// filesystem.
	Fs afero.Fs

	// Directory is the root relative dependency paths resolve under.
	Directory string

	// Manifest records the last build per output.
	Manifest *manifest.Manifest

	// TrustManifest enables manifest-trust mode: staleness is never
	// recomputed and source files are never statted. For production
	// deployments on machines without source access.
	TrustManifest bool

	// Registry resolves filter names for fingerprinting. Defaults to
	// the built-in set.
	Registry *filter.Registry
}

// Updater performs staleness checks. Safe for concurrent use.
type Updater struct {
	opts   Options
	logger *logging.Logger
}

// New returns an updater with the given options.
func New(opts Options) *Updater {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Registry == nil {
		opts.Registry = filter.Default()
	}
	return &Updater{opts: opts, logger: logging.Get("updater")}
}

// NeedsRebuild reports whether the bundle must be rebuilt. It never
// fails open: when freshness cannot be determined (a source missing,
// a stat error), the answer is true so the failure surfaces at build
// time instead of silently serving stale output.
func (u *Updater) NeedsRebuild(b *types.Bundle, sources []types.ResolvedSource) (bool, error) {
	if u.opts.TrustManifest {
		if _, ok := u.opts.Manifest.Get(b.Output); !ok {
			return false, fmt.Errorf("%w: %s", ErrNoRecord, b.Name)
		}
		return false, nil
	}

	rec, ok := u.opts.Manifest.Get(b.Output)
	if !ok {
		return true, nil
	}

	fp, err := Fingerprint(u.opts.Registry, b, sources)
	if err != nil {
		return true, err
	}
	if fp != rec.Fingerprint {
		u.logger.Debug("configuration changed", "bundle", b.Name)
		return true, nil
	}

	for _, src := range sources {
		if src.Remote {
			continue // URLs carry no mtime; remote content is re-fetched at build time
		}
		if u.newerThanBuild(src.Path, rec) {
			return true, nil
		}
	}

	for _, dep := range b.Depends {
		path := dep
		if !filepath.IsAbs(path) && u.opts.Directory != "" {
			path = filepath.Join(u.opts.Directory, path)
		}
		if u.newerThanBuild(path, rec) {
			return true, nil
		}
	}

	return false, nil
}

// newerThanBuild reports whether a path was modified after the
// recorded build, treating missing or unreadable paths as modified.
func (u *Updater) newerThanBuild(path string, rec manifest.Record) bool {
	info, err := u.opts.Fs.Stat(path)
	if err != nil {
		u.logger.Warn("cannot stat source, forcing rebuild", "path", path, "error", err)
		return true
	}
	return info.ModTime().After(rec.BuiltAt)
}

// Fingerprint digests a bundle's build-relevant configuration: the
// output template, debug state, and every resolved source's path and
// filter chain including each filter's configuration fingerprint. A
// changed option on any filter changes the fingerprint even when the
// source bytes are unchanged.
func Fingerprint(registry *filter.Registry, b *types.Bundle, sources []types.ResolvedSource) (string, error) {
	parts := []string{"output=" + b.Output, "debug=" + b.Debug.String()}
	for _, src := range sources {
		parts = append(parts, "src="+src.Path)
		chain, err := registry.Chain(src.Filters)
		if err != nil {
			return "", err
		}
		for _, f := range chain {
			parts = append(parts, "filter="+f.Name()+"/"+f.Fingerprint())
		}
	}
	return string(cache.KeyOfStrings(parts...)), nil
}
