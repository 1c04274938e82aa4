// Package resolver flattens bundle trees into ordered, deduplicated
// lists of concrete sources. It expands globs deterministically,
// applies filter inheritance and debug-mode overrides, and detects
// malformed bundle graphs (cycles, empty globs, missing files).
package resolver

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/balebuild/bale/pkg/bale/types"
)

// Sentinel causes carried inside a resolution Error.
var (
	// ErrCycle indicates a bundle transitively contains itself.
	ErrCycle = errors.New("bundle cycle detected")

	// ErrEmptyGlob indicates a glob matched no files and the bundle is
	// not marked optional.
	ErrEmptyGlob = errors.New("glob matched no files")

	// ErrMissingFile indicates an explicitly listed source does not exist.
	ErrMissingFile = errors.New("source file not found")

	// ErrRemoteForbidden indicates an external URL was referenced while
	// remote sources are disabled.
	ErrRemoteForbidden = errors.New("remote sources are disabled")

	// ErrFilterOrder indicates sibling sources declare the same output
	// filters in conflicting orders. This is a configuration bug, not
	// something the pipeline reconciles silently.
	ErrFilterOrder = errors.New("conflicting filter order across sources")
)

// Error is a resolution failure: a bad bundle graph surfaced with the
// bundle and content entry it was found in.
type Error struct {
	Bundle string
	Value  string
	Err    error
}

// Error returns the formatted error message.
func (e *Error) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("resolving bundle %s: %v", e.Bundle, e.Err)
	}
	return fmt.Sprintf("resolving bundle %s (%s): %v", e.Bundle, e.Value, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Options configures a Resolver.
type Options struct {
	// Fs is the filesystem sources are resolved against.
	// Defaults to the OS filesystem.
	Fs afero.Fs

	// Directory is the root all relative source paths resolve under.
	Directory string

	// Debug is the global debug default, used when no bundle on the
	// path to a source carries an explicit setting.
	Debug bool

	// AllowRemote permits external URL contents. When false, a URL
	// entry is a resolution error.
	AllowRemote bool
}

// Resolver expands bundles from a flat bundle set into resolved
// sources. It holds no per-resolution state and is safe for
// concurrent use.
type Resolver struct {
	set  *types.Set
	opts Options
}

// New returns a resolver over the given bundle set.
func New(set *types.Set, opts Options) *Resolver {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	return &Resolver{set: set, opts: opts}
}

// Resolve flattens the named bundle into an ordered, deduplicated list
// of resolved sources.
func (r *Resolver) Resolve(name string) ([]types.ResolvedSource, error) {
	b, err := r.set.Get(name)
	if err != nil {
		return nil, &Error{Bundle: name, Err: err}
	}
	return r.ResolveBundle(b)
}

// ResolveBundle flattens a bundle into resolved sources.
func (r *Resolver) ResolveBundle(b *types.Bundle) ([]types.ResolvedSource, error) {
	w := &walker{
		resolver: r,
		visiting: make(map[string]bool),
		seen:     make(map[string]bool),
	}
	if err := w.walk(b, nil, r.opts.Debug); err != nil {
		return nil, err
	}
	if err := checkFilterOrder(b.Name, w.sources); err != nil {
		return nil, err
	}
	return w.sources, nil
}

// walker carries the state of one resolution pass.
type walker struct {
	resolver *Resolver
	visiting map[string]bool // names on the current walk path, for cycle detection
	seen     map[string]bool // (path, chain) dedup keys
	sources  []types.ResolvedSource
}

// walk descends into a bundle, appending resolved sources in order.
func (w *walker) walk(b *types.Bundle, inherited []string, parentDebug bool) error {
	if w.visiting[b.Name] {
		return &Error{Bundle: b.Name, Err: ErrCycle}
	}
	w.visiting[b.Name] = true
	defer delete(w.visiting, b.Name)

	filters := effectiveFilters(b, inherited)
	debug := b.Debug.Resolve(parentDebug)

	for _, c := range b.Contents {
		switch c.Kind {
		case types.ContentFile:
			path := w.resolver.abs(c.Value)
			exists, err := afero.Exists(w.resolver.opts.Fs, path)
			if err != nil {
				return &Error{Bundle: b.Name, Value: c.Value, Err: err}
			}
			if !exists {
				return &Error{Bundle: b.Name, Value: c.Value, Err: ErrMissingFile}
			}
			w.add(types.ResolvedSource{Path: path, Filters: filters, Debug: debug})

		case types.ContentGlob:
			matches, err := expandGlob(w.resolver.opts.Fs, w.resolver.abs(c.Value))
			if err != nil {
				return &Error{Bundle: b.Name, Value: c.Value, Err: err}
			}
			if len(matches) == 0 && !b.Optional {
				return &Error{Bundle: b.Name, Value: c.Value, Err: ErrEmptyGlob}
			}
			for _, m := range matches {
				w.add(types.ResolvedSource{Path: m, Filters: filters, Debug: debug})
			}

		case types.ContentURL:
			if !w.resolver.opts.AllowRemote {
				return &Error{Bundle: b.Name, Value: c.Value, Err: ErrRemoteForbidden}
			}
			w.add(types.ResolvedSource{Path: c.Value, Remote: true, Filters: filters, Debug: debug})

		case types.ContentBundle:
			child, err := w.resolver.set.Get(c.Value)
			if err != nil {
				return &Error{Bundle: b.Name, Value: c.Value, Err: err}
			}
			if err := w.walk(child, filters, debug); err != nil {
				return err
			}
		}
	}
	return nil
}

// add appends a source unless its (path, chain) pair was seen before.
// First occurrence position wins.
func (w *walker) add(src types.ResolvedSource) {
	key := src.ChainKey()
	if w.seen[key] {
		return
	}
	w.seen[key] = true
	w.sources = append(w.sources, src)
}

// abs resolves a source path against the configured directory.
func (r *Resolver) abs(path string) string {
	if filepath.IsAbs(path) || r.opts.Directory == "" {
		return path
	}
	return filepath.Join(r.opts.Directory, path)
}

// effectiveFilters computes a bundle's filter chain: inherited filters
// prepend before the bundle's own, unless the bundle overrides.
func effectiveFilters(b *types.Bundle, inherited []string) []string {
	if b.OverrideFilters {
		return append([]string(nil), b.Filters...)
	}
	out := make([]string, 0, len(inherited)+len(b.Filters))
	out = append(out, inherited...)
	out = append(out, b.Filters...)
	return out
}

// checkFilterOrder rejects bundle graphs whose sibling sources declare
// the same filters in conflicting relative orders. The pipeline's
// output stage unions chains in first-seen order; a conflicting order
// is a configuration bug surfaced here rather than reconciled.
func checkFilterOrder(bundle string, sources []types.ResolvedSource) error {
	before := make(map[string]map[string]bool)
	for _, src := range sources {
		for i := 0; i < len(src.Filters); i++ {
			for j := i + 1; j < len(src.Filters); j++ {
				a, b := src.Filters[i], src.Filters[j]
				if a == b {
					continue
				}
				if before[b] != nil && before[b][a] {
					return &Error{
						Bundle: bundle,
						Value:  fmt.Sprintf("%s vs %s", a, b),
						Err:    ErrFilterOrder,
					}
				}
				if before[a] == nil {
					before[a] = make(map[string]bool)
				}
				before[a][b] = true
			}
		}
	}
	return nil
}
