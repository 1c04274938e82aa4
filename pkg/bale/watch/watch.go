// Package watch provides the long-running watch mode: it subscribes
// to filesystem change notifications over the source tree, debounces
// bursts of events, and rebuilds the affected bundles. A failed build
// is reported and watching continues.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/fsnotify/fsnotify"

	"github.com/balebuild/bale/pkg/bale/builder"
	"github.com/balebuild/bale/pkg/bale/logging"
	"github.com/balebuild/bale/pkg/bale/resolver"
	"github.com/balebuild/bale/pkg/bale/types"
)

// DefaultDebounce is the quiet window after the last event before a
// rebuild fires. Editors and compilers emit event bursts; one rebuild
// per burst is enough.
const DefaultDebounce = 250 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	// Debounce is the quiet window before rebuilding. Zero uses
	// DefaultDebounce.
	Debounce time.Duration

	// Build is passed through to every triggered build pass.
	Build builder.Options

	// OnReport, when set, receives the report of every build pass.
	OnReport func(*builder.Report)
}

// Watcher drives rebuild-on-change over an environment's source tree.
type Watcher struct {
	env     *builder.Environment
	builder *builder.Builder
	opts    Options

	fsw    *fsnotify.Watcher
	mu     sync.Mutex
	paths  map[string]bool
	logger *logging.Logger
}

// New returns a watcher for the environment's source directory.
func New(env *builder.Environment, b *builder.Builder, opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		env:     env,
		builder: b,
		opts:    opts,
		fsw:     fsw,
		paths:   make(map[string]bool),
		logger:  logging.Get("watch"),
	}, nil
}

// Run watches until the context is cancelled. It adds watches over the
// source tree, then loops: collect events, wait for the debounce
// window, rebuild affected bundles.
func (w *Watcher) Run(ctx context.Context) error {
	root := w.env.Directory
	if root == "" {
		root = "."
	}
	if err := w.watchTree(root); err != nil {
		return err
	}
	defer func() { _ = w.fsw.Close() }()

	var (
		pending = make(map[string]bool)
		timer   *time.Timer
		fire    <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.handleEvent(event) {
				pending[event.Name] = true
				if timer == nil {
					timer = time.NewTimer(w.opts.Debounce)
				} else {
					timer.Reset(w.opts.Debounce)
				}
				fire = timer.C
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)

		case <-fire:
			changed := make([]string, 0, len(pending))
			for path := range pending {
				changed = append(changed, path)
			}
			pending = make(map[string]bool)
			fire = nil
			w.rebuild(changed)
		}
	}
}

// watchTree adds watches for root and every directory under it,
// walking with fastwalk and skipping symlinks to avoid loops.
func (w *Watcher) watchTree(root string) error {
	conf := fastwalk.Config{Follow: false}
	return fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip entries with errors
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if d.IsDir() {
			return w.addWatch(path)
		}
		return nil
	})
}

// addWatch adds a single directory to the watch list.
func (w *Watcher) addWatch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.paths[path] {
		return nil
	}
	if err := w.fsw.Add(path); err != nil {
		w.logger.Warn("failed to add watch", "path", path, "error", err)
		return nil
	}
	w.paths[path] = true
	return nil
}

// handleEvent maintains directory watches and reports whether the
// event should trigger a rebuild.
func (w *Watcher) handleEvent(event fsnotify.Event) bool {
	switch {
	case event.Op&fsnotify.Create != 0:
		if info, err := os.Lstat(event.Name); err == nil && info.IsDir() {
			_ = w.watchTree(event.Name)
			return false
		}
		return true
	case event.Op&fsnotify.Write != 0:
		return true
	case event.Op&fsnotify.Remove != 0, event.Op&fsnotify.Rename != 0:
		w.mu.Lock()
		if w.paths[event.Name] {
			_ = w.fsw.Remove(event.Name)
			delete(w.paths, event.Name)
		}
		w.mu.Unlock()
		return true
	default:
		return false
	}
}

// rebuild builds the bundles affected by the changed paths. Failures
// are logged; the watch loop never dies over a broken build.
func (w *Watcher) rebuild(changed []string) {
	affected := w.affectedBundles(changed)
	if len(affected) == 0 {
		return
	}
	w.logger.Info("change detected", "paths", len(changed), "bundles", affected)

	report, err := w.builder.Build(affected, w.opts.Build)
	if err != nil {
		w.logger.Error("build pass failed", "error", err)
		return
	}
	for _, res := range report.Results {
		if res.Err != nil {
			w.logger.Error("bundle build failed", "bundle", res.Bundle, "error", res.Err)
		}
	}
	if w.opts.OnReport != nil {
		w.opts.OnReport(report)
	}
}

// affectedBundles maps changed paths to the bundles that consume them:
// a resolved source, a declared extra dependency, or a glob whose
// pattern matches the new path.
func (w *Watcher) affectedBundles(changed []string) []string {
	res := resolver.New(w.env.Set, resolver.Options{
		Fs:          w.env.Fs,
		Directory:   w.env.Directory,
		Debug:       w.env.Debug,
		AllowRemote: w.env.AllowRemote,
	})

	var affected []string
	for _, name := range w.env.Set.Roots() {
		b, err := w.env.Set.Get(name)
		if err != nil {
			continue
		}
		if w.bundleTouches(res, b, changed) {
			affected = append(affected, name)
		}
	}
	return affected
}

// bundleTouches reports whether any changed path feeds the bundle.
func (w *Watcher) bundleTouches(res *resolver.Resolver, b *types.Bundle, changed []string) bool {
	sources, err := res.ResolveBundle(b)
	if err != nil {
		// A change can break resolution (a deleted glob dir); rebuild
		// so the error surfaces through the build report.
		return true
	}

	srcPaths := make(map[string]bool, len(sources))
	for _, src := range sources {
		if !src.Remote {
			srcPaths[src.Path] = true
		}
	}
	deps := make(map[string]bool, len(b.Depends))
	for _, dep := range b.Depends {
		if !filepath.IsAbs(dep) && w.env.Directory != "" {
			dep = filepath.Join(w.env.Directory, dep)
		}
		deps[dep] = true
	}

	for _, path := range changed {
		if srcPaths[path] || deps[path] {
			return true
		}
		if w.globMatches(b, path) {
			return true
		}
	}
	return false
}

// globMatches reports whether a new path would match any glob in the
// bundle tree, so created files trigger the bundles that would pick
// them up.
func (w *Watcher) globMatches(b *types.Bundle, path string) bool {
	for _, c := range b.Contents {
		switch c.Kind {
		case types.ContentGlob:
			pattern := c.Value
			if !filepath.IsAbs(pattern) && w.env.Directory != "" {
				pattern = filepath.Join(w.env.Directory, pattern)
			}
			if resolver.MatchGlob(pattern, path) {
				return true
			}
		case types.ContentBundle:
			if child, err := w.env.Set.Get(c.Value); err == nil {
				if w.globMatches(child, path) {
					return true
				}
			}
		}
	}
	return false
}
