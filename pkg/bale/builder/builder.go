// Package builder orchestrates bundle builds: resolve sources, check
// staleness, run the filter pipeline, write outputs atomically, and
// stamp versions into the manifest. Independent bundles build in
// parallel over a worker pool; the cache is the only shared mutable
// resource and tolerates last-writer-wins access.
package builder

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/balebuild/bale/pkg/bale/logging"
	"github.com/balebuild/bale/pkg/bale/manifest"
	"github.com/balebuild/bale/pkg/bale/pipeline"
	"github.com/balebuild/bale/pkg/bale/resolver"
	"github.com/balebuild/bale/pkg/bale/types"
	"github.com/balebuild/bale/pkg/bale/updater"
	"github.com/balebuild/bale/pkg/bale/version"
)

// BuildError is a failure writing a bundle's output (an unwritable
// output directory and the like), as opposed to resolution or filter
// failures.
type BuildError struct {
	Bundle string
	Path   string
	Err    error
}

// Error returns the formatted error message.
func (e *BuildError) Error() string {
	return fmt.Sprintf("writing output for bundle %s (%s): %v", e.Bundle, e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *BuildError) Unwrap() error { return e.Err }

// Options configures one build pass.
type Options struct {
	// Force rebuilds bundles regardless of staleness.
	Force bool

	// FailFast stops scheduling new bundles after the first failure.
	// In-flight builds run to completion either way.
	FailFast bool

	// Workers is the parallel bundle build width. Zero means one per
	// CPU.
	Workers int
}

// Builder ties the resolver, updater, and pipeline together for one
// environment.
type Builder struct {
	env      *Environment
	resolver *resolver.Resolver
	pipeline *pipeline.Pipeline
	updater  *updater.Updater
	logger   *logging.Logger
}

// New returns a builder over the given environment.
func New(env *Environment) (*Builder, error) {
	if err := env.normalize(); err != nil {
		return nil, err
	}
	return &Builder{
		env: env,
		resolver: resolver.New(env.Set, resolver.Options{
			Fs:          env.Fs,
			Directory:   env.Directory,
			Debug:       env.Debug,
			AllowRemote: env.AllowRemote,
		}),
		pipeline: pipeline.New(pipeline.Options{
			Fs:       env.Fs,
			Store:    env.Store,
			Registry: env.Registry,
		}),
		updater: updater.New(updater.Options{
			Fs:            env.Fs,
			Directory:     env.Directory,
			Manifest:      env.Manifest,
			TrustManifest: env.TrustManifest,
			Registry:      env.Registry,
		}),
		logger: logging.Get("builder"),
	}, nil
}

// Build builds the named bundles, or every root bundle when names is
// empty. Container bundles expand to their children, which build
// independently. Each bundle's outcome is reported individually; one
// failure does not abort siblings unless FailFast is set.
func (b *Builder) Build(names []string, opts Options) (*Report, error) {
	targets, err := b.expandTargets(names)
	if err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(targets) {
		workers = len(targets)
	}
	if workers < 1 {
		workers = 1
	}

	report := &Report{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Results:   make([]Result, len(targets)),
	}
	b.logger.Info("build started", "run", report.ID, "bundles", len(targets), "workers", workers)

	var failed atomic.Bool
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				report.Results[i] = b.buildOne(targets[i], opts.Force)
				if report.Results[i].Err != nil {
					failed.Store(true)
				}
			}
		}()
	}
	for i := range targets {
		if opts.FailFast && failed.Load() {
			report.Results[i] = Result{Bundle: targets[i], Skipped: true}
			continue
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	report.Duration = time.Since(report.StartedAt)

	if !b.env.TrustManifest {
		if err := b.env.Manifest.Save(); err != nil {
			return report, err
		}
	}

	b.logger.Info("build finished", "run", report.ID,
		"built", report.Built(), "skipped", report.SkippedCount(), "failed", report.FailedCount(),
		"duration", report.Duration)
	return report, nil
}

// Check reports staleness for the named bundles without building.
func (b *Builder) Check(names []string) ([]Result, error) {
	targets, err := b.expandTargets(names)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(targets))
	for _, name := range targets {
		res := Result{Bundle: name}
		bundle, err := b.env.Set.Get(name)
		if err != nil {
			res.Err = err
			results = append(results, res)
			continue
		}
		res.Output = bundle.Output
		res.Extra = bundle.Extra

		// Manifest-trust mode must not touch sources: the machine
		// running the check may not have them.
		var sources []types.ResolvedSource
		if !b.env.TrustManifest {
			sources, err = b.resolver.ResolveBundle(bundle)
			if err != nil {
				res.Err = err
				results = append(results, res)
				continue
			}
		}
		stale, err := b.updater.NeedsRebuild(bundle, sources)
		if err != nil {
			res.Err = err
		}
		res.Stale = stale
		results = append(results, res)
	}
	return results, nil
}

// expandTargets turns requested names (or the root set) into concrete
// buildable bundles, flattening pure containers into their children.
func (b *Builder) expandTargets(names []string) ([]string, error) {
	if len(names) == 0 {
		names = b.env.Set.Roots()
	}

	var targets []string
	seen := make(map[string]bool)
	var expand func(name string, depth int) error
	expand = func(name string, depth int) error {
		if seen[name] {
			return nil
		}
		if depth > b.env.Set.Len() {
			return &resolver.Error{Bundle: name, Err: resolver.ErrCycle}
		}
		bundle, err := b.env.Set.Get(name)
		if err != nil {
			return err
		}
		if bundle.IsContainer() {
			for _, c := range bundle.Contents {
				if err := expand(c.Value, depth+1); err != nil {
					return err
				}
			}
			return nil
		}
		seen[name] = true
		targets = append(targets, name)
		return nil
	}
	for _, name := range names {
		if err := expand(name, 0); err != nil {
			return nil, err
		}
	}
	return targets, nil
}

// buildOne builds a single bundle end to end.
func (b *Builder) buildOne(name string, force bool) Result {
	start := time.Now()
	res := Result{Bundle: name}
	defer func() { res.Duration = time.Since(start) }()

	bundle, err := b.env.Set.Get(name)
	if err != nil {
		res.Err = err
		return res
	}
	res.Output = bundle.Output
	res.Extra = bundle.Extra

	// Under manifest trust the staleness answer never depends on
	// sources, so resolution (which stats files and expands globs) is
	// deferred until a build is actually forced.
	var sources []types.ResolvedSource
	if !b.env.TrustManifest || force {
		sources, err = b.resolver.ResolveBundle(bundle)
		if err != nil {
			res.Err = err
			return res
		}
	}

	if !force {
		stale, err := b.updater.NeedsRebuild(bundle, sources)
		if err != nil {
			res.Err = err
			return res
		}
		if !stale {
			if rec, ok := b.env.Manifest.Get(bundle.Output); ok {
				res.Version = rec.Version
			}
			res.Skipped = true
			b.logger.Debug("bundle fresh, skipping", "bundle", name)
			return res
		}
	}

	buildTime := time.Now()

	artifacts, err := b.pipeline.Run(bundle.Name, bundle.Output, sources)
	if err != nil {
		res.Err = err
		return res
	}

	for _, artifact := range artifacts {
		v := b.env.Versioner.Determine(artifact.Content, buildTime)
		outName := version.Expand(artifact.Name, v)
		path := outName
		if !filepath.IsAbs(path) && b.env.OutputDir != "" {
			path = filepath.Join(b.env.OutputDir, path)
		}
		if err := b.writeOutput(path, artifact.Content); err != nil {
			res.Err = &BuildError{Bundle: name, Path: path, Err: err}
			return res
		}
		res.Artifacts = append(res.Artifacts, path)
		res.Bytes += int64(len(artifact.Content))

		// The merged artifact stamps the manifest; per-source debug
		// artifacts are not version-tracked.
		if artifact.Source == "" {
			fp, err := updater.Fingerprint(b.env.Registry, bundle, sources)
			if err != nil {
				res.Err = err
				return res
			}
			res.Version = string(v)
			b.env.Manifest.Set(bundle.Output, manifest.Record{
				Version:     string(v),
				BuiltAt:     buildTime,
				Fingerprint: fp,
			})
		}
	}

	b.logger.Info("bundle built", "bundle", name, "artifacts", len(artifacts), "bytes", res.Bytes)
	return res
}

// writeOutput writes an artifact atomically: temp file in the target
// directory, then rename. Concurrent writers of the same path race
// cleanly instead of interleaving.
func (b *Builder) writeOutput(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := b.env.Fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := afero.TempFile(b.env.Fs, dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp output: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = b.env.Fs.Remove(tmpName)
		return fmt.Errorf("writing output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = b.env.Fs.Remove(tmpName)
		return fmt.Errorf("closing temp output: %w", err)
	}
	if err := b.env.Fs.Rename(tmpName, path); err != nil {
		_ = b.env.Fs.Remove(tmpName)
		return fmt.Errorf("renaming output: %w", err)
	}
	return nil
}
