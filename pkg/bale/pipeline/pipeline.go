// Package pipeline applies filter chains to resolved sources across
// the four ordered stages: open, input, concat, output. Input, concat,
// and output invocations are cache-checked first, so unchanged inputs
// never re-run a filter. The open stage is I/O, not a pure transform,
// and always runs.
package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/balebuild/bale/pkg/bale/cache"
	"github.com/balebuild/bale/pkg/bale/filter"
	"github.com/balebuild/bale/pkg/bale/logging"
	"github.com/balebuild/bale/pkg/bale/types"
)

// Artifact is one output produced by a bundle build. Production
// builds yield a single merged artifact; debug builds yield one
// unmerged artifact per source.
type Artifact struct {
	// Name is the output name for this artifact, derived from the
	// bundle's output template.
	Name string

	// Content is the final bytes.
	Content []byte

	// Source is the originating source path for debug artifacts,
	// empty for merged output.
	Source string
}

// Options configures a Pipeline.
type Options struct {
	// Fs is the filesystem sources are read from. Defaults to the OS
	// filesystem.
	Fs afero.Fs

	// Store memoizes filter invocations. A nil store disables caching.
	Store cache.Store

	// Registry resolves filter names. Defaults to the built-in set.
	Registry *filter.Registry
}

// Pipeline transforms resolved sources into output artifacts. It is
// stateless across runs and safe for concurrent use.
type Pipeline struct {
	fs       afero.Fs
	store    cache.Store
	registry *filter.Registry
	remote   *filter.RemoteFilter
	logger   *logging.Logger
}

// New returns a pipeline with the given options.
func New(opts Options) *Pipeline {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Registry == nil {
		opts.Registry = filter.Default()
	}
	return &Pipeline{
		fs:       opts.Fs,
		store:    cache.Safe(opts.Store),
		registry: opts.Registry,
		remote:   filter.NewRemote(nil),
		logger:   logging.Get("pipeline"),
	}
}

// Run processes the resolved sources of one bundle into artifacts.
// Debug sources are compiled individually and emitted unmerged;
// production sources flow through all four stages into one merged
// artifact named by the output template.
func (p *Pipeline) Run(bundle, output string, sources []types.ResolvedSource) ([]Artifact, error) {
	var artifacts []Artifact
	var merged []types.ResolvedSource

	for _, src := range sources {
		if !src.Debug {
			merged = append(merged, src)
			continue
		}
		content, err := p.processSource(bundle, src, true)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, Artifact{
			Name:    debugArtifactName(output, src.Path),
			Content: content,
			Source:  src.Path,
		})
	}

	if len(merged) == 0 {
		return artifacts, nil
	}

	content, err := p.processMerged(bundle, merged)
	if err != nil {
		return nil, err
	}
	artifacts = append(artifacts, Artifact{Name: output, Content: content})
	return artifacts, nil
}

// processMerged runs the full four-stage pipeline over sources sharing
// one merged output.
func (p *Pipeline) processMerged(bundle string, sources []types.ResolvedSource) ([]byte, error) {
	parts := make([]filter.Part, 0, len(sources))
	for _, src := range sources {
		content, err := p.processSource(bundle, src, false)
		if err != nil {
			return nil, err
		}
		parts = append(parts, filter.Part{
			Content: content,
			Source:  filter.Source{Path: src.Path, Bundle: bundle, Remote: src.Remote},
		})
	}

	content, err := p.concatStage(bundle, sources, parts)
	if err != nil {
		return nil, err
	}
	return p.outputStage(bundle, sources, content)
}

// processSource runs the open and input stages for one source.
// In debug mode cosmetic filters are skipped.
func (p *Pipeline) processSource(bundle string, src types.ResolvedSource, debug bool) ([]byte, error) {
	chain, err := p.registry.Chain(src.Filters)
	if err != nil {
		return nil, err
	}

	meta := filter.Source{Path: src.Path, Bundle: bundle, Remote: src.Remote}

	content, err := p.openStage(meta, chain)
	if err != nil {
		return nil, err
	}

	for _, f := range chain {
		in, ok := f.(filter.Inputer)
		if !ok {
			continue
		}
		if debug && filter.IsCosmetic(f) {
			continue
		}
		content, err = p.invoke("input", f, meta.Path, content, func(data []byte) ([]byte, error) {
			return in.Input(data, meta)
		})
		if err != nil {
			return nil, err
		}
	}
	return content, nil
}

// openStage produces a source's raw content: the first opener in the
// chain wins, remote sources fall back to the implicit HTTP fetch, and
// local sources are read from disk. Later openers in the chain are
// ignored. Openers are never cached: their output depends on the
// outside world, not on a cacheable input, so a changed remote body
// must reach the downstream stages on every run.
func (p *Pipeline) openStage(meta filter.Source, chain []filter.Filter) ([]byte, error) {
	var opener filter.Opener
	for _, f := range chain {
		if o, ok := f.(filter.Opener); ok {
			opener = o
			break
		}
	}
	if opener == nil && meta.Remote {
		opener = p.remote
	}

	if opener != nil {
		out, err := opener.Open(meta)
		if err != nil {
			return nil, &filter.Error{Filter: opener.Name(), Path: meta.Path, Stage: "open", Err: err}
		}
		return out, nil
	}

	data, err := afero.ReadFile(p.fs, meta.Path)
	if err != nil {
		return nil, fmt.Errorf("reading source %s: %w", meta.Path, err)
	}
	return data, nil
}

// concatStage joins post-input contents. The first concater in the
// first-seen union of chains controls the join; the default is a
// newline separator.
func (p *Pipeline) concatStage(bundle string, sources []types.ResolvedSource, parts []filter.Part) ([]byte, error) {
	union, err := p.unionChain(sources)
	if err != nil {
		return nil, err
	}

	for _, f := range union {
		c, ok := f.(filter.Concater)
		if !ok {
			continue
		}
		digest := concatDigest(parts)
		return p.invoke("concat", f, "", digest, func([]byte) ([]byte, error) {
			return c.Concat(parts)
		})
	}

	var buf bytes.Buffer
	for i, part := range parts {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(part.Content)
	}
	return buf.Bytes(), nil
}

// outputStage folds the merged content through every output filter in
// the union of all source chains, deduplicated by first appearance.
func (p *Pipeline) outputStage(bundle string, sources []types.ResolvedSource, content []byte) ([]byte, error) {
	union, err := p.unionChain(sources)
	if err != nil {
		return nil, err
	}

	for _, f := range union {
		out, ok := f.(filter.Outputer)
		if !ok {
			continue
		}
		var err error
		content, err = p.invoke("output", f, "", content, func(data []byte) ([]byte, error) {
			return out.Output(data)
		})
		if err != nil {
			return nil, err
		}
	}
	return content, nil
}

// unionChain resolves the union of all sources' filter chains,
// deduplicated by filter name in declaration order of first appearance.
func (p *Pipeline) unionChain(sources []types.ResolvedSource) ([]filter.Filter, error) {
	seen := make(map[string]bool)
	var names []string
	for _, src := range sources {
		for _, name := range src.Filters {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return p.registry.Chain(names)
}

// invoke runs one filter invocation through the cache: a hit for
// (stage, filter, fingerprint, input digest) skips the filter
// entirely. Failures are fatal for the bundle and carry the filter
// name and source path.
func (p *Pipeline) invoke(stage string, f filter.Filter, path string, input []byte, fn func([]byte) ([]byte, error)) ([]byte, error) {
	key := cache.KeyOf([]byte(stage), []byte(f.Name()), []byte(f.Fingerprint()), input)

	if out, err := p.store.Get(key); err == nil {
		p.logger.Debug("cache hit", "stage", stage, "filter", f.Name(), "key", key)
		return out, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		return nil, err
	}

	out, err := fn(input)
	if err != nil {
		return nil, &filter.Error{Filter: f.Name(), Path: path, Stage: stage, Err: err}
	}

	_ = p.store.Set(key, out)
	return out, nil
}

// concatDigest renders the ordered (path, content) pairs into the
// cache-key input for a concat invocation.
func concatDigest(parts []filter.Part) []byte {
	var buf bytes.Buffer
	for _, part := range parts {
		fmt.Fprintf(&buf, "%s:%d:", part.Source.Path, len(part.Content))
		buf.Write(part.Content)
	}
	return buf.Bytes()
}

// debugArtifactName derives a per-source output name by inserting the
// source stem before the output extension. The version placeholder is
// dropped: debug artifacts are not cache-busted.
func debugArtifactName(output, sourcePath string) string {
	output = strings.ReplaceAll(output, "%(version)s", "")
	output = strings.ReplaceAll(output, "..", ".")

	stem := filepath.Base(sourcePath)
	if ext := filepath.Ext(stem); ext != "" {
		stem = strings.TrimSuffix(stem, ext)
	}

	ext := filepath.Ext(output)
	base := strings.TrimSuffix(output, ext)
	return base + "." + stem + ext
}
