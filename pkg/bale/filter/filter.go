// Package filter defines the transformation units applied by the
// asset pipeline and the name registry that resolves bundle filter
// declarations into concrete implementations.
//
// A filter implements one or more of four stage capabilities:
//
//	Opener   - replaces the default read of a single source
//	Inputer  - transforms one source's content before concatenation
//	Concater - controls how post-input contents are joined
//	Outputer - transforms the final merged content
//
// Stages a filter does not implement pass through unchanged. Every
// filter carries a configuration fingerprint that participates in
// cache-key derivation, so two filters with the same name but
// different configuration never share cache entries.
package filter

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Source carries the metadata a filter receives about the source it
// is transforming.
type Source struct {
	// Path is the source file path, or the URL for remote sources.
	Path string

	// Bundle is the name of the bundle the source resolved from.
	Bundle string

	// Remote marks sources fetched over HTTP.
	Remote bool
}

// Part pairs one source's post-input content with its metadata, for
// concat-stage filters.
type Part struct {
	Content []byte
	Source  Source
}

// Filter is the base interface every filter implements. Stage
// behavior comes from the optional capability interfaces below.
type Filter interface {
	// Name is the registry identifier, unique per filter kind.
	Name() string

	// Fingerprint is a stable digest of the filter's configuration.
	// It must change whenever an option changes the filter's output.
	Fingerprint() string
}

// Opener replaces the default file read for a source with its own
// content-producing function. At most one opener per source chain is
// honored; later ones are ignored.
type Opener interface {
	Filter
	Open(src Source) ([]byte, error)
}

// Inputer transforms a single source's content before concatenation.
type Inputer interface {
	Filter
	Input(content []byte, src Source) ([]byte, error)
}

// Concater combines the post-input contents of all sources into one.
type Concater interface {
	Filter
	Concat(parts []Part) ([]byte, error)
}

// Outputer transforms the merged content of the whole bundle.
type Outputer interface {
	Filter
	Output(content []byte) ([]byte, error)
}

// Cosmetic marks filters that may be skipped in debug mode
// (minifiers and similar). Filters without this capability are
// compiler-class and always run.
type Cosmetic interface {
	Cosmetic() bool
}

// IsCosmetic reports whether a filter may be skipped in debug mode.
func IsCosmetic(f Filter) bool {
	c, ok := f.(Cosmetic)
	return ok && c.Cosmetic()
}

// Error wraps a failure from a filter invocation with the filter name
// and the source path it was processing. Filter failures are fatal
// for the owning bundle's build.
type Error struct {
	Filter string
	Path   string
	Stage  string
	Err    error
}

// Error returns the formatted error message.
func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("filter %s (%s stage): %v", e.Filter, e.Stage, e.Err)
	}
	return fmt.Sprintf("filter %s (%s stage) on %s: %v", e.Filter, e.Stage, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// ErrUnknownFilter indicates a bundle referenced a filter name that is
// not registered.
var ErrUnknownFilter = errors.New("unknown filter")

// Factory constructs a filter from its configuration options.
type Factory func(opts map[string]string) (Filter, error)

// Registry maps filter names to implementations. Names are resolved
// into concrete filters once, at configuration-load time; the pipeline
// never looks filters up by name during a build.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	instances map[string]Filter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		instances: make(map[string]Filter),
	}
}

// Register adds a filter factory under the given name, replacing any
// previous registration.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
	delete(r.instances, name)
}

// Configure constructs the named filter with the given options and
// pins the instance for subsequent Get calls.
func (r *Registry) Configure(name string, opts map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	factory, ok := r.factories[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFilter, name)
	}
	f, err := factory(opts)
	if err != nil {
		return fmt.Errorf("configuring filter %s: %w", name, err)
	}
	r.instances[name] = f
	return nil
}

// Get returns the named filter, constructing it with default options
// on first use.
func (r *Registry) Get(name string) (Filter, error) {
	r.mu.RLock()
	if f, ok := r.instances[name]; ok {
		r.mu.RUnlock()
		return f, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if f, ok := r.instances[name]; ok {
		return f, nil
	}
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFilter, name)
	}
	f, err := factory(nil)
	if err != nil {
		return nil, fmt.Errorf("constructing filter %s: %w", name, err)
	}
	r.instances[name] = f
	return f, nil
}

// Chain resolves an ordered list of filter names into filters.
func (r *Registry) Chain(names []string) ([]Filter, error) {
	out := make([]Filter, 0, len(names))
	for _, name := range names {
		f, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Names returns the registered filter names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default returns a registry pre-populated with the built-in filters.
func Default() *Registry {
	r := NewRegistry()
	r.Register("concat", NewConcatFactory)
	r.Register("jsmin", NewJSMinFactory)
	r.Register("cssmin", NewCSSMinFactory)
	r.Register("banner", NewBannerFactory)
	r.Register("replace", NewReplaceFactory)
	r.Register("extern", NewExternFactory)
	r.Register("remote", NewRemoteFactory)
	return r
}

// fingerprintOpts renders options deterministically for fingerprints.
func fingerprintOpts(name string, opts map[string]string) string {
	if len(opts) == 0 {
		return name
	}
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	sb.WriteString(name)
	for _, k := range keys {
		sb.WriteByte(';')
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(opts[k])
	}
	return sb.String()
}
