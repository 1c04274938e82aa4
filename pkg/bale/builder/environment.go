package builder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/balebuild/bale/pkg/bale/cache"
	"github.com/balebuild/bale/pkg/bale/filter"
	"github.com/balebuild/bale/pkg/bale/manifest"
	"github.com/balebuild/bale/pkg/bale/types"
	"github.com/balebuild/bale/pkg/bale/version"
)

// Environment is the explicit configuration object threaded through
// the orchestrator, resolver, and updater. There is no process-wide
// default environment; every consumer receives one by reference.
type Environment struct {
	// Set is the flat arena of declared bundles.
	Set *types.Set

	// Fs is the filesystem everything reads sources from and writes
	// outputs to. Defaults to the OS filesystem.
	Fs afero.Fs

	// Directory is the root relative source paths resolve under.
	Directory string

	// OutputDir is the directory built artifacts are written into.
	OutputDir string

	// URLPrefix is the public URL base for built bundles, used by
	// URLFor. No trailing slash.
	URLPrefix string

	// Debug is the global debug default, overridable per bundle.
	Debug bool

	// AllowRemote permits external URL contents in bundles.
	AllowRemote bool

	// Registry resolves filter names. Defaults to the built-in set.
	Registry *filter.Registry

	// Store memoizes filter invocations. Nil disables caching without
	// affecting correctness.
	Store cache.Store

	// Versioner computes output versions. Defaults to content hashing.
	Versioner version.Versioner

	// Manifest records the last published version per output.
	Manifest *manifest.Manifest

	// TrustManifest enables manifest-trust mode: no source access,
	// the recorded version is served unconditionally.
	TrustManifest bool
}

// normalize fills defaults and validates the environment.
func (env *Environment) normalize() error {
	if env.Set == nil {
		return errors.New("environment requires a bundle set")
	}
	if env.Manifest == nil {
		return errors.New("environment requires a manifest")
	}
	if env.Fs == nil {
		env.Fs = afero.NewOsFs()
	}
	if env.Registry == nil {
		env.Registry = filter.Default()
	}
	if env.Versioner == nil {
		env.Versioner = version.HashVersioner{}
	}
	return nil
}

// URLFor returns the public, cache-busted URL for a bundle's output,
// using the manifest's last recorded version. Output templates with a
// version placeholder get it substituted; plain outputs get a query
// parameter.
func (env *Environment) URLFor(name string) (string, error) {
	b, err := env.Set.Get(name)
	if err != nil {
		return "", err
	}
	rec, ok := env.Manifest.Get(b.Output)
	if !ok {
		return "", fmt.Errorf("bundle %s has no recorded build", name)
	}

	url := b.Output
	if env.URLPrefix != "" {
		url = strings.TrimSuffix(env.URLPrefix, "/") + "/" + strings.TrimPrefix(url, "/")
	}
	return version.URLFor(url, version.Version(rec.Version)), nil
}
