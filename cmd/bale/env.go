package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/balebuild/bale/pkg/bale/builder"
	"github.com/balebuild/bale/pkg/bale/cache"
	"github.com/balebuild/bale/pkg/bale/config"
	"github.com/balebuild/bale/pkg/bale/filter"
	"github.com/balebuild/bale/pkg/bale/logging"
	"github.com/balebuild/bale/pkg/bale/manifest"
	baleversion "github.com/balebuild/bale/pkg/bale/version"
)

// newEnvironment assembles the build environment from configuration:
// bundle declarations, filter registry, cache backend, versioner, and
// manifest. The returned cleanup closes the cache backend.
func newEnvironment(cfg *config.Config) (*builder.Environment, func(), error) {
	set, err := config.LoadBundles(afero.NewOsFs(), cfg.BundlesFile)
	if err != nil {
		return nil, nil, err
	}

	registry := filter.Default()
	for name, opts := range cfg.Filters {
		if err := registry.Configure(name, opts); err != nil {
			return nil, nil, err
		}
	}

	store, err := openCache(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { _ = store.Close() }

	versioner, err := baleversion.New(cfg.Versioner)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	man := manifest.New(manifest.NewJSON(cfg.ManifestPath))
	if err := man.Load(); err != nil {
		if cfg.TrustManifest {
			cleanup()
			return nil, nil, err
		}
		logging.Get("manifest").Warn("manifest unreadable, starting fresh", "error", err)
	}

	env := &builder.Environment{
		Set:           set,
		Directory:     cfg.Directory,
		OutputDir:     cfg.Output,
		URLPrefix:     cfg.URLPrefix,
		Debug:         cfg.Debug,
		AllowRemote:   cfg.AllowRemote,
		Registry:      registry,
		Store:         store,
		Versioner:     versioner,
		Manifest:      man,
		TrustManifest: cfg.TrustManifest,
	}
	return env, cleanup, nil
}

// openCache opens the configured cache backend. The --no-cache flag
// forces the disabled cache regardless of configuration.
func openCache(cfg *config.Config) (cache.Store, error) {
	if viper.GetBool("no_cache") {
		return cache.NewNop(), nil
	}
	switch cfg.Cache.Backend {
	case "fs", "":
		return cache.OpenFS(cfg.Cache.Path)
	case "badger":
		return cache.OpenBadger(cfg.Cache.Path)
	case "memory":
		return cache.NewMem(), nil
	case "none":
		return cache.NewNop(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Cache.Backend)
	}
}
