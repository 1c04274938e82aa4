// Package config loads the application configuration and the bundle
// declaration file. Application settings come from viper (config file
// plus BALE_-prefixed environment variables); bundle declarations are
// a YAML file parsed into the flat bundle arena.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// Defaults for application settings.
const (
	DefaultBundlesFile = "bale.yaml"
	DefaultOutput      = "dist"
	DefaultVersioner   = "hash"
	DefaultCacheEnd    = "fs"
)

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Components map[string]string `mapstructure:"components"`
}

// CacheConfig selects and locates the cache backend.
type CacheConfig struct {
	// Backend is one of "fs", "badger", "memory", "none".
	Backend string `mapstructure:"backend"`

	// Path is the cache location for persistent backends. Empty uses
	// the XDG cache directory.
	Path string `mapstructure:"path"`
}

// Config represents the application configuration.
type Config struct {
	// Directory is the source root bundles resolve under.
	Directory string `mapstructure:"directory"`

	// Output is the directory built artifacts are written into.
	Output string `mapstructure:"output"`

	// URLPrefix is the public URL base for built bundles.
	URLPrefix string `mapstructure:"url_prefix"`

	// Debug is the global debug default.
	Debug bool `mapstructure:"debug"`

	// AllowRemote permits external URL contents in bundles.
	AllowRemote bool `mapstructure:"allow_remote"`

	// Versioner selects the version strategy: "hash" or "timestamp".
	Versioner string `mapstructure:"versioner"`

	// ManifestPath locates the version manifest. Empty places it
	// inside the output directory.
	ManifestPath string `mapstructure:"manifest_path"`

	// TrustManifest enables manifest-trust mode (production: no
	// source access, recorded versions served unconditionally).
	TrustManifest bool `mapstructure:"trust_manifest"`

	// BundlesFile is the bundle declaration file path.
	BundlesFile string `mapstructure:"bundles_file"`

	// Workers is the parallel bundle build width (0 = one per CPU).
	Workers int `mapstructure:"workers"`

	// FailFast stops scheduling bundles after the first failure.
	FailFast bool `mapstructure:"fail_fast"`

	Cache   CacheConfig   `mapstructure:"cache"`
	Logging LoggingConfig `mapstructure:"logging"`

	// Filters carries per-filter configuration options, applied to
	// the registry at startup.
	Filters map[string]map[string]string `mapstructure:"filters"`
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - the path given explicitly (if any)
//   - ./bale.config.yaml
//   - $XDG_CONFIG_HOME/bale/config.yaml
//
// Environment variables are prefixed with BALE_ (e.g. BALE_OUTPUT).
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("bale.config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(xdg.ConfigHome, "bale"))
	}

	v.SetEnvPrefix("BALE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Config file not found is acceptable; we use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.ManifestPath == "" {
		cfg.ManifestPath = filepath.Join(cfg.Output, ".bale-manifest.json")
	}
	if cfg.Cache.Path == "" {
		cfg.Cache.Path = DefaultCachePath()
	}

	return &cfg, nil
}

// setDefaults installs the default values on a viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("directory", ".")
	v.SetDefault("output", DefaultOutput)
	v.SetDefault("url_prefix", "")
	v.SetDefault("debug", false)
	v.SetDefault("allow_remote", true)
	v.SetDefault("versioner", DefaultVersioner)
	v.SetDefault("bundles_file", DefaultBundlesFile)
	v.SetDefault("workers", 0)
	v.SetDefault("fail_fast", false)
	v.SetDefault("cache.backend", DefaultCacheEnd)
	v.SetDefault("cache.path", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.components", map[string]string{
		"builder":  "info",
		"pipeline": "info",
		"watch":    "info",
		"cache":    "warn",
		"updater":  "info",
	})
}

// DefaultCachePath returns the default cache directory,
// $XDG_CACHE_HOME/bale/blobs.
func DefaultCachePath() string {
	return filepath.Join(xdg.CacheHome, "bale", "blobs")
}

// ConfigDir returns the configuration directory path.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, "bale")
}
