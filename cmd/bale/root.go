package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/balebuild/bale/pkg/bale/config"
	"github.com/balebuild/bale/pkg/bale/logging"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "bale",
		Short: "Build, version, and cache web asset bundles",
		Long: `Bale is an incremental asset-build pipeline: it runs declared groups
of source files (scripts, stylesheets, templates) through chains of
transformation filters, merges them into output artifacts, and avoids
redundant work by tracking freshness and caching intermediate results.

Examples:
  bale build                 # Build every stale bundle
  bale build app-js --force  # Force one bundle regardless of freshness
  bale watch                 # Rebuild on source changes
  bale check                 # Report staleness without building
  bale clean                 # Purge the filter cache`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./bale.config.yaml)")
	rootCmd.PersistentFlags().StringP("bundles", "b", "", "bundle declaration file (default: ./bale.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "build bundles in debug mode (unmerged, unminified)")
	rootCmd.PersistentFlags().Bool("no-cache", false, "bypass the filter cache")
	rootCmd.PersistentFlags().StringP("format", "o", "pretty", "report format (pretty, plain, json)")
	rootCmd.PersistentFlags().IntP("workers", "w", 0, "parallel bundle builds (0=auto)")
	rootCmd.PersistentFlags().Bool("fail-fast", false, "stop scheduling bundles after the first failure")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging to console")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")

	_ = viper.BindPFlag("bundles_file", rootCmd.PersistentFlags().Lookup("bundles"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("no_cache", rootCmd.PersistentFlags().Lookup("no-cache"))
	_ = viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	_ = viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers"))
	_ = viper.BindPFlag("fail_fast", rootCmd.PersistentFlags().Lookup("fail-fast"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError("%v", err)
	}
	_ = logging.Close()
	return err
}

// loadConfig loads the application configuration and initializes
// logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	// CLI flags override the config file.
	if viper.IsSet("bundles_file") && viper.GetString("bundles_file") != "" {
		cfg.BundlesFile = viper.GetString("bundles_file")
	}
	if viper.GetBool("debug") {
		cfg.Debug = true
	}
	if viper.GetBool("fail_fast") {
		cfg.FailFast = true
	}
	if w := viper.GetInt("workers"); w > 0 {
		cfg.Workers = w
	}

	logCfg := logging.Config{
		Level:      cfg.Logging.Level,
		Path:       cfg.Logging.Path,
		Components: cfg.Logging.Components,
	}
	if getVerbose() {
		logCfg.ConsoleLevel = "debug"
	}
	if err := logging.Init(logCfg); err != nil {
		return nil, fmt.Errorf("initializing logging: %w", err)
	}
	return cfg, nil
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printInfo prints a message unless quiet mode is enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
