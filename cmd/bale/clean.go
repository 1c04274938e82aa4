package main

import (
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/balebuild/bale/pkg/bale/cache"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Purge the filter cache",
	Long: `Clean removes every cached filter result from the configured cache
backend. The next build recomputes filters from scratch; outputs and
the manifest are untouched.`,
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openCache(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	switch s := store.(type) {
	case *cache.FSStore:
		entries, bytes, err := s.Purge()
		if err != nil {
			return err
		}
		printInfo("purged %d entries (%s)", entries, humanize.Bytes(uint64(bytes)))
	case *cache.BadgerStore:
		if err := s.Purge(); err != nil {
			return err
		}
		printInfo("purged cache at %s", cfg.Cache.Path)
	default:
		printInfo("cache backend %q holds nothing to purge", cfg.Cache.Backend)
	}
	return nil
}
