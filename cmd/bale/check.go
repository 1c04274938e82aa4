package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/balebuild/bale/pkg/bale/builder"
	"github.com/balebuild/bale/pkg/bale/output"
)

var checkCmd = &cobra.Command{
	Use:   "check [bundle...]",
	Short: "Report bundle staleness without building",
	Long: `Check resolves each named bundle (or every root bundle when none are
named) and reports whether a build pass would rebuild it. Nothing is
written. Exits non-zero when any bundle is stale, so it can gate CI.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	env, cleanup, err := newEnvironment(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	b, err := builder.New(env)
	if err != nil {
		return err
	}

	results, err := b.Check(args)
	if err != nil {
		return err
	}

	formatter, err := output.Get(viper.GetString("format"))
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := formatter.FormatCheck(&buf, results); err != nil {
		return fmt.Errorf("formatting report: %w", err)
	}
	if !getQuiet() {
		if _, err := buf.WriteTo(os.Stdout); err != nil {
			return err
		}
	}

	stale := 0
	for _, res := range results {
		if res.Err != nil {
			return res.Err
		}
		if res.Stale {
			stale++
		}
	}
	if stale > 0 {
		return fmt.Errorf("%d bundle(s) stale", stale)
	}
	return nil
}
