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

var buildForce bool

var buildCmd = &cobra.Command{
	Use:   "build [bundle...]",
	Short: "Build stale bundles",
	Long: `Build resolves each named bundle (or every root bundle when none are
named), rebuilds the ones whose sources or configuration changed since
the last build, and writes versioned artifacts to the output directory.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().BoolVar(&buildForce, "force", false, "rebuild even when outputs are fresh")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
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

	report, err := b.Build(args, builder.Options{
		Force:    buildForce,
		FailFast: cfg.FailFast,
		Workers:  cfg.Workers,
	})
	if err != nil {
		return err
	}

	if err := printReport(report); err != nil {
		return err
	}
	if report.Failed() {
		return fmt.Errorf("%d bundle(s) failed", report.FailedCount())
	}
	return nil
}

// printReport renders a build report with the selected formatter.
func printReport(report *builder.Report) error {
	formatter, err := output.Get(viper.GetString("format"))
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, report); err != nil {
		return fmt.Errorf("formatting report: %w", err)
	}
	if !getQuiet() {
		_, err = buf.WriteTo(os.Stdout)
	}
	return err
}
