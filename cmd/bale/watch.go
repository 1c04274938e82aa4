package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/balebuild/bale/pkg/bale/builder"
	"github.com/balebuild/bale/pkg/bale/watch"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [bundle...]",
	Short: "Rebuild bundles when their sources change",
	Long: `Watch performs an initial build, then monitors the source tree and
rebuilds any bundle whose sources, dependencies, or glob patterns are
touched. Build failures are reported and watching continues. Stop with
Ctrl-C.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "quiet period before rebuilding after a change")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
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

	buildOpts := builder.Options{
		FailFast: cfg.FailFast,
		Workers:  cfg.Workers,
	}

	// Initial pass so outputs are current before watching starts.
	report, err := b.Build(args, buildOpts)
	if err != nil {
		return err
	}
	if err := printReport(report); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w, err := watch.New(env, b, watch.Options{
		Debounce: watchDebounce,
		Build:    buildOpts,
		OnReport: func(report *builder.Report) {
			if err := printReport(report); err != nil {
				printError("%v", err)
			}
		},
	})
	if err != nil {
		return err
	}

	printInfo("watching %s (Ctrl-C to stop)", cfg.Directory)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
