package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/avelinec/hubsync/internal/reconciler"
)

func newApplyCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Run one reconciliation pass against the host platform",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, flags)
		},
	}

	return cmd
}

func runApply(cmd *cobra.Command, flags *rootFlags) error {
	// Cancellation between operations is safe: applied state stands and
	// the next pass picks it up.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, err := newLogger(flags)
	if err != nil {
		return err
	}

	m, err := loadManifest(ctx, flags)
	if err != nil {
		return err
	}

	steps, err := buildStepper(flags, m)
	if err != nil {
		return err
	}

	store, err := openStore(flags, m)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	var opts []reconciler.Option
	if n := resolveConcurrency(flags, m); n > 0 {
		opts = append(opts, reconciler.WithConcurrency(n))
	}

	r := reconciler.New(store, steps, log, opts...)
	report, err := r.Run(ctx, m.Integrations)
	if report != nil {
		fmt.Fprint(cmd.OutOrStdout(), renderReport(report))
	}
	if err != nil {
		return err
	}

	if failures := report.Failures(); len(failures) > 0 {
		return fmt.Errorf("%d of %d operation(s) failed", len(failures), len(report.Entries))
	}
	return nil
}
