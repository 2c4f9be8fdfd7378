package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/avelinec/hubsync/internal/diff"
)

func newPlanCmd(flags *rootFlags) *cobra.Command {
	var detailed bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what a reconciliation pass would change, without applying",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			m, err := loadManifest(ctx, flags)
			if err != nil {
				return err
			}

			store, err := openStore(flags, m)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			stored, err := store.Load(ctx)
			if err != nil {
				return err
			}

			plan := diff.Compute(m.Integrations, stored)
			fmt.Fprint(cmd.OutOrStdout(), renderPlan(plan))

			if detailed {
				for _, op := range plan.Operations {
					if op.Action == diff.ActionNoop {
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s:\n", op.ID)
					if op.Record != nil {
						fmt.Fprintf(cmd.OutOrStdout(), "  stored answers digest:  %s\n", op.Record.AnswersDigest)
						fmt.Fprintf(cmd.OutOrStdout(), "  stored options digest:  %s\n", op.Record.OptionsDigest)
					}
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&detailed, "detailed", false, "Print stored fingerprints for changed integrations")

	return cmd
}
