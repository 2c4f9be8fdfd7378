package main

import (
	"github.com/spf13/cobra"
)

type rootFlags struct {
	manifest    string
	statePath   string
	endpoint    string
	token       string
	concurrency int
	verbose     bool
	noColor     bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "hubsync",
		Short:         "hubsync reconciles declared integrations against a host platform",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVarP(&flags.manifest, "manifest", "m", "hubsync.yaml", "Manifest path or git URL")
	cmd.PersistentFlags().StringVar(&flags.statePath, "state", "", "State database path (default ~/.hubsync/state.db)")
	cmd.PersistentFlags().StringVar(&flags.endpoint, "endpoint", "", "Host platform flow API base URL")
	cmd.PersistentFlags().StringVar(&flags.token, "token", "", "Bearer token for the flow API")
	cmd.PersistentFlags().IntVar(&flags.concurrency, "concurrency", 0, "Maximum concurrent operations per pass")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().BoolVar(&flags.noColor, "no-color", false, "Disable colored output")

	cmd.AddCommand(newApplyCmd(flags))
	cmd.AddCommand(newPlanCmd(flags))
	cmd.AddCommand(newStateCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}
