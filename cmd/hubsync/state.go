package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStateCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "List the integrations recorded in the state database",
		RunE: func(cmd *cobra.Command, args []string) error {
			// The manifest is optional here: the state database may be
			// inspected even when no manifest is reachable.
			m, err := loadManifest(cmd.Context(), flags)
			if err != nil {
				m = nil
			}

			store, err := openStore(flags, m)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			records, err := store.Load(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), renderState(records))
			return nil
		},
	}

	return cmd
}
