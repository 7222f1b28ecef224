package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"beatwatch/internal/store"
)

func newClearCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all saved records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return errors.New("refusing to clear records without --force")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			st, err := store.Open(cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			removed, err := st.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d records\n", removed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Confirm removal of all saved records")
	return cmd
}
