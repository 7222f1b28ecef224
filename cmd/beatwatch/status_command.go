package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"beatwatch/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show store health and record counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			st, err := store.Open(cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			summary, err := st.Counts(cmd.Context())
			if err != nil {
				return fmt.Errorf("read counts: %w", err)
			}
			health, err := st.CheckHealth(cmd.Context())
			if err != nil {
				return fmt.Errorf("check health: %w", err)
			}

			healthValue := "ok"
			if !health.IntegrityCheck || health.Error != "" {
				healthValue = "degraded"
				if health.Error != "" {
					healthValue = health.Error
				}
			}
			rows := [][]string{
				{"subreddit", "r/" + cfg.Reddit.Subreddit},
				{"database", st.Path()},
				{"health", healthValue},
				{"submissions", fmt.Sprintf("%d", summary.Submissions)},
				{"comments", fmt.Sprintf("%d", summary.Comments)},
				{"submissions (24h)", fmt.Sprintf("%d", summary.SubmissionsLast24)},
				{"comments (24h)", fmt.Sprintf("%d", summary.CommentsLast24)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, stdoutIsTerminal()))
			return nil
		},
	}
}
