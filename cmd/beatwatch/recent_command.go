package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"beatwatch/internal/store"
)

func newRecentCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:       "recent [submissions|comments]",
		Short:     "List recently saved records",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"submissions", "comments"},
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

			kind := "all"
			if len(args) == 1 {
				kind = args[0]
			}
			pretty := stdoutIsTerminal()
			out := cmd.OutOrStdout()

			if kind == "all" || kind == "submissions" {
				subs, err := st.RecentSubmissions(cmd.Context(), limit)
				if err != nil {
					return fmt.Errorf("list submissions: %w", err)
				}
				rows := make([][]string, 0, len(subs))
				for _, sub := range subs {
					rows = append(rows, []string{
						sub.ID,
						truncateCell(sub.Title, 60),
						sub.Author.Name,
						sub.Created.Format(time.RFC3339),
					})
				}
				fmt.Fprintln(out, renderTable([]string{"ID", "Title", "Author", "Created"}, rows, pretty))
			}

			if kind == "all" || kind == "comments" {
				comments, err := st.RecentComments(cmd.Context(), limit)
				if err != nil {
					return fmt.Errorf("list comments: %w", err)
				}
				rows := make([][]string, 0, len(comments))
				for _, comment := range comments {
					rows = append(rows, []string{
						comment.ID,
						truncateCell(comment.Body, 60),
						comment.Author.Name,
						comment.Created.Format(time.RFC3339),
					})
				}
				fmt.Fprintln(out, renderTable([]string{"ID", "Body", "Author", "Created"}, rows, pretty))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum records per kind")
	return cmd
}
