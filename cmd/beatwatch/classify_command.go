package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"beatwatch/internal/classifier"
)

func newClassifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <text>",
		Short: "Classify a piece of text against the configured backend",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			cls := buildClassifier(cfg)
			result := cls.Classify(cmd.Context(), strings.Join(args, " "))
			if result.Outcome == classifier.OutcomeUnavailable {
				return fmt.Errorf("classifier unavailable: %w", result.Err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "outcome:    %s\n", result.Outcome)
			fmt.Fprintf(out, "confidence: %.2f\n", result.Verdict.Confidence)
			if result.Verdict.Reasoning != "" {
				fmt.Fprintf(out, "reasoning:  %s\n", result.Verdict.Reasoning)
			}
			return nil
		},
	}
}
