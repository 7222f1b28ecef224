package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"beatwatch/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newConfigInitCommand())
	cmd.AddCommand(newConfigShowCommand(ctx))
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a sample configuration file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := path
			if target == "" {
				resolved, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				target = resolved
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("write sample config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sample configuration written to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "Destination path for the sample file")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			rows := [][]string{
				{"config file", ctx.configPath},
				{"data dir", cfg.Paths.DataDir},
				{"log dir", cfg.Paths.LogDir},
				{"subreddit", "r/" + cfg.Reddit.Subreddit},
				{"reddit client id", redact(cfg.Reddit.ClientID)},
				{"reddit client secret", redact(cfg.Reddit.ClientSecret)},
				{"classifier url", cfg.Classifier.BaseURL},
				{"confidence threshold", strconv.FormatFloat(cfg.Classifier.ConfidenceThreshold, 'f', 2, 64)},
				{"prefilter", yesNo(cfg.Classifier.PrefilterEnabled)},
				{"webhook", redact(cfg.Notifications.WebhookURL)},
				{"digest schedule", cfg.Notifications.DigestSchedule},
				{"stream backoff (s)", strconv.Itoa(cfg.Watcher.StreamBackoff)},
				{"insert retries", strconv.Itoa(cfg.Watcher.InsertRetries)},
				{"grace period (s)", strconv.Itoa(cfg.Watcher.GracePeriod)},
				{"log format", cfg.Logging.Format},
				{"log level", cfg.Logging.Level},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Setting", "Value"}, rows, stdoutIsTerminal()))
			return nil
		},
	}
}

func redact(value string) string {
	if value == "" {
		return "(unset)"
	}
	runes := []rune(value)
	if len(runes) <= 8 {
		return "********"
	}
	return string(runes[:4]) + "****" + string(runes[len(runes)-4:])
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
