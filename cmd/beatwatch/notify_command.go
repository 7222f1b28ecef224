package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"beatwatch/internal/logging"
	"beatwatch/internal/notifications"
)

func newNotifyCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Notification helpers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newNotifyTestCommand(ctx))
	return cmd
}

func newNotifyTestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Send a test message to the configured webhook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.Notifications.WebhookURL) == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "No webhook URL configured; nothing to send.")
				return nil
			}

			svc := notifications.NewService(cfg, logging.NewNop())
			if err := svc.Test(cmd.Context()); err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test notification delivered.")
			return nil
		},
	}
}
