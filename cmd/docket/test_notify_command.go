package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"docket/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification to every configured sink",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			svc := notifications.NewService(cfg, ctx.loggerFor(cfg))
			if err := svc.Publish(cmd.Context(), notifications.EventTest, notifications.Payload{"message": "docket test notification"}); err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			if cfg.Notifications.NtfyTopic == "" && len(cfg.Notifications.EmailTo) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No notification sinks configured; nothing sent")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
			return nil
		},
	}
}
