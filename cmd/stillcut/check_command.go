package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stillcut/internal/notifications"
	"stillcut/internal/preflight"
	"stillcut/internal/services"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var notify bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify tools, directories and the analysis cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := newStatusReport(cmd.OutOrStdout())

			report.section("Configuration")
			configLine := ctx.configPath
			if configLine == "" {
				configLine = "defaults"
			}
			report.line("Config", statusInfo, configLine)
			report.line("Mode", statusInfo, modeLabel(planMode(cfg.Output.Mode)))
			report.line("Cache", statusInfo, yesNo(cfg.Cache.Enabled))

			report.section("Preflight")
			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				report.line(result.Name, kind, result.Detail)
			}
			if report.failed > 0 {
				return fmt.Errorf("%w: %d preflight check(s) failed", services.ErrConfiguration, report.failed)
			}

			if !notify {
				return nil
			}
			report.section("Notifications")
			if cfg.Notifications.NtfyTopic == "" {
				report.line("ntfy", statusWarn, "notifications.ntfy_topic is not set")
				return nil
			}
			if err := notifications.NewService(cfg).Publish(cmd.Context(), notifications.EventTest, nil); err != nil {
				report.line("ntfy", statusError, err.Error())
				return fmt.Errorf("%w: test notification failed: %w", services.ErrExternalTool, err)
			}
			report.line("ntfy", statusOK, "test notification sent to "+cfg.Notifications.NtfyTopic)
			return nil
		},
	}
	cmd.Flags().BoolVar(&notify, "notify", false, "Send a test notification to notifications.ntfy_topic")
	return cmd
}
