package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"stillcut/internal/config"
	"stillcut/internal/services"
	"stillcut/internal/timeline"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Create, inspect and validate the configuration file",
	}
	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a commented sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := initTarget(targetPath)
			if err != nil {
				return err
			}
			if !overwrite {
				_, err := os.Stat(target)
				switch {
				case err == nil:
					return fmt.Errorf("%w: %s already exists (use --overwrite to replace it)", services.ErrValidation, target)
				case !errors.Is(err, fs.ErrNotExist):
					return fmt.Errorf("%w: check config path: %w", services.ErrConfiguration, err)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("%w: %w", services.ErrConfiguration, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Tune detection.min_drop and detection.min_keep, then run `stillcut check`.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file (default ~/.config/stillcut/config.toml)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

func initTarget(flag string) (string, error) {
	if flag = strings.TrimSpace(flag); flag == "" {
		path, err := config.DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("%w: determine default config path: %w", services.ErrConfiguration, err)
		}
		return path, nil
	}
	path, err := config.ExpandPath(flag)
	if err != nil {
		return "", fmt.Errorf("%w: resolve config path: %w", services.ErrValidation, err)
	}
	return path, nil
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		Long: `Print the configuration stillcut would run with: the file's values with
defaults filled in, paths expanded and --log-level / --log-format applied.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			data, err := toml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# %s\n", configSource(ctx.configPath))
			_, err = out.Write(data)
			return err
		},
	}
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the configuration and report problems",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			settings := cfg.DetectSettings()
			report := newStatusReport(cmd.OutOrStdout())
			report.line("Config path", statusInfo, configSource(ctx.configPath))
			report.line("Thresholds", statusInfo, fmt.Sprintf("min_drop %ss, min_keep %ss",
				timeline.FormatSeconds(settings.MinDrop), timeline.FormatSeconds(settings.MinKeep)))
			report.line("Output mode", statusInfo, modeLabel(planMode(cfg.Output.Mode)))
			if cfg.Notifications.NtfyTopic != "" {
				report.line("Notifications", statusInfo, cfg.Notifications.NtfyTopic)
			}
			report.line("Configuration", statusOK, "valid")
			return nil
		},
	}
}

func configSource(path string) string {
	if path == "" {
		return "defaults"
	}
	if _, err := os.Stat(path); err != nil {
		return path + " (not found; defaults were used)"
	}
	return path
}
