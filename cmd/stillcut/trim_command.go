package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"stillcut/internal/config"
	"stillcut/internal/notifications"
	"stillcut/internal/plan"
	"stillcut/internal/preflight"
	"stillcut/internal/services"
	"stillcut/internal/timeline"
	"stillcut/internal/trim"
)

func newTrimCommand(ctx *commandContext) *cobra.Command {
	var flags analysisFlags
	var output string
	var mode string
	var dryRun bool
	var keepWorkDir bool
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "trim INPUT",
		Short: "Write a copy of INPUT with near-static spans removed",
		Long: `Analyze INPUT for near-static runs, cut every run of at least min_drop
seconds, and write the remaining spans to OUTPUT.

Copy mode (default) stream-copies keyframe-aligned segments and joins them;
re-encode mode trims on exact frame times through one filter graph.`,
		Args: inputArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			limits, err := flags.thresholds()
			if err != nil {
				return err
			}
			var parsedMode plan.Mode
			if strings.TrimSpace(mode) != "" {
				if parsedMode, err = plan.ParseMode(mode); err != nil {
					return fmt.Errorf("%w: %w", services.ErrValidation, err)
				}
			}
			input, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("%w: %w", services.ErrValidation, err)
			}
			if output != "" {
				if output, err = config.ExpandPath(output); err != nil {
					return fmt.Errorf("%w: %w", services.ErrValidation, err)
				}
			}

			if !dryRun {
				if err := preflight.MissingRequired(preflight.CheckBinaries(preflight.ToolRequirements(cfg))); err != nil {
					return fmt.Errorf("%w: %w (run stillcut check)", services.ErrConfiguration, err)
				}
			}

			req := trim.Request{
				Input:         input,
				Output:        output,
				Mode:          parsedMode,
				MinDrop:       limits.minDrop,
				MinKeep:       limits.minKeep,
				FromLog:       flags.fromLog,
				KeyframesFile: flags.keyframesFile,
				DryRun:        dryRun,
				KeepWorkDir:   keepWorkDir,
				NoCache:       flags.noCache,
				Overwrite:     overwrite,
			}
			return ctx.withService(cmd, flags.noCache, func(svc *trim.Service) error {
				result, err := svc.Run(cmd.Context(), req)
				out := cmd.OutOrStdout()
				switch {
				case errors.Is(err, trim.ErrNothingToDrop):
					fmt.Fprintf(out, "Nothing to drop in %s: no near-static run lasts %ss; input left untouched\n",
						input, timeline.FormatSeconds(limits.resolve(cfg).MinDrop))
					return nil
				case errors.Is(err, context.Canceled):
					return err
				case err != nil:
					ctx.notify(cmd.Context(), notifications.EventTrimFailed, notifications.Payload{
						"input": input,
						"stage": services.StageOf(err),
						"error": err,
					})
					return err
				}
				printTrimResult(out, result)
				if !result.DryRun {
					ctx.notify(cmd.Context(), notifications.EventTrimCompleted, notifications.Payload{
						"input":   input,
						"output":  result.Output,
						"mode":    string(result.Mode),
						"kept":    timeline.FormatClock(result.Kept),
						"removed": timeline.FormatClock(result.Removed),
						"spans":   len(result.Plan.Intervals),
					})
				}
				return nil
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (default INPUT with output.suffix)")
	cmd.Flags().StringVar(&mode, "mode", "", "Output mode: copy or reencode (default output.mode)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the ffmpeg commands instead of running them")
	cmd.Flags().BoolVar(&keepWorkDir, "keep-work-dir", false, "Keep segments and the concat list after the run")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace OUTPUT if it exists")
	return cmd
}

func printTrimResult(out io.Writer, result *trim.Result) {
	det := result.Detection
	kept := len(result.Plan.Intervals)
	if result.DryRun {
		fmt.Fprintf(out, "Dry run: %d ffmpeg command(s) for %s\n\n", len(result.Commands), result.Output)
		for _, line := range result.Commands {
			fmt.Fprintln(out, line)
		}
		fmt.Fprintln(out)
	} else {
		fmt.Fprintf(out, "Wrote %s\n", result.Output)
	}
	fmt.Fprintf(out, "  %-10s %s\n", "Mode:", modeLabel(result.Mode))
	fmt.Fprintf(out, "  %-10s %d kept, %d cut\n", "Spans:", kept, det.Stats.CutRuns)
	fmt.Fprintf(out, "  %-10s %s\n", "Analysis:", det.Source)
	if det.Duration.IsPositive() {
		fmt.Fprintf(out, "  %-10s %s\n", "Source:", timeline.FormatClock(det.Duration))
	}
	fmt.Fprintf(out, "  %-10s %s\n", "Kept:", timeline.FormatClock(result.Kept))
	fmt.Fprintf(out, "  %-10s %s\n", "Removed:", timeline.FormatClock(result.Removed))
}

func modeLabel(mode plan.Mode) string {
	return cases.Title(language.Und).String(string(mode))
}
