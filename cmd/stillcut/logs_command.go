package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"stillcut/internal/logging"
	"stillcut/internal/logs"
	"stillcut/internal/services"
)

// logFields are printed first, in this order; everything else follows sorted.
var logFields = map[string]bool{"ts": true, "level": true, "msg": true, "run_id": true, "stage": true, "component": true}

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var runID string
	var stage string
	var level string
	var date string
	var raw bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent entries from the run log",
		Long: `Show entries from the daily JSON log in paths.log_dir.

Use --run with the run id (or a prefix of it) printed by trim to replay a single
invocation, and --follow to keep printing new entries until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if lines < 0 {
				return fmt.Errorf("%w: --lines must not be negative", services.ErrValidation)
			}
			filter := logs.Filter{RunID: strings.TrimSpace(runID), Stage: strings.TrimSpace(stage)}
			if err := filter.MinLevel.UnmarshalText([]byte(level)); err != nil {
				return fmt.Errorf("%w: --level: %w", services.ErrValidation, err)
			}
			day := time.Now()
			if date != "" {
				day, err = time.ParseInLocation(time.DateOnly, date, time.Local)
				if err != nil {
					return fmt.Errorf("%w: --date must be YYYY-MM-DD", services.ErrValidation)
				}
			}
			path := logging.LogFilePath(cfg.Paths.LogDir, day)
			return streamLogs(cmd.Context(), cmd.OutOrStdout(), path, lines, follow, filter, raw)
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing log lines to scan")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new entries until interrupted")
	cmd.Flags().StringVar(&runID, "run", "", "Only show entries for this run id or prefix")
	cmd.Flags().StringVar(&stage, "stage", "", "Only show entries for this stage (probe, analyze, build, align, plan, execute)")
	cmd.Flags().StringVar(&level, "level", "info", "Minimum level to show (debug, info, warn, error)")
	cmd.Flags().StringVar(&date, "date", "", "Read the log for this day instead of today (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print matching JSON lines unchanged")
	return cmd
}

func streamLogs(ctx context.Context, out io.Writer, path string, lines int, follow bool, filter logs.Filter, raw bool) error {
	result, err := logs.Tail(ctx, path, logs.TailOptions{Offset: -1, Limit: lines})
	if err != nil {
		return err
	}
	printed := printRecords(out, filter.Apply(result.Lines), raw)
	if !follow {
		if printed == 0 {
			fmt.Fprintf(out, "No matching log entries in %s\n", path)
		}
		return nil
	}

	offset := result.Offset
	for {
		next, err := logs.Tail(ctx, path, logs.TailOptions{Offset: offset, Follow: true, Wait: 2 * time.Second})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			return err
		}
		offset = next.Offset
		printRecords(out, filter.Apply(next.Lines), raw)
	}
}

func printRecords(out io.Writer, records []logs.Record, raw bool) int {
	for _, rec := range records {
		if raw {
			fmt.Fprintln(out, rec.Raw)
			continue
		}
		fmt.Fprintln(out, formatRecord(rec))
	}
	return len(records)
}

func formatRecord(rec logs.Record) string {
	var b strings.Builder
	ts := rec.Time
	if parsed, err := time.Parse(time.RFC3339Nano, rec.Time); err == nil {
		ts = parsed.Local().Format("15:04:05")
	}
	fmt.Fprintf(&b, "%s %-5s", ts, strings.ToUpper(levelName(rec.Level)))
	if rec.Stage != "" {
		fmt.Fprintf(&b, " [%s]", rec.Stage)
	}
	b.WriteString(" ")
	b.WriteString(rec.Message)

	keys := make([]string, 0, len(rec.Fields))
	for key := range rec.Fields {
		if !logFields[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%v", key, rec.Fields[key])
	}
	return b.String()
}

func levelName(level string) string {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return level
	}
	return lvl.String()
}
