package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"stillcut/internal/services"
	"stillcut/internal/workdir"
)

func newCleanCommand(ctx *commandContext) *cobra.Command {
	var maxAge time.Duration
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove abandoned run directories from the work directory",
		Long: `Remove run directories left in paths.work_dir by interrupted runs or
--keep-work-dir, along with lock files no running stillcut holds.

Directories younger than --max-age are kept so an active run is never touched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if maxAge < 0 {
				return fmt.Errorf("%w: --max-age must not be negative", services.ErrValidation)
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			result := workdir.CleanStale(cmd.Context(), cfg.Paths.WorkDir, maxAge, logger)
			if jsonOut {
				errs := make([]string, 0, len(result.Errors))
				for _, e := range result.Errors {
					errs = append(errs, fmt.Sprintf("%s: %v", e.Path, e.Error))
				}
				return writeJSON(cmd, map[string]any{
					"work_dir": cfg.Paths.WorkDir,
					"removed":  result.Removed,
					"errors":   errs,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Removed %d stale entries from %s\n", len(result.Removed), cfg.Paths.WorkDir)
			for _, e := range result.Errors {
				fmt.Fprintf(out, "  failed: %s: %v\n", e.Path, e.Error)
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d entries could not be removed", len(result.Errors))
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&maxAge, "max-age", staleRunAge, "Only remove run directories older than this")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON instead of text")
	return cmd
}
