package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"stillcut/internal/analysiscache"
	"stillcut/internal/config"
	"stillcut/internal/logging"
	"stillcut/internal/services"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the analysis cache",
	}

	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheRemoveCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	cacheCmd.AddCommand(newCachePruneCommand(ctx))

	return cacheCmd
}

// withCacheStore opens the cache for a maintenance command. A disabled cache
// prints a notice and runs nothing.
func (c *commandContext) withCacheStore(cmd *cobra.Command, fn func(*analysiscache.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.Cache.Enabled {
		fmt.Fprintln(cmd.OutOrStdout(), "Analysis cache disabled (cache.enabled = false)")
		return nil
	}
	store, err := analysiscache.Open(cmd.Context(), cfg.Paths.CachePath)
	if err != nil {
		return fmt.Errorf("%w: open analysis cache: %w", services.ErrConfiguration, err)
	}
	defer store.Close()
	return fn(store)
}

type cacheEntryJSON struct {
	Key           string    `json:"key"`
	Path          string    `json:"path"`
	SizeBytes     int64     `json:"size_bytes"`
	Filter        string    `json:"analyzer_filter"`
	EventCount    int       `json:"event_count"`
	KeyframeCount int       `json:"keyframe_count"`
	HasKeyframes  bool      `json:"has_keyframes"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached analyses",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCacheStore(cmd, func(store *analysiscache.Store) error {
				summaries, err := store.List(cmd.Context())
				if err != nil {
					return fmt.Errorf("list analysis cache: %w", err)
				}
				if jsonOut {
					entries := make([]cacheEntryJSON, 0, len(summaries))
					for _, s := range summaries {
						entries = append(entries, cacheEntryJSON{
							Key:           s.Key,
							Path:          s.Path,
							SizeBytes:     s.SizeBytes,
							Filter:        s.Filter,
							EventCount:    s.EventCount,
							KeyframeCount: s.KeyframeCount,
							HasKeyframes:  s.HasKeyframes,
							UpdatedAt:     s.UpdatedAt,
						})
					}
					return writeJSON(cmd, map[string]any{
						"cache_path": store.Path(),
						"entries":    entries,
					})
				}

				out := cmd.OutOrStdout()
				if len(summaries) == 0 {
					fmt.Fprintln(out, "Analysis cache is empty")
					return nil
				}
				rows := make([][]string, 0, len(summaries))
				for _, s := range summaries {
					keyframes := "-"
					if s.HasKeyframes {
						keyframes = strconv.Itoa(s.KeyframeCount)
					}
					key := s.Key
					if len(key) > 12 {
						key = key[:12]
					}
					rows = append(rows, []string{
						key,
						filepath.Base(s.Path),
						logging.FormatBytes(s.SizeBytes),
						strconv.Itoa(s.EventCount),
						keyframes,
						humanize.Time(s.UpdatedAt),
					})
				}
				fmt.Fprint(out, tableSpec{
					headers: []string{"Key", "Input", "Size", "Events", "Keyframes", "Age"},
					right:   []int{2, 3, 4, 5},
				}.render(rows))
				fmt.Fprintf(out, "\nTotal: %d entries in %s\n", len(summaries), store.Path())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON instead of a table")
	return cmd
}

func newCacheRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove INPUT",
		Short: "Forget the cached analysis of INPUT",
		Args:  inputArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			input, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("%w: %w", services.ErrValidation, err)
			}
			fp, err := analysiscache.NewFingerprint(input, cfg.Detection.AnalyzerFilter)
			if err != nil {
				return fmt.Errorf("%w: %w", services.ErrNotFound, err)
			}
			return ctx.withCacheStore(cmd, func(store *analysiscache.Store) error {
				removed, err := store.Remove(cmd.Context(), fp)
				if err != nil {
					return fmt.Errorf("remove cache entry: %w", err)
				}
				if !removed {
					fmt.Fprintf(cmd.OutOrStdout(), "No cached analysis for %s\n", input)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed cached analysis for %s\n", input)
				return nil
			})
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCacheStore(cmd, func(store *analysiscache.Store) error {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return fmt.Errorf("clear analysis cache: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cache entries\n", removed)
				return nil
			})
		},
	}
}

func newCachePruneCommand(ctx *commandContext) *cobra.Command {
	var maxAgeDays int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove analyses of changed or missing inputs and expired entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			days := cfg.Cache.MaxAgeDays
			if cmd.Flags().Changed("max-age-days") {
				days = maxAgeDays
			}
			if days < 0 {
				return fmt.Errorf("%w: --max-age-days must not be negative", services.ErrValidation)
			}
			return ctx.withCacheStore(cmd, func(store *analysiscache.Store) error {
				removed, err := store.Prune(cmd.Context(), time.Duration(days)*24*time.Hour)
				if err != nil {
					return fmt.Errorf("prune analysis cache: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d cache entries\n", removed)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&maxAgeDays, "max-age-days", 0, "Override cache.max_age_days (0 keeps entries regardless of age)")
	return cmd
}
