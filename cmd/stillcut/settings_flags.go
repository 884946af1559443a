package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"stillcut/internal/config"
	"stillcut/internal/detect"
	"stillcut/internal/services"
	"stillcut/internal/timeline"
)

// analysisFlags are shared by trim and detect.
type analysisFlags struct {
	minDrop       string
	minKeep       string
	fromLog       string
	keyframesFile string
	noCache       bool
}

func (f *analysisFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.minDrop, "min-drop", "", "Seconds a static run must last to be cut (default detection.min_drop)")
	cmd.Flags().StringVar(&f.minKeep, "min-keep", "", "Shortest kept span in seconds (default detection.min_keep)")
	cmd.Flags().StringVar(&f.fromLog, "from-log", "", "Replay a saved analyzer log instead of running ffmpeg")
	cmd.Flags().StringVar(&f.keyframesFile, "keyframes", "", "Keyframe list (one time per line) instead of probing the input")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "Bypass the analysis cache")
}

// thresholds holds the threshold flags that were set; nil means configured.
type thresholds struct {
	minDrop *timeline.Timestamp
	minKeep *timeline.Timestamp
}

func (f *analysisFlags) thresholds() (thresholds, error) {
	var out thresholds
	if value := strings.TrimSpace(f.minDrop); value != "" {
		ts, err := timeline.ParseSeconds(value)
		if err != nil || !ts.IsPositive() {
			return thresholds{}, fmt.Errorf("%w: --min-drop must be a positive number of seconds, got %q", services.ErrValidation, value)
		}
		out.minDrop = &ts
	}
	if value := strings.TrimSpace(f.minKeep); value != "" {
		ts, err := timeline.ParseSeconds(value)
		if err != nil {
			return thresholds{}, fmt.Errorf("%w: --min-keep must be a non-negative number of seconds, got %q", services.ErrValidation, value)
		}
		out.minKeep = &ts
	}
	return out, nil
}

// resolve overlays the set flags on the configured thresholds.
func (t thresholds) resolve(cfg *config.Config) detect.Settings {
	settings := cfg.DetectSettings()
	if t.minDrop != nil {
		settings.MinDrop = *t.minDrop
	}
	if t.minKeep != nil {
		settings.MinKeep = *t.minKeep
	}
	return settings
}
