package trim

import (
	"errors"

	"stillcut/internal/detect"
	"stillcut/internal/plan"
	"stillcut/internal/timeline"
)

var (
	// ErrNothingToKeep reports that every span of the input would be removed.
	ErrNothingToKeep = errors.New("nothing to keep: the whole input is near-static")
	// ErrNothingToDrop reports that the whole input would be kept.
	ErrNothingToDrop = errors.New("nothing to drop: no near-static run is long enough")
)

// Analysis sources reported in results and logs.
const (
	SourceAnalyzer = "analyzer"
	SourceCache    = "cache"
	SourceLog      = "log"
)

// Request describes one invocation. Zero values fall back to configuration.
type Request struct {
	Input  string
	Output string
	Mode   plan.Mode
	// MinDrop and MinKeep override the configured thresholds when set.
	MinDrop *timeline.Timestamp
	MinKeep *timeline.Timestamp
	// FromLog replays a saved analyzer log instead of running ffmpeg.
	FromLog string
	// KeyframesFile supplies a prober-format keyframe list.
	KeyframesFile string
	// Align snaps detected intervals to keyframes (Detect only; Run aligns
	// whenever the mode is copy).
	Align       bool
	DryRun      bool
	KeepWorkDir bool
	NoCache     bool
	Overwrite   bool
}

// Detection is the outcome of analysis and interval building.
type Detection struct {
	Input     string
	Settings  detect.Settings
	Source    string
	Stats     detect.Stats
	Intervals []timeline.Interval
	// Aligned is nil unless alignment ran.
	Aligned   []timeline.Interval
	Keyframes int
	// Duration is the probed source duration; zero when unknown.
	Duration timeline.Timestamp
	HasAudio bool
}

// Total returns the probed duration, falling back to the last analyzer
// timestamp when the prober reported none.
func (d *Detection) Total() timeline.Timestamp {
	if d.Duration.IsPositive() {
		return d.Duration
	}
	return d.Stats.LastSeen
}

// WholeInput reports whether intervals keep the entire input unchanged.
func WholeInput(intervals []timeline.Interval) bool {
	return len(intervals) == 1 && intervals[0].Equal(timeline.From(timeline.Zero))
}

// Final returns the aligned intervals when alignment ran, else the built ones.
func (d *Detection) Final() []timeline.Interval {
	if d.Aligned != nil {
		return d.Aligned
	}
	return d.Intervals
}

// Result is the outcome of a completed (or dry) run.
type Result struct {
	RunID     string
	Output    string
	Mode      plan.Mode
	Detection *Detection
	Plan      *plan.Plan
	// Commands holds the rendered ffmpeg command lines of a dry run.
	Commands []string
	Kept     timeline.Timestamp
	Removed  timeline.Timestamp
	DryRun   bool
}
