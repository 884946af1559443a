package detect

import (
	"iter"

	"stillcut/internal/timeline"
)

// Settings controls which static runs are cut and which kept spans survive.
type Settings struct {
	// MinDrop is the length a static run must reach before it is cut, and the
	// gap after a run within which a following run is absorbed into it.
	MinDrop timeline.Timestamp
	// MinKeep is the shortest closed keep interval that survives filtering.
	MinKeep timeline.Timestamp
}

// DefaultSettings returns min_drop=5s and min_keep=1s.
func DefaultSettings() Settings {
	return Settings{
		MinDrop: timeline.Seconds(5),
		MinKeep: timeline.Seconds(1),
	}
}

type runState int

const (
	// runOpen is a run that has started and not yet ended.
	runOpen runState = iota
	// runResumed is a closed run reopened because another run began within
	// MinDrop of its end; end keeps the last confirmed boundary.
	runResumed
	runClosed
)

type run struct {
	start timeline.Timestamp
	end   timeline.Timestamp
	state runState
}

// Stats summarizes what the builder observed.
type Stats struct {
	Events     int
	Runs       int
	CutRuns    int
	Discarded  int
	LastSeen   timeline.Timestamp
	KeepBefore int
	KeepAfter  int
}

// Builder consumes events in timestamp order and produces keep intervals.
// A RunEnd closes the open or resumed last run and is ignored once that run
// is closed, so a run's end is its first end notification rather than the
// latest one. A repeated RunEnd never stretches a cut past the frame where
// motion came back. It is not safe for concurrent use.
type Builder struct {
	settings  Settings
	runs      []run
	lastSeen  timeline.Timestamp
	events    int
	discarded int
	stats     Stats
}

// NewBuilder constructs a builder with the provided thresholds.
func NewBuilder(settings Settings) *Builder {
	return &Builder{settings: settings}
}

// FeedLine parses one analyzer line and feeds it when it carries an event.
func (b *Builder) FeedLine(line string) bool {
	ev, ok := ParseLine(line)
	if !ok {
		return false
	}
	b.Feed(ev)
	return true
}

// Feed applies one event to the run list.
func (b *Builder) Feed(ev Event) {
	b.events++
	b.lastSeen = ev.Time

	switch ev.Signal {
	case RunStart:
		if len(b.runs) == 0 {
			b.runs = append(b.runs, run{start: ev.Time, state: runOpen})
			return
		}
		last := &b.runs[len(b.runs)-1]
		if last.state != runClosed {
			return
		}
		if ev.Time.Sub(last.end).GreaterThan(b.settings.MinDrop) {
			b.runs = append(b.runs, run{start: ev.Time, state: runOpen})
			return
		}
		// The kept sliver since the previous run is too short to split the
		// footage; the previous run continues.
		last.state = runResumed
	case RunEnd:
		if len(b.runs) == 0 {
			return
		}
		last := &b.runs[len(b.runs)-1]
		if last.state == runClosed {
			return
		}
		last.end = ev.Time
		last.state = runClosed
	case SingleDrop:
		// An isolated drop right after a run opened means the run never
		// really started; forget it rather than leave it dangling.
		if n := len(b.runs); n > 0 && b.runs[n-1].state == runOpen {
			b.runs = b.runs[:n-1]
			b.discarded++
		}
	}
}

// Finish finalizes the run list and returns the keep intervals. The builder
// can keep receiving events afterwards; Finish leaves the run list untouched.
func (b *Builder) Finish() []timeline.Interval {
	runs := make([]run, len(b.runs))
	copy(runs, b.runs)

	// A run still open at end of stream, or one that closed on the final
	// frame, leaves the tail kept and unbounded.
	if n := len(runs); n > 0 {
		last := runs[n-1]
		if last.state == runOpen || last.end.Equal(b.lastSeen) {
			runs = runs[:n-1]
		}
	}

	cursor := timeline.Zero
	keeps := make([]timeline.Interval, 0, len(runs)+1)
	cut := 0
	for _, r := range runs {
		if r.end.Sub(r.start).LessThan(b.settings.MinDrop) {
			continue
		}
		keeps = append(keeps, timeline.Span(cursor, r.start))
		cursor = r.end
		cut++
	}
	keeps = append(keeps, timeline.From(cursor))

	filtered := filterShort(keeps, b.settings.MinKeep)

	b.stats = Stats{
		Events:     b.events,
		Runs:       len(b.runs),
		CutRuns:    cut,
		Discarded:  b.discarded,
		LastSeen:   b.lastSeen,
		KeepBefore: len(keeps),
		KeepAfter:  len(filtered),
	}
	return filtered
}

// Stats reports counters captured by the most recent Finish call.
func (b *Builder) Stats() Stats {
	return b.stats
}

// Build runs the state machine over a complete event sequence.
func Build(events iter.Seq[Event], settings Settings) []timeline.Interval {
	builder := NewBuilder(settings)
	for ev := range events {
		builder.Feed(ev)
	}
	return builder.Finish()
}

func filterShort(intervals []timeline.Interval, minKeep timeline.Timestamp) []timeline.Interval {
	out := make([]timeline.Interval, 0, len(intervals))
	for _, iv := range intervals {
		if d, closed := iv.Duration(); closed && (d.IsZero() || d.LessThan(minKeep)) {
			continue
		}
		out = append(out, iv)
	}
	return out
}
