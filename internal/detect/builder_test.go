package detect

import (
	"slices"
	"testing"

	"stillcut/internal/timeline"
)

func sec(t *testing.T, value string) timeline.Timestamp {
	t.Helper()
	ts, err := timeline.ParseSeconds(value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return ts
}

func ev(t *testing.T, marker int, at string) Event {
	t.Helper()
	return Event{Time: sec(t, at), Marker: marker, Signal: ParseMarker(marker)}
}

func settings(t *testing.T, minDrop, minKeep string) Settings {
	t.Helper()
	return Settings{MinDrop: sec(t, minDrop), MinKeep: sec(t, minKeep)}
}

func assertIntervals(t *testing.T, got []timeline.Interval, want ...timeline.Interval) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d intervals %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("interval %d = %s, want %s (all: %v)", i, got[i], want[i], got)
		}
	}
}

func TestBuildShortRunIsNotCut(t *testing.T) {
	events := []Event{ev(t, 0, "0"), ev(t, -1, "1.0"), ev(t, -2, "4.0"), ev(t, 0, "10")}
	got := Build(slices.Values(events), settings(t, "5", "1"))
	assertIntervals(t, got, timeline.From(timeline.Zero))
}

func TestBuildRunAtLeastMinDropIsCut(t *testing.T) {
	events := []Event{ev(t, 0, "0"), ev(t, -1, "1.0"), ev(t, -2, "4.0"), ev(t, 0, "10")}
	got := Build(slices.Values(events), settings(t, "2", "1"))
	assertIntervals(t, got,
		timeline.Span(timeline.Zero, sec(t, "1.0")),
		timeline.From(sec(t, "4.0")),
	)
}

func TestBuildTinyRunKeepsWholeClip(t *testing.T) {
	events := []Event{ev(t, -1, "2.0"), ev(t, -2, "2.5"), ev(t, 0, "9")}
	got := Build(slices.Values(events), settings(t, "5", "1"))
	assertIntervals(t, got, timeline.From(timeline.Zero))
}

func TestBuildMergesRunsSeparatedByShortGap(t *testing.T) {
	events := []Event{
		ev(t, -1, "1"), ev(t, -2, "4"),
		ev(t, -1, "5"), ev(t, -3, "9"),
		ev(t, 0, "20"),
	}
	got := Build(slices.Values(events), settings(t, "2", "1"))
	assertIntervals(t, got,
		timeline.Span(timeline.Zero, sec(t, "1")),
		timeline.From(sec(t, "9")),
	)
}

func TestBuildSeparateRunsWhenGapExceedsMinDrop(t *testing.T) {
	events := []Event{
		ev(t, -1, "1"), ev(t, -2, "4"),
		ev(t, -1, "10"), ev(t, -2, "14"),
		ev(t, 0, "30"),
	}
	got := Build(slices.Values(events), settings(t, "2", "1"))
	assertIntervals(t, got,
		timeline.Span(timeline.Zero, sec(t, "1")),
		timeline.Span(sec(t, "4"), sec(t, "10")),
		timeline.From(sec(t, "14")),
	)
}

func TestBuildRepeatedRunEndDoesNotExtendClosedRun(t *testing.T) {
	events := []Event{
		ev(t, -1, "1"), ev(t, -2, "4"), ev(t, -3, "4.04"), ev(t, -4, "4.08"),
		ev(t, 0, "10"),
	}
	got := Build(slices.Values(events), settings(t, "2", "1"))
	assertIntervals(t, got,
		timeline.Span(timeline.Zero, sec(t, "1")),
		timeline.From(sec(t, "4")),
	)
}

func TestBuildSingleDropDiscardsFreshRun(t *testing.T) {
	events := []Event{
		ev(t, -1, "1"), ev(t, 1, "1.04"), ev(t, -2, "8"),
		ev(t, 0, "12"),
	}
	got := Build(slices.Values(events), settings(t, "2", "1"))
	assertIntervals(t, got, timeline.From(timeline.Zero))
}

func TestBuildSingleDropIgnoredAfterRunCloses(t *testing.T) {
	events := []Event{
		ev(t, -1, "1"), ev(t, -2, "5"), ev(t, 1, "5.5"),
		ev(t, 0, "12"),
	}
	got := Build(slices.Values(events), settings(t, "2", "1"))
	assertIntervals(t, got,
		timeline.Span(timeline.Zero, sec(t, "1")),
		timeline.From(sec(t, "5")),
	)
}

func TestBuildSingleDropIgnoredOnResumedRun(t *testing.T) {
	events := []Event{
		ev(t, -1, "1"), ev(t, -2, "5"),
		ev(t, -1, "6"), ev(t, 1, "6.04"), ev(t, -2, "9"),
		ev(t, 0, "12"),
	}
	got := Build(slices.Values(events), settings(t, "2", "1"))
	assertIntervals(t, got,
		timeline.Span(timeline.Zero, sec(t, "1")),
		timeline.From(sec(t, "9")),
	)
}

func TestBuildOpenRunAtEndOfStreamKeepsTail(t *testing.T) {
	events := []Event{
		ev(t, -1, "1"), ev(t, -2, "5"),
		ev(t, -1, "20"), ev(t, 0, "30"),
	}
	got := Build(slices.Values(events), settings(t, "2", "1"))
	assertIntervals(t, got,
		timeline.Span(timeline.Zero, sec(t, "1")),
		timeline.From(sec(t, "5")),
	)
}

func TestBuildRunClosingOnLastFrameKeepsTail(t *testing.T) {
	events := []Event{ev(t, -1, "1"), ev(t, -2, "6")}
	got := Build(slices.Values(events), settings(t, "2", "1"))
	assertIntervals(t, got, timeline.From(timeline.Zero))
}

func TestBuildResumedRunAtEndOfStreamCutsConfirmedPart(t *testing.T) {
	events := []Event{
		ev(t, -1, "1"), ev(t, -2, "5"),
		ev(t, -1, "6"), ev(t, 0, "8"),
	}
	got := Build(slices.Values(events), settings(t, "2", "1"))
	assertIntervals(t, got,
		timeline.Span(timeline.Zero, sec(t, "1")),
		timeline.From(sec(t, "5")),
	)
}

func TestBuildFiltersShortKeepIntervals(t *testing.T) {
	events := []Event{
		ev(t, -1, "0.5"), ev(t, -2, "4"),
		ev(t, -1, "10"), ev(t, -2, "14"),
		ev(t, 0, "30"),
	}
	got := Build(slices.Values(events), settings(t, "2", "1"))
	assertIntervals(t, got,
		timeline.Span(sec(t, "4"), sec(t, "10")),
		timeline.From(sec(t, "14")),
	)
}

func TestBuildRunFromStreamStartDropsEmptyPrefix(t *testing.T) {
	events := []Event{ev(t, -1, "0"), ev(t, -2, "6"), ev(t, 0, "20")}
	got := Build(slices.Values(events), settings(t, "5", "0"))
	assertIntervals(t, got, timeline.From(sec(t, "6")))
}

func TestBuildIgnoresRunEndWithoutRun(t *testing.T) {
	events := []Event{ev(t, -2, "1"), ev(t, 1, "2"), ev(t, 0, "3")}
	got := Build(slices.Values(events), DefaultSettings())
	assertIntervals(t, got, timeline.From(timeline.Zero))
}

func TestBuildEmptyStream(t *testing.T) {
	got := Build(slices.Values([]Event(nil)), DefaultSettings())
	assertIntervals(t, got, timeline.From(timeline.Zero))
}

func TestBuilderFeedLineAndStats(t *testing.T) {
	b := NewBuilder(settings(t, "2", "1"))
	lines := []string{
		"noise",
		"[Parsed_mpdecimate_0 @ 0x1] drop pts:1 pts_time:1 drop_count:-1",
		"[Parsed_mpdecimate_0 @ 0x1] keep pts:2 pts_time:4 drop_count:-2",
		"[Parsed_mpdecimate_0 @ 0x1] keep pts:3 pts_time:10 drop_count:0",
	}
	fed := 0
	for _, line := range lines {
		if b.FeedLine(line) {
			fed++
		}
	}
	if fed != 3 {
		t.Fatalf("expected 3 lines fed, got %d", fed)
	}
	got := b.Finish()
	assertIntervals(t, got,
		timeline.Span(timeline.Zero, sec(t, "1")),
		timeline.From(sec(t, "4")),
	)
	stats := b.Stats()
	if stats.Events != 3 || stats.Runs != 1 || stats.CutRuns != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if !stats.LastSeen.Equal(sec(t, "10")) {
		t.Fatalf("unexpected last seen: %s", stats.LastSeen)
	}
}

func TestBuildOutputIsOrdered(t *testing.T) {
	var events []Event
	for i := 0; i < 50; i++ {
		base := int64(i * 20)
		events = append(events,
			Event{Time: timeline.Seconds(base + 3), Marker: -1, Signal: RunStart},
			Event{Time: timeline.Seconds(base + 10), Marker: -2, Signal: RunEnd},
		)
	}
	events = append(events, Event{Time: timeline.Seconds(2000), Signal: NoOp})
	got := Build(slices.Values(events), settings(t, "5", "1"))
	if err := timeline.Validate(got); err != nil {
		t.Fatalf("builder output violates ordering: %v", err)
	}
	if len(got) != 51 {
		t.Fatalf("expected 51 intervals, got %d", len(got))
	}
}
