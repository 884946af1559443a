package plan

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"stillcut/internal/timeline"
)

func secs(t *testing.T, value string) timeline.Timestamp {
	t.Helper()
	parsed, err := timeline.ParseSeconds(value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return parsed
}

func hasPair(args []string, flag, value string) bool {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(" Copy "); err != nil || m != ModeCopy {
		t.Fatalf("ParseMode copy = %q, %v", m, err)
	}
	if m, err := ParseMode("reencode"); err != nil || m != ModeReencode {
		t.Fatalf("ParseMode reencode = %q, %v", m, err)
	}
	if _, err := ParseMode("lossless"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestNewCopyBuildsSegmentsAndConcat(t *testing.T) {
	work := t.TempDir()
	intervals := []timeline.Interval{
		timeline.Span(timeline.Zero, secs(t, "1")),
		timeline.From(secs(t, "4")),
	}
	p, err := NewCopy("/media/clip.mp4", "/media/clip.stillcut.mp4", work, intervals)
	if err != nil {
		t.Fatalf("NewCopy: %v", err)
	}
	if len(p.Segments) != 2 || len(p.Jobs) != 3 {
		t.Fatalf("expected 2 segments and 3 jobs, got %d/%d", len(p.Segments), len(p.Jobs))
	}
	if got := filepath.Base(p.Segments[1].Path); got != "segment-0002.mp4" {
		t.Fatalf("unexpected segment name %q", got)
	}

	first := p.Jobs[0].Args
	if !hasPair(first, "-ss", "00:00:00.000000") || !hasPair(first, "-to", "00:00:01.000000") {
		t.Fatalf("segment 1 missing seek bounds: %v", first)
	}
	if !hasPair(first, "-i", "/media/clip.mp4") || !hasPair(first, "-c", "copy") {
		t.Fatalf("segment 1 missing input or copy codec: %v", first)
	}
	if !slices.Contains(first, "-y") {
		t.Fatalf("segment args should overwrite: %v", first)
	}

	tail := p.Jobs[1].Args
	if !hasPair(tail, "-ss", "00:00:04.000000") {
		t.Fatalf("tail segment missing start: %v", tail)
	}
	if slices.Contains(tail, "-to") {
		t.Fatalf("open segment must not carry -to: %v", tail)
	}

	concat := p.Jobs[2].Args
	if !hasPair(concat, "-f", "concat") || !hasPair(concat, "-safe", "0") || !hasPair(concat, "-i", p.ConcatList) {
		t.Fatalf("unexpected concat args: %v", concat)
	}
	if !slices.Contains(concat, "/media/clip.stillcut.mp4") {
		t.Fatalf("concat args missing output: %v", concat)
	}

	if err := p.WriteConcatList(); err != nil {
		t.Fatalf("WriteConcatList: %v", err)
	}
	data, err := os.ReadFile(p.ConcatList)
	if err != nil {
		t.Fatalf("read concat list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "file '") {
		t.Fatalf("unexpected concat list %q", data)
	}
}

func TestNewCopyDefaultsExtension(t *testing.T) {
	p, err := NewCopy("/media/clip", "/media/out.mkv", t.TempDir(), []timeline.Interval{timeline.From(timeline.Zero)})
	if err != nil {
		t.Fatalf("NewCopy: %v", err)
	}
	if filepath.Ext(p.Segments[0].Path) != ".mkv" {
		t.Fatalf("expected .mkv segment, got %s", p.Segments[0].Path)
	}
}

func TestPlanRejectsBadIntervals(t *testing.T) {
	if _, err := NewCopy("in.mp4", "out.mp4", t.TempDir(), nil); !errors.Is(err, ErrNoIntervals) {
		t.Fatalf("expected ErrNoIntervals, got %v", err)
	}
	overlapping := []timeline.Interval{
		timeline.Span(timeline.Zero, secs(t, "5")),
		timeline.Span(secs(t, "3"), secs(t, "8")),
	}
	if _, err := NewReencode("in.mp4", "out.mp4", overlapping, Encoding{}); err == nil {
		t.Fatal("expected overlap error")
	}
}

func TestConcatListEscapesQuotes(t *testing.T) {
	got := ConcatListContent([]Segment{{Path: "/tmp/it's/segment-0001.mkv"}})
	want := "file '/tmp/it'\\''s/segment-0001.mkv'\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFilterGraph(t *testing.T) {
	intervals := []timeline.Interval{
		timeline.Span(timeline.Zero, secs(t, "1")),
		timeline.From(secs(t, "4")),
	}
	got := FilterGraph(intervals, true)
	want := "[0:v]trim=start=0.000000:end=1.000000,setpts=PTS-STARTPTS[v0];" +
		"[0:a]atrim=start=0.000000:end=1.000000,asetpts=PTS-STARTPTS[a0];" +
		"[0:v]trim=start=4.000000,setpts=PTS-STARTPTS[v1];" +
		"[0:a]atrim=start=4.000000,asetpts=PTS-STARTPTS[a1];" +
		"[v0][a0][v1][a1]concat=n=2:v=1:a=1[outv][outa]"
	if got != want {
		t.Fatalf("graph mismatch\n got: %s\nwant: %s", got, want)
	}
}

func TestFilterGraphWithoutAudio(t *testing.T) {
	got := FilterGraph([]timeline.Interval{timeline.From(secs(t, "2.5"))}, false)
	want := "[0:v]trim=start=2.500000,setpts=PTS-STARTPTS[v0];[v0]concat=n=1:v=1:a=0[outv]"
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestNewReencodeArgs(t *testing.T) {
	intervals := []timeline.Interval{timeline.Span(secs(t, "1"), secs(t, "2")), timeline.From(secs(t, "8"))}
	enc := Encoding{VideoCodec: "libx264", AudioCodec: "aac", Preset: "medium", CRF: 20, HasAudio: true}
	p, err := NewReencode("in.mkv", "out.mkv", intervals, enc)
	if err != nil {
		t.Fatalf("NewReencode: %v", err)
	}
	if len(p.Jobs) != 1 {
		t.Fatalf("expected one job, got %d", len(p.Jobs))
	}
	args := p.Jobs[0].Args
	for _, pair := range [][2]string{
		{"-i", "in.mkv"},
		{"-filter_complex", p.Graph},
		{"-map", "[outv]"},
		{"-map", "[outa]"},
		{"-c:v", "libx264"},
		{"-c:a", "aac"},
		{"-preset", "medium"},
		{"-crf", "20"},
	} {
		if !hasPair(args, pair[0], pair[1]) {
			t.Fatalf("missing %s %s in %v", pair[0], pair[1], args)
		}
	}
	if !slices.Contains(args, "out.mkv") {
		t.Fatalf("missing output in %v", args)
	}
	if err := p.WriteConcatList(); err != nil {
		t.Fatalf("WriteConcatList on reencode plan: %v", err)
	}
}

func TestReencodeArgsVideoOnly(t *testing.T) {
	args := ReencodeArgs("in.mkv", "out.mkv", "graph", Encoding{VideoCodec: "libx264", AudioCodec: "aac"})
	if hasPair(args, "-map", "[outa]") || hasPair(args, "-c:a", "aac") {
		t.Fatalf("video-only args should not map audio: %v", args)
	}
}

func TestKeptDurationMatchesSegments(t *testing.T) {
	intervals := []timeline.Interval{
		timeline.Span(secs(t, "0"), secs(t, "1.1")),
		timeline.Span(secs(t, "4.2"), secs(t, "7.3")),
		timeline.From(secs(t, "9.4")),
	}
	p, err := NewReencode("in.mkv", "out.mkv", intervals, Encoding{HasAudio: true})
	if err != nil {
		t.Fatalf("NewReencode: %v", err)
	}
	total := secs(t, "10")
	got := p.KeptDuration(total)
	// 1.1 + 3.1 + 0.6
	if !got.Equal(secs(t, "4.8")) {
		t.Fatalf("kept duration = %s, want 4.8", got)
	}
	removed := total.Sub(got)
	if !removed.Add(got).Equal(total) {
		t.Fatalf("kept and removed must sum to total")
	}
}
