package keyframes

import (
	"strings"
	"testing"

	"stillcut/internal/timeline"
)

func ts(t *testing.T, value string) timeline.Timestamp {
	t.Helper()
	parsed, err := timeline.ParseSeconds(value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return parsed
}

func list(t *testing.T, values ...string) []timeline.Timestamp {
	t.Helper()
	out := make([]timeline.Timestamp, 0, len(values))
	for _, v := range values {
		out = append(out, ts(t, v))
	}
	return out
}

func span(t *testing.T, start, end string) timeline.Interval {
	t.Helper()
	return timeline.Span(ts(t, start), ts(t, end))
}

func from(t *testing.T, start string) timeline.Interval {
	t.Helper()
	return timeline.From(ts(t, start))
}

func assertEqual(t *testing.T, got, want []timeline.Interval) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("interval %d = %s, want %s (got %v)", i, got[i], want[i], got)
		}
	}
}

func TestAlignEmptyKeyframesIsIdentity(t *testing.T) {
	in := []timeline.Interval{span(t, "0", "1.5"), span(t, "4.2", "7.9"), from(t, "12.1")}
	got := Align(in, nil)
	assertEqual(t, got, in)
	got[0].Start = ts(t, "99")
	if in[0].Start.Equal(got[0].Start) {
		t.Fatal("Align must not alias its input")
	}
}

func TestAlignSnapsOutward(t *testing.T) {
	kf := list(t, "0", "2", "4", "6", "8", "10", "12", "14")
	in := []timeline.Interval{span(t, "0.5", "3.1"), span(t, "9", "9.5"), from(t, "13")}
	got := Align(in, kf)
	assertEqual(t, got, []timeline.Interval{span(t, "0", "4"), span(t, "8", "10"), from(t, "12")})
}

func TestAlignExactKeyframesUnchanged(t *testing.T) {
	kf := list(t, "0", "2", "4", "6", "8")
	in := []timeline.Interval{span(t, "2", "4"), from(t, "8")}
	assertEqual(t, Align(in, kf), in)
}

func TestAlignStartBeforeFirstKeyframeUnchanged(t *testing.T) {
	kf := list(t, "1", "3")
	in := []timeline.Interval{span(t, "0.5", "2")}
	assertEqual(t, Align(in, kf), []timeline.Interval{span(t, "0.5", "3")})
}

func TestAlignEndPastLastKeyframeUnchanged(t *testing.T) {
	kf := list(t, "0", "2")
	in := []timeline.Interval{span(t, "1", "5")}
	assertEqual(t, Align(in, kf), []timeline.Interval{span(t, "0", "5")})
}

func TestAlignMergesTouchingIntervals(t *testing.T) {
	kf := list(t, "0", "5", "10", "15")
	in := []timeline.Interval{span(t, "1", "6"), span(t, "8", "12"), from(t, "14")}
	got := Align(in, kf)
	// [1,6) -> [0,10); [8,12) -> [5,15) merges; [14,end) -> [10,end) merges.
	assertEqual(t, got, []timeline.Interval{from(t, "0")})
}

func TestAlignMergesClosedIntoClosed(t *testing.T) {
	kf := list(t, "0", "5", "10", "20", "30")
	in := []timeline.Interval{span(t, "1", "4"), span(t, "6", "9"), span(t, "22", "25")}
	got := Align(in, kf)
	assertEqual(t, got, []timeline.Interval{span(t, "0", "10"), span(t, "20", "30")})
}

func TestAlignProperties(t *testing.T) {
	kf := make([]timeline.Timestamp, 0, 120)
	for i := int64(0); i < 120; i++ {
		kf = append(kf, timeline.Seconds(i).Mul(ts(t, "2.002")))
	}
	var in []timeline.Interval
	for i := int64(0); i < 30; i++ {
		start := timeline.Seconds(i * 8).Add(ts(t, "0.7"))
		in = append(in, timeline.Span(start, start.Add(ts(t, "3.3"))))
	}
	in = append(in, timeline.From(timeline.Seconds(245)))

	got := Align(in, kf)
	if err := timeline.Validate(got); err != nil {
		t.Fatalf("aligned output invalid: %v", err)
	}
	for _, orig := range in {
		covered := false
		for _, iv := range got {
			if iv.Start.GreaterThan(orig.Start) {
				continue
			}
			if iv.Open || (!orig.Open && iv.End.GreaterThanOrEqual(orig.End)) {
				covered = true
				break
			}
		}
		if !covered {
			t.Fatalf("input %s is not covered by aligned output %v", orig, got)
		}
	}
	for _, iv := range got {
		if !onKeyframe(iv.Start, kf) {
			t.Fatalf("start %s is not a keyframe", iv.Start)
		}
	}
}

func onKeyframe(value timeline.Timestamp, kf []timeline.Timestamp) bool {
	for _, k := range kf {
		if k.Equal(value) {
			return true
		}
	}
	return false
}

func TestParseList(t *testing.T) {
	input := strings.Join([]string{"4.004000", "0.000000", "", "N/A", "2.002000,", "4.004", "6.006000"}, "\n")
	got, err := ParseList(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseList: %v", err)
	}
	want := list(t, "0", "2.002", "4.004", "6.006")
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("keyframe %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestParseListRejectsGarbage(t *testing.T) {
	if _, err := ParseList(strings.NewReader("0.0\nabc\n")); err == nil {
		t.Fatal("expected error for non-numeric line")
	}
}

func TestParseListKeepsNegativeTimes(t *testing.T) {
	got, err := ParseList(strings.NewReader("2.002\n-0.042\n"))
	if err != nil {
		t.Fatalf("ParseList: %v", err)
	}
	if len(got) != 2 || got[0].String() != "-0.042" {
		t.Fatalf("unexpected keyframes: %v", got)
	}
}

func TestClampNegative(t *testing.T) {
	kfs, err := ParseList(strings.NewReader("-0.083\n-0.042\n0\n2.002\n"))
	if err != nil {
		t.Fatalf("ParseList: %v", err)
	}
	got, clamped := ClampNegative(kfs)
	if clamped != 2 {
		t.Fatalf("clamped = %d, want 2", clamped)
	}
	want := list(t, "0", "2.002")
	if len(got) != len(want) || !got[0].Equal(want[0]) || !got[1].Equal(want[1]) {
		t.Fatalf("got %v, want %v", got, want)
	}

	untouched, clamped := ClampNegative(list(t, "0", "1"))
	if clamped != 0 || len(untouched) != 2 {
		t.Fatalf("unexpected clamp of non-negative list: %v (%d)", untouched, clamped)
	}
}

func TestFormatRoundTrip(t *testing.T) {
	kf := list(t, "0", "1.5", "3.000001")
	var b strings.Builder
	if err := Format(&b, kf); err != nil {
		t.Fatalf("Format: %v", err)
	}
	if b.String() != "0.000000\n1.500000\n3.000001\n" {
		t.Fatalf("unexpected output %q", b.String())
	}
	back, err := ParseList(strings.NewReader(b.String()))
	if err != nil || len(back) != 3 {
		t.Fatalf("round trip failed: %v %v", back, err)
	}
}
