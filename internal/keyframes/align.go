package keyframes

import (
	"stillcut/internal/timeline"
)

// Align snaps intervals to the sorted keyframe list. The input must be
// ascending and non-overlapping; the output is as well. Aligned intervals are
// never shorter than their inputs.
func Align(intervals []timeline.Interval, keyframes []timeline.Timestamp) []timeline.Interval {
	if len(keyframes) == 0 {
		out := make([]timeline.Interval, len(intervals))
		copy(out, intervals)
		return out
	}

	out := make([]timeline.Interval, 0, len(intervals))
	cursor := 0
	for _, iv := range intervals {
		for cursor < len(keyframes) && keyframes[cursor].LessThan(iv.Start) {
			cursor++
		}
		start := iv.Start
		exact := cursor < len(keyframes) && keyframes[cursor].Equal(iv.Start)
		if !exact && cursor > 0 {
			start = keyframes[cursor-1]
		}

		aligned := timeline.Interval{Start: start, Open: iv.Open}
		if !iv.Open {
			for cursor < len(keyframes) && keyframes[cursor].LessThan(iv.End) {
				cursor++
			}
			aligned.End = iv.End
			if cursor < len(keyframes) {
				aligned.End = keyframes[cursor]
			}
		}

		if n := len(out); n > 0 && !out[n-1].Open && out[n-1].End.GreaterThanOrEqual(aligned.Start) {
			prev := &out[n-1]
			if aligned.Open {
				prev.Open = true
				prev.End = timeline.Zero
			} else {
				prev.End = timeline.Max(prev.End, aligned.End)
			}
			continue
		}
		out = append(out, aligned)
	}
	return out
}
