package timeline

import (
	"errors"
	"fmt"
)

// Interval is a span of the source. When Open is true the span runs to the end
// of the stream and End is meaningless.
type Interval struct {
	Start Timestamp
	End   Timestamp
	Open  bool
}

// Span returns a closed interval.
func Span(start, end Timestamp) Interval {
	return Interval{Start: start, End: end}
}

// From returns an interval that runs from start to the end of the stream.
func From(start Timestamp) Interval {
	return Interval{Start: start, Open: true}
}

// Duration returns End-Start for closed intervals. The boolean is false for
// open intervals, whose length is unknown without the source duration.
func (iv Interval) Duration() (Timestamp, bool) {
	if iv.Open {
		return Zero, false
	}
	return iv.End.Sub(iv.Start), true
}

// DurationWithin returns the interval length, resolving an open end against
// the total source duration.
func (iv Interval) DurationWithin(total Timestamp) Timestamp {
	if !iv.Open {
		return iv.End.Sub(iv.Start)
	}
	if total.LessThanOrEqual(iv.Start) {
		return Zero
	}
	return total.Sub(iv.Start)
}

// Equal reports whether two intervals describe the same span.
func (iv Interval) Equal(other Interval) bool {
	if iv.Open != other.Open || !iv.Start.Equal(other.Start) {
		return false
	}
	return iv.Open || iv.End.Equal(other.End)
}

func (iv Interval) String() string {
	if iv.Open {
		return fmt.Sprintf("[%s, end)", FormatSeconds(iv.Start))
	}
	return fmt.Sprintf("[%s, %s)", FormatSeconds(iv.Start), FormatSeconds(iv.End))
}

// EndLabel renders the end for display, using "end" for open intervals.
func (iv Interval) EndLabel() string {
	if iv.Open {
		return "end"
	}
	return FormatClock(iv.End)
}

// TotalDuration sums the interval lengths. Open intervals are resolved against
// total; pass Zero when the source length is unknown to count them as empty.
func TotalDuration(intervals []Interval, total Timestamp) Timestamp {
	sum := Zero
	for _, iv := range intervals {
		sum = sum.Add(iv.DurationWithin(total))
	}
	return sum
}

// ErrUnordered reports an interval list that violates ordering invariants.
var ErrUnordered = errors.New("intervals must be ascending and non-overlapping")

// Validate checks that closed intervals are well formed, the list is ascending
// and non-overlapping, and only the final interval is open.
func Validate(intervals []Interval) error {
	for i, iv := range intervals {
		if iv.Start.IsNegative() {
			return fmt.Errorf("interval %d: %w", i, ErrNegativeTimestamp)
		}
		if iv.Open {
			if i != len(intervals)-1 {
				return fmt.Errorf("interval %d: open interval before end of list: %w", i, ErrUnordered)
			}
		} else if iv.End.LessThan(iv.Start) {
			return fmt.Errorf("interval %d: end %s before start %s: %w", i, FormatSeconds(iv.End), FormatSeconds(iv.Start), ErrUnordered)
		}
		if i == 0 {
			continue
		}
		prev := intervals[i-1]
		if !iv.Start.GreaterThan(prev.Start) || prev.End.GreaterThan(iv.Start) {
			return fmt.Errorf("interval %d overlaps interval %d: %w", i, i-1, ErrUnordered)
		}
	}
	return nil
}
