package keyframes

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"

	"stillcut/internal/timeline"
)

// ParseList reads prober output with one keyframe time per line. Blank lines
// and "N/A" entries are skipped; the result is sorted and deduplicated.
// Negative times are kept as read; see ClampNegative.
func ParseList(r io.Reader) ([]timeline.Timestamp, error) {
	scanner := bufio.NewScanner(r)
	var out []timeline.Timestamp
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		// csv output may carry a trailing separator when side data is present.
		text = strings.TrimRight(text, ",")
		if text == "" || strings.EqualFold(text, "n/a") {
			continue
		}
		ts, err := timeline.ParseOffset(text)
		if err != nil {
			return nil, fmt.Errorf("keyframe list line %d: %w", line, err)
		}
		out = append(out, ts)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read keyframe list: %w", err)
	}
	return Normalize(out), nil
}

// Normalize sorts keyframes ascending and removes duplicates in place.
func Normalize(keyframes []timeline.Timestamp) []timeline.Timestamp {
	slices.SortFunc(keyframes, func(a, b timeline.Timestamp) int { return a.Cmp(b) })
	return slices.CompactFunc(keyframes, func(a, b timeline.Timestamp) bool { return a.Equal(b) })
}

// ClampNegative moves keyframes before the stream start to zero and reports
// how many were moved. The result is normalized again.
func ClampNegative(keyframes []timeline.Timestamp) ([]timeline.Timestamp, int) {
	clamped := 0
	for i, kf := range keyframes {
		if kf.IsNegative() {
			keyframes[i] = timeline.Zero
			clamped++
		}
	}
	if clamped == 0 {
		return keyframes, 0
	}
	return Normalize(keyframes), clamped
}

// Format renders keyframes in the same one-per-line format ParseList reads.
func Format(w io.Writer, keyframes []timeline.Timestamp) error {
	bw := bufio.NewWriter(w)
	for _, kf := range keyframes {
		if _, err := fmt.Fprintln(bw, timeline.FormatSeconds(kf)); err != nil {
			return err
		}
	}
	return bw.Flush()
}
