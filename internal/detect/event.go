package detect

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"regexp"
	"strconv"

	"stillcut/internal/timeline"
)

// Signal classifies an analyzer drop marker.
type Signal int

const (
	// NoOp covers kept frames (marker 0) and unrecognized markers.
	NoOp Signal = iota
	// RunStart marks the first frame of a dropped run (marker -1).
	RunStart
	// RunEnd marks the end-of-run notification (any marker below -1).
	RunEnd
	// SingleDrop marks one isolated frame dropped right after a kept frame (marker 1).
	SingleDrop
)

func (s Signal) String() string {
	switch s {
	case RunStart:
		return "run_start"
	case RunEnd:
		return "run_end"
	case SingleDrop:
		return "single_drop"
	default:
		return "noop"
	}
}

// Event is one parsed analyzer decision.
type Event struct {
	Time   timeline.Timestamp
	Marker int
	Signal Signal
}

var (
	ptsTimePattern   = regexp.MustCompile(`pts_time:\s*([0-9]+(?:\.[0-9]+)?(?:[eE][-+]?[0-9]+)?)`)
	dropCountPattern = regexp.MustCompile(`drop_count:\s*(-?[0-9]+)`)
)

// ParseMarker maps a raw drop_count value to its Signal.
func ParseMarker(marker int) Signal {
	switch {
	case marker == -1:
		return RunStart
	case marker < -1:
		return RunEnd
	case marker == 1:
		return SingleDrop
	default:
		return NoOp
	}
}

// ParseLine extracts an event from one analyzer line. Lines missing either the
// pts_time or drop_count token report false.
func ParseLine(line string) (Event, bool) {
	ptsMatch := ptsTimePattern.FindStringSubmatch(line)
	if ptsMatch == nil {
		return Event{}, false
	}
	dropMatch := dropCountPattern.FindStringSubmatch(line)
	if dropMatch == nil {
		return Event{}, false
	}
	ts, err := timeline.ParseSeconds(ptsMatch[1])
	if err != nil {
		return Event{}, false
	}
	marker, err := strconv.Atoi(dropMatch[1])
	if err != nil {
		return Event{}, false
	}
	return Event{Time: ts, Marker: marker, Signal: ParseMarker(marker)}, true
}

// ScanEvents reads r line by line and invokes fn for every parsed event, in
// input order.
func ScanEvents(r io.Reader, fn func(Event)) error {
	seq, errFn := Events(r)
	for ev := range seq {
		fn(ev)
	}
	return errFn()
}

// ReadEvents collects every event in r.
func ReadEvents(r io.Reader) ([]Event, error) {
	var events []Event
	err := ScanEvents(r, func(ev Event) {
		events = append(events, ev)
	})
	return events, err
}

// Events returns a lazy sequence over the events in r. Iteration stops early on
// a read error; the returned function reports it once iteration has finished.
func Events(r io.Reader) (iter.Seq[Event], func() error) {
	var scanErr error
	seq := func(yield func(Event) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			ev, ok := ParseLine(scanner.Text())
			if !ok {
				continue
			}
			if !yield(ev) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			scanErr = fmt.Errorf("scan analyzer output: %w", err)
		}
	}
	return seq, func() error { return scanErr }
}
