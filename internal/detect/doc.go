// Package detect turns analyzer output into the list of spans to keep.
//
// The analyzer (ffmpeg's mpdecimate filter at debug verbosity) prints one line
// per frame decision. ParseLine extracts the pts_time/drop_count pair from a
// line and classifies the drop marker into a Signal; unrelated diagnostic
// lines are skipped silently.
//
// Builder is the interval state machine. It records static runs as they open
// and close, absorbs runs that start too soon after the previous one, drops
// spurious single-frame runs, and on Finish produces the complement of the
// runs worth cutting, filtered by the minimum keep length. Build wraps the
// builder for callers holding a complete iter.Seq of events.
package detect
