// Package timeline holds the exact-decimal timestamp and interval types shared by
// the detection, alignment, and planning stages.
//
// Timestamps are decimal seconds backed by shopspring/decimal so that long
// videos cut into many small spans never accumulate binary floating point
// drift. Intervals are half-described spans that may be open-ended ("runs to
// the end of the source"); only the final interval of a list may be open.
package timeline
