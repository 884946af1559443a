// Package keyframes snaps keep intervals onto keyframe boundaries for the
// stream-copy output path.
//
// Align walks the interval list and the keyframe list once with a cursor that
// never rewinds: starts move back to the preceding keyframe, closed ends move
// forward to the next one, and intervals that come to touch are merged. An
// empty keyframe list leaves the intervals untouched.
package keyframes
