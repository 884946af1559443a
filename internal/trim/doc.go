// Package trim runs the stillcut pipeline for one input file.
//
// Service.Run walks the stages in order: probe the input, analyze it for
// near-static runs (live through ffmpeg, from the analysis cache, or from a
// saved analyzer log), build keep intervals, align them to keyframes in copy
// mode, assemble the ffmpeg plan, then execute it inside a locked work
// directory and move the result into place. Service.Detect stops after
// building (and optionally aligning) so intervals can be inspected without
// writing anything.
//
// Two outcomes end a run early without invoking the encoder: ErrNothingToKeep
// when every frame would be removed and ErrNothingToDrop when the whole input
// would be kept.
package trim
