// Package preflight provides readiness checks for the external tools and
// filesystem paths stillcut depends on.
//
// `stillcut check` prints every Result from RunAll. The trim command runs
// CheckBinaries for ffmpeg and ffprobe before touching the input so a missing
// tool fails fast instead of after a long analysis pass.
package preflight
