// Package ffprobe provides a typed wrapper around ffprobe.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video/subtitle stream properties
//   - Format: container-level metadata (duration, size, bitrate)
//   - Prober: runs ffprobe through a swappable Runner
//
// Primary entry points:
//   - Prober.Inspect: container and stream metadata
//   - Prober.Keyframes: sorted keyframe timestamps of the first video stream
//
// Durations are returned as exact decimal timestamps so they can be compared
// against cut points without float rounding.
package ffprobe
