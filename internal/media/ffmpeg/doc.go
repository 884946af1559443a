// Package ffmpeg runs the ffmpeg binary for analysis and for the jobs a plan
// describes. Output lines from stdout and stderr are delivered to callers one
// at a time, in arrival order, so a line consumer never needs its own locking.
package ffmpeg
