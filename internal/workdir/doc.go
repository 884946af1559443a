// Package workdir owns the per-run scratch directories under paths.work_dir.
//
// Acquire takes an exclusive flock named after the input fingerprint, so two
// stillcut processes never cut the same file at once, and creates a fresh
// directory named by a random run id for segment files and the concat list.
// Release removes the directory unless it should be kept for debugging.
// CleanStale prunes directories left behind by crashed or interrupted runs.
package workdir
