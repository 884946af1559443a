// Package plan serializes keep intervals into ffmpeg invocations.
//
// Copy mode cuts one stream-copied segment per interval into the work
// directory and joins them with the concat demuxer. Re-encode mode builds a
// single filter graph that trims every interval out of the source and
// concatenates the results in one pass. Plans only describe the commands;
// running them is the caller's job.
package plan
