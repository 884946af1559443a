// Package logging builds the slog loggers used by stillcut.
//
// Console output is a human-oriented layout: a header line carrying the
// component, run and stage, followed by the highlighted fields of the record.
// Debug records print every attribute. JSON output goes through slog's JSON
// handler with stable key names so log files can be grepped or ingested.
//
// NewFromConfig tees records to stderr in the configured format and, when a log
// directory is configured, to a JSON log file at debug level. WithContext tags
// a logger with the run id, stage and input carried on a context.
package logging
