// Package logs reads back the JSON run logs written under paths.log_dir.
//
// Tail returns the last lines of a log file, or the lines appended after a
// byte offset, optionally polling until new lines arrive. Filter narrows the
// decoded records to one run, a minimum level, or one stage so
// `stillcut logs --run <id>` can replay a single invocation.
package logs
