// Package services defines shared utilities consumed by the trim pipeline and
// the CLI.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and the input path for
//     logging.
//   - Structured error markers plus the Wrap helper, and ExitCode which turns
//     a marker into the process exit status.
//
// Use these helpers when wiring new pipeline stages so failures are classified
// the same way everywhere.
package services
