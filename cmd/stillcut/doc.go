// Package main hosts the stillcut CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once, builds the process
// logger, and hands each invocation to the trim service or one of the
// maintenance helpers (preflight checks, the analysis cache, stale work
// directories). Exit statuses follow services.ExitCode, except that an input
// with nothing to drop is a successful no-op.
package main
