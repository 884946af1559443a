// Package notifications tells an ntfy topic about finished trims.
//
// NewService returns a no-op notifier when no topic is configured, so callers
// publish unconditionally. Success and failure events can be muted separately
// through notifications.on_success and notifications.on_failure.
package notifications
