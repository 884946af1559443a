package workdir

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"stillcut/internal/logging"
)

// CleanStaleResult contains the outcome of a stale directory cleanup operation.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes run directories older than maxAge and lock files no
// process holds. Entries that are not run directories are left alone.
func CleanStale(ctx context.Context, root string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}

	root = strings.TrimSpace(root)
	if root == "" {
		return result
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: root, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		path := filepath.Join(root, entry.Name())
		switch {
		case entry.IsDir():
			if uuid.Validate(entry.Name()) != nil {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
				continue
			}
			if !info.ModTime().Before(cutoff) {
				continue
			}
			removeEntry(&result, path, logger, os.RemoveAll, logging.Duration("age", time.Since(info.ModTime())))
		case strings.HasSuffix(entry.Name(), lockSuffix):
			lock := flock.New(path)
			ok, err := lock.TryLock()
			if err != nil || !ok {
				continue
			}
			removeEntry(&result, path, logger, os.Remove)
			_ = lock.Unlock()
		}
	}
	return result
}

func removeEntry(result *CleanStaleResult, path string, logger *slog.Logger, remove func(string) error, attrs ...logging.Attr) {
	if err := remove(path); err != nil && !os.IsNotExist(err) {
		result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
		logging.WarnWithContext(logger, "failed to remove stale work entry", "workdir_cleanup_failed",
			logging.String("entry_path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.work_dir permissions"),
			logging.String(logging.FieldImpact, "disk space not reclaimed"),
		)
		return
	}
	result.Removed = append(result.Removed, path)
	if logger != nil {
		attrs = append(attrs,
			logging.String("entry_path", path),
			logging.String(logging.FieldEventType, "workdir_cleanup"),
		)
		logger.Debug("removed stale work entry", logging.Args(attrs...)...)
	}
}
