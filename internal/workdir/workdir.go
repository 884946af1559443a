package workdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// ErrBusy reports that another process holds the lock for the same input.
var ErrBusy = errors.New("another stillcut run is processing this input")

const lockSuffix = ".lock"

// Run is one acquired scratch directory.
type Run struct {
	ID   string
	Dir  string
	lock *flock.Flock
}

// Acquire locks lockName under root and creates a new run directory.
func Acquire(root, lockName string) (*Run, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("work directory is empty")
	}
	lockName = strings.TrimSpace(lockName)
	if lockName == "" || strings.ContainsAny(lockName, `/\`) {
		return nil, fmt.Errorf("invalid lock name %q", lockName)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("ensure work directory: %w", err)
	}

	lock := flock.New(filepath.Join(root, lockName+lockSuffix))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrBusy, lock.Path())
	}

	id := uuid.NewString()
	dir := filepath.Join(root, id)
	if err := os.Mkdir(dir, 0o755); err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("create run directory: %w", err)
	}
	return &Run{ID: id, Dir: dir, lock: lock}, nil
}

// Path joins name onto the run directory.
func (r *Run) Path(name string) string {
	return filepath.Join(r.Dir, name)
}

// Release unlocks the input and removes the run directory unless keep is set.
// It is safe to call more than once.
func (r *Run) Release(keep bool) error {
	if r == nil || r.lock == nil {
		return nil
	}
	var errs []error
	if !keep {
		if err := os.RemoveAll(r.Dir); err != nil {
			errs = append(errs, fmt.Errorf("remove run directory: %w", err))
		}
	}
	lockPath := r.lock.Path()
	if err := r.lock.Unlock(); err != nil {
		errs = append(errs, fmt.Errorf("release lock: %w", err))
	} else if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("remove lock file: %w", err))
	}
	r.lock = nil
	return errors.Join(errs...)
}
