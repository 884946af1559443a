package analysiscache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Fingerprint identifies one input file under one analyzer configuration.
type Fingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
	Filter  string
}

// NewFingerprint stats path and captures the fields that invalidate a cached
// analysis.
func NewFingerprint(path, filter string) (Fingerprint, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("resolve input path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("stat input: %w", err)
	}
	if info.IsDir() {
		return Fingerprint{}, fmt.Errorf("input %q is a directory", abs)
	}
	return Fingerprint{
		Path:    abs,
		Size:    info.Size(),
		ModTime: info.ModTime().UTC().Truncate(time.Microsecond),
		Filter:  filter,
	}, nil
}

// Key is the stable hex digest stored as the cache primary key.
func (f Fingerprint) Key() string {
	h := sha256.New()
	for _, part := range []string{
		f.Path,
		strconv.FormatInt(f.Size, 10),
		f.ModTime.UTC().Format(time.RFC3339Nano),
		f.Filter,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Short returns the first 12 hex digits of Key, for logs and lock names.
func (f Fingerprint) Short() string {
	return f.Key()[:12]
}
