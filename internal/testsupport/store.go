package testsupport

import (
	"context"
	"testing"

	"stillcut/internal/analysiscache"
	"stillcut/internal/config"
)

// MustOpenCache opens the analysis cache at cfg.Paths.CachePath and registers
// cleanup.
func MustOpenCache(t testing.TB, cfg *config.Config) *analysiscache.Store {
	t.Helper()

	store, err := analysiscache.Open(context.Background(), cfg.Paths.CachePath)
	if err != nil {
		t.Fatalf("analysiscache.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
