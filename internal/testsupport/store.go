package testsupport

import (
	"testing"

	"oreminer/internal/config"
	"oreminer/internal/metrics"
)

// MustOpenStore opens a metrics store for the test configuration and closes
// it automatically when the test finishes.
func MustOpenStore(t testing.TB, cfg *config.Config) *metrics.Store {
	t.Helper()

	store, err := metrics.Open(cfg)
	if err != nil {
		t.Fatalf("open metrics store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
