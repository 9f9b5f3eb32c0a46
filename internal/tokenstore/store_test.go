package tokenstore

import (
	"os"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(Config{StorageDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store
}

func TestStore_SaveLoadClear(t *testing.T) {
	store := newTestStore(t)

	// Empty store loads an empty token.
	token, err := store.Load()
	if err != nil {
		t.Fatalf("Load on empty store failed: %v", err)
	}
	if token != "" {
		t.Errorf("expected empty token, got %q", token)
	}

	if err := store.Save("refresh-1"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	token, err = store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if token != "refresh-1" {
		t.Errorf("expected refresh-1, got %q", token)
	}

	// Save overwrites.
	if err := store.Save("refresh-2"); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}
	token, _ = store.Load()
	if token != "refresh-2" {
		t.Errorf("expected refresh-2, got %q", token)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	token, _ = store.Load()
	if token != "" {
		t.Errorf("expected empty token after Clear, got %q", token)
	}

	// Clearing again is not an error.
	if err := store.Clear(); err != nil {
		t.Errorf("Clear on empty store failed: %v", err)
	}
}

func TestStore_FilePermissions(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save("secret"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(store.Path())
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected 0600 permissions, got %o", perm)
	}
}

func TestWatcher_DetectsExternalRemoval(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save("refresh-1"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	removed := make(chan struct{}, 1)
	watcher := NewWatcher(store, 50*time.Millisecond)
	if err := watcher.Start(func() {
		select {
		case removed <- struct{}{}:
		default:
		}
	}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer watcher.Stop()

	// Simulate another process clearing the token.
	if err := os.Remove(store.Path()); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	select {
	case <-removed:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not report external removal")
	}
}

func TestWatcher_IgnoresClearThenRewrite(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save("refresh-1"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	removed := make(chan struct{}, 1)
	watcher := NewWatcher(store, 200*time.Millisecond)
	if err := watcher.Start(func() {
		select {
		case removed <- struct{}{}:
		default:
		}
	}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer watcher.Stop()

	// The refresh discipline: clear, then rewrite shortly after.
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if err := store.Save("refresh-2"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	select {
	case <-removed:
		t.Fatal("clear-then-rewrite must not be reported as external removal")
	case <-time.After(600 * time.Millisecond):
	}
}
