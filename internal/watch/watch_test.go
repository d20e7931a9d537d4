package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func startWatch(t *testing.T, root string) (<-chan struct{}, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan struct{}, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, root, Options{Debounce: 20 * time.Millisecond}, func() {
			changes <- struct{}{}
		})
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("watch returned error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Errorf("watch did not stop after cancel")
		}
	})
	return changes, done
}

// writeUntilChange rewrites path until the watcher reports a change; the
// watcher registers asynchronously so early writes may go unseen.
func writeUntilChange(t *testing.T, path string, changes <-chan struct{}) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if err := os.WriteFile(path, []byte("SIMPLE"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		select {
		case <-changes:
			return
		case <-time.After(100 * time.Millisecond):
		}
	}
	t.Fatalf("no change reported for %s", path)
}

func drain(changes <-chan struct{}, wait time.Duration) {
	timeout := time.After(wait)
	for {
		select {
		case <-changes:
		case <-timeout:
			return
		}
	}
}

func TestWatchReportsFitsWrites(t *testing.T) {
	dir := t.TempDir()
	changes, _ := startWatch(t, dir)
	writeUntilChange(t, filepath.Join(dir, "dark_001.fits"), changes)
}

func TestWatchIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	changes, _ := startWatch(t, dir)
	writeUntilChange(t, filepath.Join(dir, "dark_001.fits"), changes)
	drain(changes, 200*time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("log"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case <-changes:
		t.Fatalf("unexpected change for non-FITS file")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatchFollowsNewDirectories(t *testing.T) {
	dir := t.TempDir()
	changes, _ := startWatch(t, dir)
	writeUntilChange(t, filepath.Join(dir, "a.fits"), changes)
	drain(changes, 200*time.Millisecond)

	sub := filepath.Join(dir, "night2")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	drain(changes, 200*time.Millisecond)
	writeUntilChange(t, filepath.Join(sub, "b.fit"), changes)
}

func TestWatchMissingRoot(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "missing"), Options{}, func() {})
	if err == nil {
		t.Fatalf("expected error for missing root")
	}
}
