package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestWatcher_DebouncedChange(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "model.yaml")
	if err := os.WriteFile(model, []byte("namespaces: []\n"), 0644); err != nil {
		t.Fatal(err)
	}

	var changed []string
	var mu sync.Mutex
	onChange := func(path string) {
		mu.Lock()
		changed = append(changed, path)
		mu.Unlock()
	}
	w := NewWatcher([]string{model}, onChange, WithDebounce(150*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	for i := 0; i < 3; i++ {
		if err := os.WriteFile(model, []byte("namespaces: []\nproperties: []\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	// Unwatched sibling must not trigger.
	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(800 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if len(changed) != 1 {
		t.Fatalf("expected one debounced callback, got %d: %v", len(changed), changed)
	}
	if changed[0] != model {
		t.Errorf("callback path = %q, want %q", changed[0], model)
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	w := NewWatcher([]string{filepath.Join(dir, "model.yaml")}, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	w.Stop()
}

func TestWatcher_StartMissingDirectory(t *testing.T) {
	w := NewWatcher([]string{filepath.Join(t.TempDir(), "missing", "model.yaml")}, nil)
	if err := w.Start(context.Background()); err == nil {
		w.Stop()
		t.Error("expected error watching a missing directory")
	}
}

func TestWatcher_Files(t *testing.T) {
	w := NewWatcher([]string{"/tmp/a/model.yaml"}, nil)
	files := w.Files()
	if len(files) != 1 || files[0] != "/tmp/a/model.yaml" {
		t.Errorf("Files() = %v", files)
	}
}
