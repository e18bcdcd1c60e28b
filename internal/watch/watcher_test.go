package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWatcher(t *testing.T, dir string, files ...string) *Watcher {
	t.Helper()

	w, err := New(Options{
		Dirs:     []string{dir},
		Ignore:   []string{"zz_generated.partial.go"},
		Files:    files,
		Debounce: 20 * time.Millisecond,
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	return w
}

func TestWatcher_Relevant(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "partial.yaml")
	w := newWatcher(t, dir, cfg)

	tests := []struct {
		name     string
		event    fsnotify.Event
		expected bool
	}{
		{"source write", fsnotify.Event{Name: filepath.Join(dir, "server.go"), Op: fsnotify.Write}, true},
		{"source removed", fsnotify.Event{Name: filepath.Join(dir, "server.go"), Op: fsnotify.Remove}, true},
		{"chmod only", fsnotify.Event{Name: filepath.Join(dir, "server.go"), Op: fsnotify.Chmod}, false},
		{"generated file", fsnotify.Event{Name: filepath.Join(dir, "zz_generated.partial.go"), Op: fsnotify.Write}, false},
		{"debug sidecar", fsnotify.Event{Name: filepath.Join(dir, "zz_generated.partial.unformatted.go"), Op: fsnotify.Create}, false},
		{"test file", fsnotify.Event{Name: filepath.Join(dir, "server_test.go"), Op: fsnotify.Write}, false},
		{"other file", fsnotify.Event{Name: filepath.Join(dir, "README.md"), Op: fsnotify.Write}, false},
		{"config file", fsnotify.Event{Name: cfg, Op: fsnotify.Create}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, w.relevant(tt.event))
		})
	}
}

func TestWatcher_Run(t *testing.T) {
	dir := t.TempDir()
	w := newWatcher(t, dir)

	var runs atomic.Int32

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- w.Run(ctx, func(context.Context) error {
			runs.Add(1)
			return nil
		})
	}()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "zz_generated.partial.go"), []byte("package x\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "server.go"), []byte("package x\n"), 0o644))

	require.Eventually(t, func() bool { return runs.Load() >= 1 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestNew_MissingDir(t *testing.T) {
	_, err := New(Options{Dirs: []string{filepath.Join(t.TempDir(), "missing")}})
	assert.Error(t, err)
}
