package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectBatch(t *testing.T, w *Watcher, timeout time.Duration) []Event {
	t.Helper()
	select {
	case batch, ok := <-w.Batches():
		require.True(t, ok, "batch channel closed unexpectedly")
		return batch
	case <-time.After(timeout):
		t.Fatal("timed out waiting for a change batch")
		return nil
	}
}

func batchPaths(batch []Event) []string {
	paths := make([]string, 0, len(batch))
	for _, ev := range batch {
		paths = append(paths, filepath.Base(ev.Path))
	}
	return paths
}

func TestWatcherCoalescesBurst(t *testing.T) {
	dir := t.TempDir()
	w, err := New([]string{".js"}, 100*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx, []string{dir}))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.js"), []byte("let a;"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.js"), []byte("let b;"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "note.txt"), []byte("ignored"), 0o644))

	batch := collectBatch(t, w, 3*time.Second)
	paths := batchPaths(batch)
	assert.Contains(t, paths, "a.js")
	assert.Contains(t, paths, "b.js")
	assert.NotContains(t, paths, "note.txt", "extension filter must apply")
}

func TestWatcherPicksUpNewSubdirectory(t *testing.T) {
	dir := t.TempDir()
	w, err := New([]string{".js"}, 100*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx, []string{dir}))

	sub := filepath.Join(dir, "lib")
	require.NoError(t, os.Mkdir(sub, 0o755))

	// Give the run loop a moment to watch the new directory.
	time.Sleep(300 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "util.js"), []byte("let x;"), 0o644))

	batch := collectBatch(t, w, 3*time.Second)
	assert.Contains(t, batchPaths(batch), "util.js")
}

func TestWatcherStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	w, err := New(nil, 50*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx, []string{dir}))
	cancel()

	select {
	case _, ok := <-w.Batches():
		assert.False(t, ok, "batch channel should close on cancellation")
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after cancellation")
	}
}
