package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type readySink struct {
	mu    sync.Mutex
	ready []FileReady
}

func (s *readySink) collect(r FileReady) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = append(s.ready, r)
}

func (s *readySink) snapshot() []FileReady {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]FileReady, len(s.ready))
	copy(out, s.ready)
	return out
}

func TestWatcherEmitsFileReadyForStableFile(t *testing.T) {
	dir := t.TempDir()
	sink := &readySink{}

	w, err := New(dir, 20*time.Millisecond, sink.collect)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	defer func() {
		cancel()
		_ = w.Stop()
	}()

	path := filepath.Join(dir, "request-1.md")
	require.NoError(t, os.WriteFile(path, []byte("---\ntrace_id: abc\n---\nbody"), 0o644))

	require.Eventually(t, func() bool {
		return len(sink.snapshot()) == 1
	}, 5*time.Second, 20*time.Millisecond)

	got := sink.snapshot()[0]
	assert.Equal(t, path, got.Path)
	assert.Contains(t, string(got.Content), "trace_id: abc")
}

func TestWatcherIgnoresNonMarkdownAndDotfiles(t *testing.T) {
	dir := t.TempDir()
	sink := &readySink{}

	w, err := New(dir, 20*time.Millisecond, sink.collect)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	defer func() {
		cancel()
		_ = w.Stop()
	}()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.md"), []byte("hi"), 0o644))

	time.Sleep(300 * time.Millisecond)
	assert.Empty(t, sink.snapshot())
}

func TestWatcherDebouncesRapidWrites(t *testing.T) {
	dir := t.TempDir()
	sink := &readySink{}

	w, err := New(dir, 50*time.Millisecond, sink.collect)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	defer func() {
		cancel()
		_ = w.Stop()
	}()

	path := filepath.Join(dir, "plan-1.md")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("content-final"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return len(sink.snapshot()) == 1
	}, 5*time.Second, 20*time.Millisecond)
}
