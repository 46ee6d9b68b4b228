// Package watcher implements a directory-watching FileWatcher:
// fsnotify-driven debounce, followed by a stability verification stage
// before a file is considered ready.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// backoffSchedule is the stability re-check delay sequence.
var backoffSchedule = []time.Duration{
	50 * time.Millisecond,
	100 * time.Millisecond,
	200 * time.Millisecond,
	500 * time.Millisecond,
	1000 * time.Millisecond,
}

// FileReady is emitted once a candidate file's size has been observed
// stable across two consecutive stat samples.
type FileReady struct {
	Path    string
	Content []byte
}

// Callback is invoked for each stable file. It runs asynchronously
// relative to event ingestion — the watcher never blocks waiting on it.
type Callback func(FileReady)

// Watcher observes a single, non-recursive directory for created/modified/
// renamed markdown files.
type Watcher struct {
	dir         string
	debounce    time.Duration
	onReady     Callback
	logger      *slog.Logger
	fsw         *fsnotify.Watcher
	matches     func(path string) bool

	timersMu sync.Mutex
	timers   map[string]*time.Timer

	processingMu sync.Mutex
	processing   map[string]bool

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// Option configures a Watcher at construction.
type Option func(*Watcher)

// WithLogger sets the watcher's logger.
func WithLogger(l *slog.Logger) Option { return func(w *Watcher) { w.logger = l } }

// WithSuffix restricts candidate files to those whose base name ends in
// suffix, on top of the default ".md" extension filter. Used to give
// directories that mix file kinds (e.g. System/Active, which only wants
// "*_plan.md") an asymmetric filter from the Inbox/Requests watcher, which
// wants every markdown file.
func WithSuffix(suffix string) Option {
	return func(w *Watcher) {
		w.matches = func(path string) bool { return strings.HasSuffix(path, suffix) }
	}
}

// New creates a Watcher over dir with the given debounce window. onReady is
// invoked for every file that passes stability verification.
func New(dir string, debounce time.Duration, onReady Callback, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		dir:        dir,
		debounce:   debounce,
		onReady:    onReady,
		logger:     slog.Default(),
		fsw:        fsw,
		matches:    func(string) bool { return true },
		timers:     make(map[string]*time.Timer),
		processing: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start begins watching in the background. It returns once the watch loop
// goroutine has launched.
func (w *Watcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.wg.Add(1)
	go w.loop(ctx)
}

// Stop cancels the watch loop, waits for it to exit, and closes the
// underlying fsnotify watcher.
func (w *Watcher) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	return w.fsw.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher.fs_error", "error", err.Error())
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	path := event.Name
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || filepath.Ext(path) != ".md" || !w.matches(base) {
		return
	}
	if event.Has(fsnotify.Remove) {
		w.cancelTimer(path)
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return
	}

	w.restartDebounce(ctx, path)
}

// restartDebounce (re)starts the per-path debounce timer: only once the
// timer elapses without a further event for the same path does the file
// become a stability-verification candidate.
func (w *Watcher) restartDebounce(ctx context.Context, path string) {
	w.timersMu.Lock()
	defer w.timersMu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.timersMu.Lock()
		delete(w.timers, path)
		w.timersMu.Unlock()
		w.beginStabilityCheck(ctx, path)
	})
}

func (w *Watcher) cancelTimer(path string) {
	w.timersMu.Lock()
	defer w.timersMu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
		delete(w.timers, path)
	}
}

// beginStabilityCheck stats, waits, re-stats, and compares. Runs in its own
// goroutine so the event loop is never blocked on it, and is guarded
// per-path against reentrancy.
func (w *Watcher) beginStabilityCheck(ctx context.Context, path string) {
	w.processingMu.Lock()
	if w.processing[path] {
		w.processingMu.Unlock()
		return
	}
	w.processing[path] = true
	w.processingMu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() {
			w.processingMu.Lock()
			delete(w.processing, path)
			w.processingMu.Unlock()
		}()
		w.verifyStability(ctx, path)
	}()
}

func (w *Watcher) verifyStability(ctx context.Context, path string) {
	for attempt, delay := range backoffSchedule {
		before, err := os.Stat(path)
		if err != nil {
			return // file vanished; nothing to report
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		after, err := os.Stat(path)
		if err != nil {
			continue
		}

		if before.Size() > 0 && before.Size() == after.Size() {
			content, err := os.ReadFile(path)
			if err != nil {
				w.logger.Warn("watcher.read_failed", "path", path, "error", err.Error())
				return
			}
			w.onReady(FileReady{Path: path, Content: content})
			return
		}

		w.logger.Debug("watcher.size_changed", "path", path, "attempt", attempt+1)
	}

	w.logger.Warn("watcher.file_unstable", "path", path, "attempts", len(backoffSchedule))
}
