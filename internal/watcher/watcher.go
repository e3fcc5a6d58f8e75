// Package watcher monitors the transcript spool directory. Companion
// tools drop transcript JSON files there; the watcher surfaces each file
// once it has settled, so half-written files are never ingested.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay is how long a file must stay quiet before it is emitted.
// Spool writers stream transcripts in chunks; every write resets the
// timer.
const settleDelay = 500 * time.Millisecond

// Event is one settled spool file.
type Event struct {
	Path string
}

// Watcher watches a single spool directory for transcript files.
type Watcher struct {
	dir    string
	fsw    *fsnotify.Watcher
	events chan Event
	logger *slog.Logger

	mu       sync.Mutex
	settling map[string]*time.Timer
	closed   bool
}

// New creates a watcher for dir, creating the directory if needed.
func New(dir string, logger *slog.Logger) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create spool directory: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch spool directory: %w", err)
	}

	return &Watcher{
		dir:      dir,
		fsw:      fsw,
		events:   make(chan Event, 64),
		logger:   logger,
		settling: make(map[string]*time.Timer),
	}, nil
}

// Events returns the channel of settled spool files. Closed when Run
// returns.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Run pumps filesystem notifications until ctx is cancelled. Files
// already sitting in the spool at startup are emitted first, so a
// daemon restart never strands queued transcripts.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.close()

	if err := w.emitExisting(); err != nil {
		w.logger.Warn("failed to scan existing spool files", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !isSpoolFile(event.Name) {
				continue
			}
			if event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Rename) {
				w.scheduleEmit(event.Name)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("spool watcher error", "error", err)
		}
	}
}

// emitExisting queues every spool file already on disk.
func (w *Watcher) emitExisting() error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		if isSpoolFile(path) {
			w.scheduleEmit(path)
		}
	}
	return nil
}

// scheduleEmit (re)arms the settle timer for one file.
func (w *Watcher) scheduleEmit(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	if timer, ok := w.settling[path]; ok {
		timer.Reset(settleDelay)
		return
	}

	w.settling[path] = time.AfterFunc(settleDelay, func() {
		w.mu.Lock()
		delete(w.settling, path)
		closed := w.closed
		w.mu.Unlock()
		if closed {
			return
		}

		// The file may have been consumed or renamed while settling.
		if _, err := os.Stat(path); err != nil {
			return
		}
		select {
		case w.events <- Event{Path: path}:
		default:
			w.logger.Warn("spool event queue full, dropping", "path", path)
		}
	})
}

func (w *Watcher) close() {
	w.mu.Lock()
	w.closed = true
	for _, timer := range w.settling {
		timer.Stop()
	}
	w.settling = map[string]*time.Timer{}
	w.mu.Unlock()

	w.fsw.Close()
	close(w.events)
}

// isSpoolFile reports whether path looks like a transcript drop.
// Dotfiles and editor temp files are ignored.
func isSpoolFile(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	return strings.HasSuffix(name, ".json")
}
