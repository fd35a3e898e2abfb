// Package watcher emits debounced batches of file changes so the watch
// command can trigger background syncs without one sync per keystroke.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// DefaultDebounce is the coalescing window when none is configured.
const DefaultDebounce = 500 * time.Millisecond

// Event is one observed file change.
type Event struct {
	Path string
	Op   string
	Time time.Time
}

// ignoredDirs are never watched; they churn constantly and are not
// indexable anyway.
var ignoredDirs = map[string]bool{
	"node_modules": true,
	"dist":         true,
	"build":        true,
	"vendor":       true,
	"coverage":     true,
}

// Watcher watches directory trees recursively and coalesces raw
// filesystem events into batches separated by a quiet period.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	exts     map[string]bool
	batches  chan []Event
}

// New creates a watcher that reports changes to files with the given
// extensions (lowercase, with dot). An empty list reports everything.
func New(extensions []string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		exts[strings.ToLower(e)] = true
	}
	return &Watcher{
		fsw:      fsw,
		debounce: debounce,
		exts:     exts,
		batches:  make(chan []Event, 16),
	}, nil
}

// Batches returns the channel of coalesced change batches. It is
// closed when the watcher stops.
func (w *Watcher) Batches() <-chan []Event {
	return w.batches
}

// Start watches roots recursively and runs until ctx is cancelled.
// New subdirectories are picked up as they appear.
func (w *Watcher) Start(ctx context.Context, roots []string) error {
	for _, root := range roots {
		if err := w.addRecursive(root); err != nil {
			return err
		}
	}
	go w.run(ctx)
	return nil
}

// Close releases the underlying watcher. Start's run loop also closes
// it on context cancellation.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.batches)
	defer func() { _ = w.fsw.Close() }()

	pending := make(map[string]Event)
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	flush := func() {
		if len(pending) == 0 {
			return
		}
		batch := make([]Event, 0, len(pending))
		for _, ev := range pending {
			batch = append(batch, ev)
		}
		pending = make(map[string]Event)
		select {
		case w.batches <- batch:
		default:
			log.Warn().Int("events", len(batch)).Msg("dropping change batch, consumer is behind")
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(ev.Name); err != nil {
						log.Debug().Err(err).Str("dir", ev.Name).Msg("failed to watch new directory")
					}
					continue
				}
			}
			if !w.relevant(ev.Name) {
				continue
			}
			pending[ev.Name] = Event{Path: ev.Name, Op: ev.Op.String(), Time: time.Now()}
			timer.Reset(w.debounce)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("watcher error")
		case <-timer.C:
			flush()
		}
	}
}

func (w *Watcher) relevant(path string) bool {
	if len(w.exts) == 0 {
		return true
	}
	return w.exts[strings.ToLower(filepath.Ext(path))]
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			log.Debug().Err(err).Str("path", path).Msg("skipping unwalkable path")
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (ignoredDirs[name] || strings.HasPrefix(name, ".")) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
