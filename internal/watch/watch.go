// Package watch re-runs an action whenever a watched log file settles after
// being written.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"sastriage/internal/slogutil"
)

// DefaultDebounce is the quiet period used when Config.Debounce is zero.
const DefaultDebounce = 2 * time.Second

// EventType represents the type of file system event
type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
	EventRename
)

// String returns a string representation of the event type
func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Event is one change to a watched file.
type Event struct {
	Type      EventType
	Path      string
	Timestamp time.Time
}

// Handler is called with the settled batch of events for one log. It runs on
// the goroutine that called Run, so calls never overlap.
type Handler func(ctx context.Context, logPath string, events []Event)

// Config controls debouncing.
type Config struct {
	Debounce time.Duration
	// Initial calls the handler once for every existing log before waiting.
	Initial bool
}

// Watcher watches a fixed set of log files.
type Watcher struct {
	config  Config
	logger  *slog.Logger
	handler Handler
}

// New creates a watcher.
func New(config Config, logger *slog.Logger, handler Handler) *Watcher {
	if config.Debounce <= 0 {
		config.Debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Watcher{config: config, logger: logger, handler: handler}
}

type batch struct {
	path   string
	events []Event
}

// Run watches logPaths until ctx is cancelled. Parent directories are watched
// so logs that are replaced or created later are still seen.
func (w *Watcher) Run(ctx context.Context, logPaths ...string) error {
	if len(logPaths) == 0 {
		return fmt.Errorf("no log files to watch")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	ready := make(chan batch)
	done := make(chan struct{})
	debouncers := make(map[string]*BatchDebouncer, len(logPaths))
	dirs := make(map[string]bool)
	var order []string

	for _, p := range logPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", p, err)
		}
		if _, ok := debouncers[abs]; ok {
			continue
		}
		order = append(order, abs)
		debouncers[abs] = NewBatchDebouncer(w.config.Debounce, func(events []Event) {
			select {
			case ready <- batch{path: abs, events: events}:
			case <-done:
			}
		})

		dir := filepath.Dir(abs)
		if !dirs[dir] {
			if err := fsw.Add(dir); err != nil {
				return fmt.Errorf("watch %s: %w", dir, err)
			}
			dirs[dir] = true
		}
	}

	defer func() {
		close(done)
		for _, d := range debouncers {
			d.Cancel()
		}
	}()

	w.logger.Info("Watching logs", "count", len(order), "debounce", w.config.Debounce)

	if w.config.Initial {
		for _, p := range order {
			if _, err := os.Stat(p); err == nil {
				w.handler(ctx, p, nil)
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Stopped watching logs")
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			d, watched := debouncers[filepath.Clean(event.Name)]
			if !watched {
				continue
			}
			typ, relevant := eventType(event.Op)
			if !relevant {
				continue
			}
			w.logger.Debug("Log changed", "path", event.Name, "event", typ.String())
			d.Add(Event{Type: typ, Path: event.Name, Timestamp: time.Now()})

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", "error", err)

		case b := <-ready:
			w.logger.Debug("Log settled", "path", b.path, "events", len(b.events))
			w.handler(ctx, b.path, b.events)
		}
	}
}

func eventType(op fsnotify.Op) (EventType, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return EventCreate, true
	case op.Has(fsnotify.Write):
		return EventModify, true
	case op.Has(fsnotify.Remove):
		return EventDelete, true
	case op.Has(fsnotify.Rename):
		return EventRename, true
	default:
		return 0, false
	}
}
