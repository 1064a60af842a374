package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		eventType EventType
		want      string
	}{
		{EventCreate, "create"},
		{EventModify, "modify"},
		{EventDelete, "delete"},
		{EventRename, "rename"},
		{EventType(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.eventType.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBatchDebouncerAdd(t *testing.T) {
	var (
		mu       sync.Mutex
		received []Event
	)
	b := NewBatchDebouncer(50*time.Millisecond, func(events []Event) {
		mu.Lock()
		received = events
		mu.Unlock()
	})

	b.Add(Event{Type: EventCreate, Path: "run.log"})
	b.Add(Event{Type: EventModify, Path: "run.log"})
	b.Add(Event{Type: EventModify, Path: "run.log"})

	if b.pending() != 3 {
		t.Errorf("pending() = %d, want 3", b.pending())
	}

	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 3 {
		t.Errorf("received %d events, want 3", len(received))
	}
}

func TestBatchDebouncerCancel(t *testing.T) {
	var (
		mu     sync.Mutex
		called bool
	)
	b := NewBatchDebouncer(50*time.Millisecond, func([]Event) {
		mu.Lock()
		called = true
		mu.Unlock()
	})
	b.Add(Event{Type: EventModify, Path: "run.log"})
	b.Cancel()

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if called {
		t.Error("emit should not be called after Cancel")
	}
	if b.pending() != 0 {
		t.Errorf("pending() = %d, want 0 after Cancel", b.pending())
	}
}

func TestBatchDebouncerFlushNow(t *testing.T) {
	var received []Event
	b := NewBatchDebouncer(time.Hour, func(events []Event) { received = events })

	b.Add(Event{Type: EventModify, Path: "run.log"})
	b.flushNow()

	if len(received) != 1 {
		t.Errorf("received %d events after flushNow, want 1", len(received))
	}

	received = nil
	b.flushNow()
	if received != nil {
		t.Error("flushNow with no pending events should not emit")
	}
}

func TestWatcher_RunDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "run.log")
	other := filepath.Join(dir, "other.log")
	if err := os.WriteFile(logPath, []byte("NOTE: start\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	type call struct {
		path   string
		events int
	}
	calls := make(chan call, 8)
	w := New(Config{Debounce: 100 * time.Millisecond, Initial: true}, nil, func(_ context.Context, p string, events []Event) {
		calls <- call{path: p, events: len(events)}
	})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx, logPath, logPath) }()

	first := waitCall(t, calls)
	if first.path != logPath || first.events != 0 {
		t.Fatalf("initial call = %+v", first)
	}

	// Give the watcher time to register before writing.
	time.Sleep(50 * time.Millisecond)
	for i := 0; i < 3; i++ {
		appendLine(t, logPath, "ERROR: Expected %DO not found.")
		appendLine(t, other, "ignored")
		time.Sleep(10 * time.Millisecond)
	}

	second := waitCall(t, calls)
	if second.path != logPath || second.events == 0 {
		t.Errorf("debounced call = %+v", second)
	}

	select {
	case extra := <-calls:
		t.Errorf("unexpected extra call %+v", extra)
	case <-time.After(300 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestWatcher_RunNoPaths(t *testing.T) {
	if err := New(Config{}, nil, nil).Run(context.Background()); err == nil {
		t.Error("expected error with no paths")
	}
}

func waitCall[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for handler")
	}
	var zero T
	return zero
}

func appendLine(t *testing.T, path, line string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		t.Fatal(err)
	}
}
