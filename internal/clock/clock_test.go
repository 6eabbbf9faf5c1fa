package clock

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type fixedClock struct {
	at time.Time
}

func (c fixedClock) Now() time.Time {
	return c.at
}

func TestWatcherTicksWithClockTime(t *testing.T) {
	at := time.Date(2026, 8, 28, 21, 0, 0, 0, time.UTC)

	var ticks atomic.Int32
	done := make(chan struct{})
	w := NewWatcher(fixedClock{at: at}, time.Millisecond, func(now time.Time) {
		if !now.Equal(at) {
			t.Errorf("expected injected clock time %v, got %v", at, now)
		}
		if ticks.Add(1) == 3 {
			close(done)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("watcher did not tick in time")
	}
}

func TestWatcherStopsOnCancel(t *testing.T) {
	w := NewWatcher(System{}, time.Millisecond, func(time.Time) {})

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(stopped)
	}()

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("watcher did not stop on cancel")
	}
}

func TestNewWatcherDefaults(t *testing.T) {
	w := NewWatcher(nil, 0, func(time.Time) {})
	if w.clock == nil {
		t.Fatalf("expected a default clock")
	}
	if w.interval != time.Minute {
		t.Fatalf("expected default interval of one minute, got %v", w.interval)
	}
}
