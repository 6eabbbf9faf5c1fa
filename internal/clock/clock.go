package clock

import (
	"context"
	"time"
)

// Clock is the wall-clock port. Injected so the automatic register close can
// be driven deterministically in tests.
type Clock interface {
	Now() time.Time
}

type System struct{}

func (System) Now() time.Time {
	return time.Now()
}

// Watcher polls the clock at a fixed interval and hands the current time to
// the callback. The callback owns all state checks; the watcher carries no
// debounce bookkeeping of its own.
type Watcher struct {
	clock    Clock
	interval time.Duration
	tick     func(now time.Time)
}

func NewWatcher(c Clock, interval time.Duration, tick func(now time.Time)) *Watcher {
	if c == nil {
		c = System{}
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Watcher{clock: c, interval: interval, tick: tick}
}

// Run blocks until ctx is cancelled, invoking the callback once per interval.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(w.clock.Now())
		}
	}
}
