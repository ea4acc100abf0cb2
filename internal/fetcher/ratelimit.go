package fetcher

import (
	"context"
	"sync"
	"time"
)

// limiter enforces a fixed-window call quota and a minimum spacing between
// calls. All state is owned by the limiter and mutated under one mutex.
type limiter struct {
	mu sync.Mutex

	window     time.Duration
	quota      int
	minSpacing time.Duration

	callsInWindow int
	windowStart   time.Time
	lastCallAt    time.Time
}

func newLimiter(window time.Duration, quota int, minSpacing time.Duration) *limiter {
	return &limiter{
		window:     window,
		quota:      quota,
		minSpacing: minSpacing,
	}
}

// acquire blocks until a call slot is available, then records the call.
// Returns ctx.Err() if the context is cancelled while waiting. The lock is
// held only across the check-and-update; waiting happens unlocked, so
// concurrent callers serialize rather than race.
func (l *limiter) acquire(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := time.Now()

		if l.windowStart.IsZero() || now.Sub(l.windowStart) >= l.window {
			l.windowStart = now
			l.callsInWindow = 0
		}

		var wait time.Duration
		if l.callsInWindow >= l.quota {
			wait = l.window - now.Sub(l.windowStart)
		} else if !l.lastCallAt.IsZero() {
			if gap := l.minSpacing - now.Sub(l.lastCallAt); gap > 0 {
				wait = gap
			}
		}

		if wait <= 0 {
			l.callsInWindow++
			l.lastCallAt = now
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// state returns a copy of the current counters, for stats reporting.
func (l *limiter) state() (callsInWindow int, windowStart, lastCallAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.callsInWindow, l.windowStart, l.lastCallAt
}
