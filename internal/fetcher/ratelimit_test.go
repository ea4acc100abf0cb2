package fetcher

import (
	"context"
	"testing"
	"time"
)

func TestLimiterAllowsUpToQuota(t *testing.T) {
	l := newLimiter(time.Minute, 3, 0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.acquire(ctx); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("first %d acquires took %v, expected no blocking", 3, elapsed)
	}

	calls, _, _ := l.state()
	if calls != 3 {
		t.Errorf("callsInWindow = %d, want 3", calls)
	}
}

func TestLimiterBlocksOverQuota(t *testing.T) {
	l := newLimiter(200*time.Millisecond, 1, 0)
	ctx := context.Background()

	if err := l.acquire(ctx); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	// Second acquire must wait for the window to roll over.
	start := time.Now()
	if err := l.acquire(ctx); err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("second acquire returned after %v, expected to wait for window rollover", elapsed)
	}
}

func TestLimiterEnforcesMinSpacing(t *testing.T) {
	l := newLimiter(time.Minute, 100, 150*time.Millisecond)
	ctx := context.Background()

	if err := l.acquire(ctx); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	start := time.Now()
	if err := l.acquire(ctx); err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("second acquire returned after %v, expected min spacing wait", elapsed)
	}
}

func TestLimiterCancelledWhileWaiting(t *testing.T) {
	l := newLimiter(time.Hour, 1, 0)
	ctx := context.Background()

	if err := l.acquire(ctx); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	err := l.acquire(waitCtx)
	if err != context.DeadlineExceeded {
		t.Errorf("acquire under exhausted quota = %v, want context.DeadlineExceeded", err)
	}

	// A slot must not have been recorded for the failed acquire.
	calls, _, _ := l.state()
	if calls != 1 {
		t.Errorf("callsInWindow = %d after cancelled acquire, want 1", calls)
	}
}

func TestLimiterWindowRollover(t *testing.T) {
	l := newLimiter(100*time.Millisecond, 2, 0)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.acquire(ctx); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}

	time.Sleep(120 * time.Millisecond)

	// Window elapsed; counter resets.
	if err := l.acquire(ctx); err != nil {
		t.Fatalf("acquire after rollover: %v", err)
	}
	calls, _, _ := l.state()
	if calls != 1 {
		t.Errorf("callsInWindow = %d after rollover, want 1", calls)
	}
}
