package ratelimit

import (
	"sync"
	"testing"
	"time"
)

// testClock returns a limiter with a controllable clock.
func testClock(l *Limiter) *time.Time {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return &now
}

func TestCheckAndConsumeWindow(t *testing.T) {
	l := New()
	now := testClock(l)

	// Exactly limit calls pass within the window
	for i := 0; i < 10; i++ {
		if l.CheckAndConsume("user:1", 10, time.Minute) {
			t.Fatalf("call %d: unexpectedly limited", i+1)
		}
	}

	// The 11th is limited
	if !l.CheckAndConsume("user:1", 10, time.Minute) {
		t.Fatal("11th call: expected limited")
	}

	// After the window elapses, a fresh window begins
	*now = now.Add(time.Minute + time.Second)
	if l.CheckAndConsume("user:1", 10, time.Minute) {
		t.Fatal("12th call in new window: unexpectedly limited")
	}
}

func TestLimitedCallsDoNotExtendState(t *testing.T) {
	l := New()
	now := testClock(l)

	for i := 0; i < 3; i++ {
		l.CheckAndConsume("ip:10.0.0.1", 3, time.Minute)
	}

	// Hammer while limited; count must not grow past the limit
	for i := 0; i < 50; i++ {
		if !l.CheckAndConsume("ip:10.0.0.1", 3, time.Minute) {
			continue
		}
		t.Fatal("expected limited while over the limit")
	}

	if got := l.Remaining("ip:10.0.0.1", 3); got != 0 {
		t.Errorf("Remaining: got %d, want 0", got)
	}

	// The window still resets on schedule; limited calls didn't extend it
	*now = now.Add(time.Minute + time.Second)
	if l.CheckAndConsume("ip:10.0.0.1", 3, time.Minute) {
		t.Fatal("expected fresh window after reset")
	}
}

// Fixed windows admit up to twice the limit in a burst straddling the boundary.
// This is the documented tradeoff of the algorithm, not a bug.
func TestWindowBoundaryAdmitsDoubleBurst(t *testing.T) {
	l := New()
	now := testClock(l)

	admitted := 0
	for i := 0; i < 5; i++ {
		if !l.CheckAndConsume("burst", 5, time.Minute) {
			admitted++
		}
	}

	*now = now.Add(time.Minute) // exactly at the boundary: window expired

	for i := 0; i < 5; i++ {
		if !l.CheckAndConsume("burst", 5, time.Minute) {
			admitted++
		}
	}

	if admitted != 10 {
		t.Errorf("boundary burst admitted %d, want 10 (twice the limit)", admitted)
	}
}

func TestRemainingIsReadOnly(t *testing.T) {
	l := New()
	testClock(l)

	l.CheckAndConsume("u", 5, time.Minute)

	// Repeated reads must not consume
	for i := 0; i < 10; i++ {
		if got := l.Remaining("u", 5); got != 4 {
			t.Fatalf("Remaining after %d reads: got %d, want 4", i, got)
		}
	}

	// Unknown identifier has the full allowance
	if got := l.Remaining("unknown", 5); got != 5 {
		t.Errorf("Remaining for unknown: got %d, want 5", got)
	}
}

func TestTimeUntilReset(t *testing.T) {
	l := New()
	now := testClock(l)

	if got := l.TimeUntilReset("u"); got != 0 {
		t.Errorf("TimeUntilReset for unknown: got %v, want 0", got)
	}

	l.CheckAndConsume("u", 5, time.Minute)
	if got := l.TimeUntilReset("u"); got != time.Minute {
		t.Errorf("TimeUntilReset: got %v, want 1m", got)
	}

	*now = now.Add(40 * time.Second)
	if got := l.TimeUntilReset("u"); got != 20*time.Second {
		t.Errorf("TimeUntilReset after 40s: got %v, want 20s", got)
	}

	*now = now.Add(time.Hour)
	if got := l.TimeUntilReset("u"); got != 0 {
		t.Errorf("TimeUntilReset after expiry: got %v, want 0", got)
	}
}

func TestReset(t *testing.T) {
	l := New()
	testClock(l)

	for i := 0; i < 5; i++ {
		l.CheckAndConsume("u", 5, time.Minute)
	}
	if !l.CheckAndConsume("u", 5, time.Minute) {
		t.Fatal("expected limited")
	}

	l.Reset("u")
	if l.CheckAndConsume("u", 5, time.Minute) {
		t.Fatal("expected fresh allowance after Reset")
	}
}

func TestSweepRemovesExpiredEntries(t *testing.T) {
	l := New()
	now := testClock(l)

	l.CheckAndConsume("old", 5, time.Minute)
	*now = now.Add(2 * time.Minute)
	l.CheckAndConsume("fresh", 5, time.Minute)

	l.Sweep()

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries["old"]; ok {
		t.Error("expected expired entry to be swept")
	}
	if _, ok := l.entries["fresh"]; !ok {
		t.Error("expected active entry to survive the sweep")
	}
}

func TestConcurrentCheckAndConsume(t *testing.T) {
	l := New()

	const n = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	limited := 0

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.CheckAndConsume("shared", n-1, time.Minute) {
				mu.Lock()
				limited++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// With limit = n-1, exactly one of n concurrent calls is rejected,
	// regardless of interleaving.
	if limited != 1 {
		t.Errorf("limited %d of %d concurrent calls, want exactly 1", limited, n)
	}
}

func TestStartStop(t *testing.T) {
	l := New()
	l.Start()
	l.Stop()
}
