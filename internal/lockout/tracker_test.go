package lockout

import (
	"testing"
	"time"
)

func testClock(tr *Tracker) *time.Time {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return now }
	return &now
}

func TestLockoutThreshold(t *testing.T) {
	tr := New(DefaultConfig())
	now := testClock(tr)

	for i := 1; i < 5; i++ {
		st := tr.RecordFailedAttempt("jo@example.com")
		if st.Locked {
			t.Fatalf("attempt %d: locked before threshold", i)
		}
		if st.RemainingAttempts != 5-i {
			t.Fatalf("attempt %d: remaining = %d, want %d", i, st.RemainingAttempts, 5-i)
		}
	}

	// The 5th consecutive failure triggers the lock
	st := tr.RecordFailedAttempt("jo@example.com")
	if !st.Locked {
		t.Fatal("5th attempt: expected locked")
	}
	if st.RemainingAttempts != 0 {
		t.Errorf("remaining = %d, want 0", st.RemainingAttempts)
	}
	if want := now.Add(15 * time.Minute); !st.UnlockAt.Equal(want) {
		t.Errorf("UnlockAt = %v, want %v", st.UnlockAt, want)
	}

	locked, unlockAt := tr.IsLocked("jo@example.com")
	if !locked {
		t.Fatal("IsLocked: expected true after threshold")
	}
	if !unlockAt.Equal(st.UnlockAt) {
		t.Errorf("IsLocked UnlockAt = %v, want %v", unlockAt, st.UnlockAt)
	}
}

func TestLockLapsesOnItsOwn(t *testing.T) {
	tr := New(DefaultConfig())
	now := testClock(tr)

	for i := 0; i < 5; i++ {
		tr.RecordFailedAttempt("jo@example.com")
	}

	*now = now.Add(15*time.Minute + time.Second)
	if locked, _ := tr.IsLocked("jo@example.com"); locked {
		t.Fatal("expected lock to lapse after the lockout duration")
	}

	// The lapsed lock cleared the entry, so the next failure counts from one
	st := tr.RecordFailedAttempt("jo@example.com")
	if st.Locked {
		t.Fatal("first failure after lapse: unexpectedly locked")
	}
	if st.RemainingAttempts != 4 {
		t.Errorf("remaining after lapse = %d, want 4", st.RemainingAttempts)
	}
}

func TestFailuresForgottenAfterResetWindow(t *testing.T) {
	tr := New(DefaultConfig())
	now := testClock(tr)

	for i := 0; i < 4; i++ {
		tr.RecordFailedAttempt("jo@example.com")
	}

	// A failure paced slower than the reset window starts a fresh count
	*now = now.Add(time.Hour + time.Second)
	st := tr.RecordFailedAttempt("jo@example.com")
	if st.Locked {
		t.Fatal("expected stale failures to be forgotten, got locked")
	}
	if st.RemainingAttempts != 4 {
		t.Errorf("remaining = %d, want 4 (count restarted at 1)", st.RemainingAttempts)
	}
}

func TestSuccessfulLoginForgivesFailures(t *testing.T) {
	tr := New(DefaultConfig())
	testClock(tr)

	for i := 0; i < 3; i++ {
		tr.RecordFailedAttempt("jo@example.com")
	}
	tr.RecordSuccessfulLogin("jo@example.com")

	// Four more failures after forgiveness must not lock (threshold is 5)
	var st Status
	for i := 0; i < 4; i++ {
		st = tr.RecordFailedAttempt("jo@example.com")
	}
	if st.Locked {
		t.Fatal("expected no lock: success wiped the earlier failures")
	}
	if st.RemainingAttempts != 1 {
		t.Errorf("remaining = %d, want 1", st.RemainingAttempts)
	}
}

func TestIsLockedUnknownIdentifier(t *testing.T) {
	tr := New(DefaultConfig())
	testClock(tr)

	locked, unlockAt := tr.IsLocked("nobody@example.com")
	if locked {
		t.Error("unknown identifier reported locked")
	}
	if !unlockAt.IsZero() {
		t.Errorf("unlockAt = %v, want zero", unlockAt)
	}
}

func TestIdentifiersAreIndependent(t *testing.T) {
	tr := New(DefaultConfig())
	testClock(tr)

	for i := 0; i < 5; i++ {
		tr.RecordFailedAttempt("victim@example.com")
	}

	if locked, _ := tr.IsLocked("bystander@example.com"); locked {
		t.Error("lock leaked across identifiers")
	}
	st := tr.RecordFailedAttempt("bystander@example.com")
	if st.RemainingAttempts != 4 {
		t.Errorf("bystander remaining = %d, want 4", st.RemainingAttempts)
	}
}

func TestReset(t *testing.T) {
	tr := New(DefaultConfig())
	testClock(tr)

	for i := 0; i < 5; i++ {
		tr.RecordFailedAttempt("jo@example.com")
	}
	tr.Reset("jo@example.com")

	if locked, _ := tr.IsLocked("jo@example.com"); locked {
		t.Fatal("expected unlocked after Reset")
	}
}

func TestSweepRemovesIdleEntries(t *testing.T) {
	tr := New(DefaultConfig())
	now := testClock(tr)

	tr.RecordFailedAttempt("idle@example.com")
	for i := 0; i < 5; i++ {
		tr.RecordFailedAttempt("locked@example.com")
	}

	*now = now.Add(time.Hour + time.Second)
	tr.RecordFailedAttempt("active@example.com")

	tr.Sweep()

	tr.mu.Lock()
	defer tr.mu.Unlock()
	if _, ok := tr.entries["idle@example.com"]; ok {
		t.Error("expected idle unlocked entry to be swept")
	}
	if _, ok := tr.entries["active@example.com"]; !ok {
		t.Error("expected recent entry to survive the sweep")
	}
	// The 15m lock lapsed long ago, so this entry is idle and goes too
	if _, ok := tr.entries["locked@example.com"]; ok {
		t.Error("expected lapsed lock with idle entry to be swept")
	}
}

func TestSweepKeepsActiveLocks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LockoutDuration = 2 * time.Hour
	tr := New(cfg)
	now := testClock(tr)

	for i := 0; i < 5; i++ {
		tr.RecordFailedAttempt("locked@example.com")
	}

	*now = now.Add(time.Hour + time.Minute)
	tr.Sweep()

	if locked, _ := tr.IsLocked("locked@example.com"); !locked {
		t.Fatal("sweep removed an entry whose lock is still active")
	}
}

func TestStartStop(t *testing.T) {
	tr := New(DefaultConfig())
	tr.Start()
	tr.Stop()
}
