// Package lockout tracks failed login attempts per identifier (normally an
// email address) and temporarily blocks identifiers that fail too many times
// in a row. Locks lapse on their own; a successful login forgives all
// accumulated failures. State is per-process and in-memory only, matching
// the single-instance deployment this service targets.
package lockout

import (
	"context"
	"sync"
	"time"
)

// sweepInterval is how often the background sweep removes idle entries.
const sweepInterval = 5 * time.Minute

// Config tunes the lockout policy. All three knobs are per-deployment.
type Config struct {
	// MaxAttempts is the consecutive-failure count that triggers a lock.
	MaxAttempts int
	// LockoutDuration is how long a triggered lock blocks further attempts.
	LockoutDuration time.Duration
	// ResetWindow is how long after the last attempt the failure count is
	// forgotten. A failure paced slower than this can never compound toward
	// a lock.
	ResetWindow time.Duration
}

// DefaultConfig returns the reference lockout policy.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     5,
		LockoutDuration: 15 * time.Minute,
		ResetWindow:     time.Hour,
	}
}

// Status is the structured result of recording a failed attempt, surfaced
// to callers so they can build precise user-facing messages.
type Status struct {
	Locked            bool
	RemainingAttempts int
	UnlockAt          time.Time // zero unless Locked
}

type entry struct {
	failedAttempts int
	lockedUntil    time.Time // zero means unlocked
	lastAttemptAt  time.Time
}

// Tracker is the per-identifier lockout state machine. Construct one per
// process and pass it by handle; it owns its entries exclusively.
type Tracker struct {
	cfg Config

	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Tracker with the given policy. Call Start to run the
// background sweep and Stop on shutdown.
func New(cfg Config) *Tracker {
	return &Tracker{
		cfg:     cfg,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// IsLocked reports whether the identifier is currently blocked and, if so,
// when the lock lapses. A lock whose deadline has passed is cleared here;
// expiry is lazy, driven by the next check rather than a timer.
func (t *Tracker) IsLocked(identifier string) (bool, time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[identifier]
	if !ok || e.lockedUntil.IsZero() {
		return false, time.Time{}
	}
	if t.now().Before(e.lockedUntil) {
		return true, e.lockedUntil
	}
	// Locked → Unlocked transition: the lapsed lock clears the whole entry,
	// so the next failure starts a fresh count.
	delete(t.entries, identifier)
	return false, time.Time{}
}

// RecordFailedAttempt counts one failed login. Failures older than the reset
// window are forgotten before counting; hitting MaxAttempts locks the
// identifier for the configured duration.
func (t *Tracker) RecordFailedAttempt(identifier string) Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	e, ok := t.entries[identifier]
	if !ok {
		e = &entry{}
		t.entries[identifier] = e
	} else if now.Sub(e.lastAttemptAt) > t.cfg.ResetWindow {
		e.failedAttempts = 0
		e.lockedUntil = time.Time{}
	}

	e.failedAttempts++
	e.lastAttemptAt = now

	if e.failedAttempts >= t.cfg.MaxAttempts {
		e.lockedUntil = now.Add(t.cfg.LockoutDuration)
		return Status{Locked: true, RemainingAttempts: 0, UnlockAt: e.lockedUntil}
	}
	return Status{RemainingAttempts: t.cfg.MaxAttempts - e.failedAttempts}
}

// RecordSuccessfulLogin forgives all accumulated failures for the
// identifier. Only consecutive failure is punished, never lifetime count.
func (t *Tracker) RecordSuccessfulLogin(identifier string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, identifier)
}

// Reset clears the identifier's entry. Administrative use.
func (t *Tracker) Reset(identifier string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, identifier)
}

// Sweep removes entries that are both unlocked and idle beyond the reset
// window. The background loop calls it on a timer; tests call it directly.
func (t *Tracker) Sweep() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for id, e := range t.entries {
		locked := !e.lockedUntil.IsZero() && now.Before(e.lockedUntil)
		if !locked && now.Sub(e.lastAttemptAt) > t.cfg.ResetWindow {
			delete(t.entries, id)
		}
	}
}

// Start begins the background sweep loop. Non-blocking.
func (t *Tracker) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				t.Sweep()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the background sweep loop and waits for it to exit.
func (t *Tracker) Stop() {
	if t.cancel != nil {
		t.cancel()
	}
	t.wg.Wait()
}
