// Package ratelimit implements a fixed-window request counter keyed by an
// arbitrary identifier (user ID, IP, or a composite). State is per-process
// and in-memory only: a restart forgets all counters, and multiple instances
// do not coordinate. That is a deliberate single-instance design, not an
// oversight.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// sweepInterval is how often the background sweep removes expired entries.
const sweepInterval = 5 * time.Minute

type entry struct {
	count         int
	windowResetAt time.Time
}

// Limiter counts actions per identifier within fixed windows. Construct one
// per process and pass it by handle; it owns its entries exclusively.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Limiter. Call Start to run the background sweep and Stop on
// shutdown.
func New() *Limiter {
	return &Limiter{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// CheckAndConsume records one action for the identifier and reports whether
// the caller is over the limit. A limited call does not increment or extend
// the window, so hammering while limited cannot corrupt state.
//
// Fixed windows admit up to twice the limit in a burst straddling a window
// boundary. That artifact is accepted; the guarantee is a cap per window,
// not smooth pacing.
func (l *Limiter) CheckAndConsume(identifier string, limit int, window time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[identifier]
	if !ok || !now.Before(e.windowResetAt) {
		l.entries[identifier] = entry{count: 1, windowResetAt: now.Add(window)}
		return false
	}
	if e.count >= limit {
		return true
	}
	e.count++
	l.entries[identifier] = e
	return false
}

// Remaining reports how many actions the identifier has left in its current
// window. Read-only; never mutates an entry.
func (l *Limiter) Remaining(identifier string, limit int) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[identifier]
	if !ok || !l.now().Before(e.windowResetAt) {
		return limit
	}
	if e.count >= limit {
		return 0
	}
	return limit - e.count
}

// TimeUntilReset reports how long until the identifier's window resets.
// Returns zero for an unknown or expired identifier. Read-only.
func (l *Limiter) TimeUntilReset(identifier string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[identifier]
	if !ok {
		return 0
	}
	d := e.windowResetAt.Sub(l.now())
	if d < 0 {
		return 0
	}
	return d
}

// Reset clears the identifier's entry. Used by administrative and test flows.
func (l *Limiter) Reset(identifier string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, identifier)
}

// Sweep removes entries whose window has already expired, bounding memory to
// active identifiers. Safe to call at any time; the background loop calls it
// on a timer, and tests call it directly.
func (l *Limiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for id, e := range l.entries {
		if !now.Before(e.windowResetAt) {
			delete(l.entries, id)
		}
	}
}

// Start begins the background sweep loop. Non-blocking.
func (l *Limiter) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				l.Sweep()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the background sweep loop and waits for it to exit.
func (l *Limiter) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
	l.wg.Wait()
}
