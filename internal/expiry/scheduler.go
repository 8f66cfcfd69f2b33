// Package expiry owns the automatic-logout timer. The single pending handle
// lives in exactly one place — a Scheduler field — so "at most one armed
// timer process-wide" is a structural property, not a convention.
package expiry

import (
	"sync"
	"time"

	"github.com/variel/authstate/token"
)

// Outcome reports what Schedule did with a token.
type Outcome int

const (
	// LeftAsIs: the token carries no expiry claim. Any previously armed
	// timer stays armed; the old credential's deadline still stands until
	// something replaces it.
	LeftAsIs Outcome = iota
	// Armed: a one-shot timer now covers the token's remaining lifetime.
	Armed
	// AlreadyExpired: the expiry instant is not in the future. No timer was
	// armed; the caller must run the logout synchronously.
	AlreadyExpired
)

// Handle is the cancellable timer abstraction. *time.Timer satisfies it.
type Handle interface {
	Stop() bool
}

// Scheduler arms at most one pending logout callback at a time. Arming a
// new one always cancels the prior one first, so a stale callback for a
// replaced token can never fire after the replacement.
type Scheduler struct {
	mu     sync.Mutex
	now    func() time.Time
	after  func(d time.Duration, fn func()) Handle
	handle Handle
	gen    uint64
}

// New returns a Scheduler on the real clock and real timers.
func New() *Scheduler {
	return NewWithHooks(time.Now, func(d time.Duration, fn func()) Handle {
		return time.AfterFunc(d, fn)
	})
}

// NewWithHooks injects the clock and timer factory. Tests use it to drive
// expiry deterministically.
func NewWithHooks(now func() time.Time, after func(d time.Duration, fn func()) Handle) *Scheduler {
	return &Scheduler{now: now, after: after}
}

// Schedule decodes raw and re-arms the timer against the token's expiry
// instant. The delay is recomputed from the current clock on every call —
// the deadline is a fixed point in absolute time, never a resumed relative
// countdown. fire runs on its own goroutine when the timer elapses.
func (s *Scheduler) Schedule(raw string, fire func()) Outcome {
	claims, ok := token.Decode(raw)
	if !ok || !claims.HasExpiry {
		return LeftAsIs
	}

	delta, _ := claims.Remaining(s.now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != nil {
		s.handle.Stop()
		s.handle = nil
	}

	if delta <= 0 {
		return AlreadyExpired
	}

	s.gen++
	gen := s.gen
	s.handle = s.after(delta, func() {
		s.clear(gen)
		fire()
	})
	return Armed
}

// Cancel drops any pending handle. Idempotent; calling it with nothing
// armed is a no-op.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle != nil {
		s.handle.Stop()
		s.handle = nil
	}
}

// Pending reports whether a logout callback is currently armed.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle != nil
}

// clear drops the handle only if it still belongs to the firing timer; a
// re-arm that raced the fire must keep its own handle.
func (s *Scheduler) clear(gen uint64) {
	s.mu.Lock()
	if s.gen == gen {
		s.handle = nil
	}
	s.mu.Unlock()
}
