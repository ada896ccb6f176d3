// Package lockout implements the failed-login lockout state machine.
//
// Lockout state lives on the user record (a failure counter plus an optional
// locked-until timestamp), so the package is pure: callers load the state,
// apply a transition, and persist the result in the same storage transaction.
package lockout

import "time"

// Policy holds the lockout thresholds.
type Policy struct {
	MaxAttempts int           // consecutive failures that trigger a lock
	Duration    time.Duration // how long a lock lasts
}

// State is the per-account lockout state as persisted on the user record.
// A zero State is unlocked with no recorded failures.
type State struct {
	FailedAttempts int
	LockedUntil    time.Time // zero means not locked
}

// Locked reports whether the account is inside an active lockout window.
func (s State) Locked(now time.Time) bool {
	return !s.LockedUntil.IsZero() && now.Before(s.LockedUntil)
}

// Remaining returns the time left in the lockout window, or zero when the
// account is not locked.
func (s State) Remaining(now time.Time) time.Duration {
	if !s.Locked(now) {
		return 0
	}
	return s.LockedUntil.Sub(now)
}

// Fail records one failed attempt and returns the next state. Reaching the
// policy threshold sets LockedUntil; failures past an expired window restart
// the count at one.
func (p Policy) Fail(s State, now time.Time) State {
	if !s.LockedUntil.IsZero() && !now.Before(s.LockedUntil) {
		// Expired lock: this failure starts a fresh count.
		s = State{}
	}
	s.FailedAttempts++
	if s.FailedAttempts >= p.MaxAttempts {
		s.LockedUntil = now.Add(p.Duration)
	}
	return s
}

// Reset returns the cleared state recorded after a successful login.
func (p Policy) Reset() State {
	return State{}
}
