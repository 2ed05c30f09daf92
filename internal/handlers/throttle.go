package handlers

import (
	"math"
	"sync"
	"time"
)

const (
	maxLoginAttempts   = 5
	loginBlockDuration = 15 * time.Minute
)

// loginAttempt tracks failed login attempts
type loginAttempt struct {
	count     int
	lastTry   time.Time
	blockedAt *time.Time
}

// loginThrottle blocks an IP for a while after repeated failures.
type loginThrottle struct {
	mu        sync.Mutex
	attempts  map[string]*loginAttempt
	max       int
	block     time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newLoginThrottle() *loginThrottle {
	return &loginThrottle{
		attempts: make(map[string]*loginAttempt),
		max:      maxLoginAttempts,
		block:    loginBlockDuration,
		now:      time.Now,
	}
}

// blocked reports whether ip is blocked and for how many more minutes.
func (t *loginThrottle) blocked(ip string) (bool, int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.sweep(now)

	a, ok := t.attempts[ip]
	if !ok {
		return false, 0
	}
	if t.expired(a, now) {
		delete(t.attempts, ip)
		return false, 0
	}
	if a.blockedAt != nil {
		remaining := t.block - now.Sub(*a.blockedAt)
		return true, int(math.Ceil(remaining.Minutes()))
	}
	return false, 0
}

// expired reports whether a block has run out or, for an unblocked entry,
// whether the attempts are older than the quiet period.
func (t *loginThrottle) expired(a *loginAttempt, now time.Time) bool {
	if a.blockedAt != nil {
		return now.Sub(*a.blockedAt) >= t.block
	}
	return now.Sub(a.lastTry) > t.block
}

// sweep drops stale entries at most once a minute. Caller holds t.mu.
func (t *loginThrottle) sweep(now time.Time) {
	if now.Sub(t.lastSweep) <= time.Minute {
		return
	}
	for ip, a := range t.attempts {
		if t.expired(a, now) {
			delete(t.attempts, ip)
		}
	}
	t.lastSweep = now
}

// fail records a failed attempt and returns the attempts left before a block.
func (t *loginThrottle) fail(ip string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.sweep(now)

	a, ok := t.attempts[ip]
	if !ok || t.expired(a, now) {
		a = &loginAttempt{}
		t.attempts[ip] = a
	}
	a.count++
	a.lastTry = now
	if a.count >= t.max {
		a.blockedAt = &now
	}
	return t.max - a.count
}

func (t *loginThrottle) clear(ip string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.attempts, ip)
}
