package security

import (
	"strings"
	"sync"
	"time"
)

// RateLimiter is a per-key token bucket. Keys are client IPs for the login
// form and session ids for the other throttled forms.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	capacity int
	refill   time.Duration
	now      func() time.Time

	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

type bucket struct {
	tokens   int
	refilled time.Time
	seen     time.Time
}

// NewRateLimiter allows capacity requests per key and regains one every refill.
//
// Example:
//
//	// 5 login attempts per minute
//	limiter := NewRateLimiter(5, 12*time.Second)
//	defer limiter.Stop()
func NewRateLimiter(capacity int, refill time.Duration) *RateLimiter {
	rl := &RateLimiter{
		buckets:  make(map[string]*bucket),
		capacity: capacity,
		refill:   refill,
		now:      time.Now,
		ticker:   time.NewTicker(10 * time.Minute),
		done:     make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

// Allow consumes a token for key and reports whether one was available.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: rl.capacity, refilled: now}
		rl.buckets[key] = b
	}
	b.seen = now

	if gained := int(now.Sub(b.refilled) / rl.refill); gained > 0 {
		b.tokens += gained
		if b.tokens > rl.capacity {
			b.tokens = rl.capacity
		}
		b.refilled = b.refilled.Add(time.Duration(gained) * rl.refill)
	}

	if b.tokens == 0 {
		return false
	}
	b.tokens--
	return true
}

// Reset forgets key, restoring its full capacity.
func (rl *RateLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.buckets, key)
}

// sweep drops buckets idle for over an hour.
func (rl *RateLimiter) sweep() {
	for {
		select {
		case <-rl.ticker.C:
			rl.mu.Lock()
			cutoff := rl.now().Add(-time.Hour)
			for key, b := range rl.buckets {
				if b.seen.Before(cutoff) {
					delete(rl.buckets, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.done:
			return
		}
	}
}

// Stop ends the sweep goroutine. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() {
		rl.ticker.Stop()
		close(rl.done)
	})
}

// AccountLockout counts failed logins per email. The visitor API owns the
// accounts; this only stops the portal relaying a password spray.
type AccountLockout struct {
	mu       sync.Mutex
	accounts map[string]*lockout

	threshold int
	duration  time.Duration
	window    time.Duration
	now       func() time.Time
}

type lockout struct {
	failures    int
	lastFailure time.Time
	lockedUntil time.Time
}

// NewAccountLockout locks an email for duration after threshold failures
// that occur less than 30 minutes apart.
func NewAccountLockout(threshold int, duration time.Duration) *AccountLockout {
	return &AccountLockout{
		accounts:  make(map[string]*lockout),
		threshold: threshold,
		duration:  duration,
		window:    30 * time.Minute,
		now:       time.Now,
	}
}

// lockoutKey folds an email so "User@X.com" and "user@x.com" share one counter.
func lockoutKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RecordFailure notes a failed login and reports whether the email is now locked.
func (al *AccountLockout) RecordFailure(email string) bool {
	al.mu.Lock()
	defer al.mu.Unlock()

	k := lockoutKey(email)
	now := al.now()
	st, ok := al.accounts[k]
	if !ok || now.Sub(st.lastFailure) > al.window {
		st = &lockout{}
		al.accounts[k] = st
	}
	st.failures++
	st.lastFailure = now

	if st.failures >= al.threshold {
		st.lockedUntil = now.Add(al.duration)
		return true
	}
	return false
}

// Remaining returns how long email stays locked; zero when it is not locked.
func (al *AccountLockout) Remaining(email string) time.Duration {
	al.mu.Lock()
	defer al.mu.Unlock()

	k := lockoutKey(email)
	st, ok := al.accounts[k]
	if !ok || st.lockedUntil.IsZero() {
		return 0
	}
	left := st.lockedUntil.Sub(al.now())
	if left <= 0 {
		delete(al.accounts, k)
		return 0
	}
	return left
}

// IsLocked reports whether email is currently locked.
func (al *AccountLockout) IsLocked(email string) bool {
	return al.Remaining(email) > 0
}

// Reset clears the failure count after a successful login.
func (al *AccountLockout) Reset(email string) {
	al.mu.Lock()
	defer al.mu.Unlock()
	delete(al.accounts, lockoutKey(email))
}
