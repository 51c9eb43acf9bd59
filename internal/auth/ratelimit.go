package auth

import (
	"strings"
	"sync"
	"time"

	"github.com/mrlokans/learncard/internal/config"
)

// RateLimiter throttles login attempts per client IP and email. It sits in
// front of the per-account lockout in Service, so a flood from one address
// is turned away before any password is hashed.
type RateLimiter struct {
	mu       sync.Mutex
	attempts map[limiterKey]*attemptWindow
	limits   RateLimitConfig
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

type limiterKey struct {
	ip    string
	email string
}

type attemptWindow struct {
	failures    int
	openedAt    time.Time
	lockedUntil time.Time
}

type RateLimitConfig struct {
	MaxAttempts     int
	Window          time.Duration
	Lockout         time.Duration
	CleanupInterval time.Duration
}

// RateLimitConfigFrom reads limits from the auth config, filling in defaults.
func RateLimitConfigFrom(cfg config.Auth) RateLimitConfig {
	return RateLimitConfig{
		MaxAttempts: cfg.MaxLoginAttempts,
		Window:      cfg.RateLimitWindow,
		Lockout:     cfg.LockoutDuration,
	}.withDefaults()
}

func (c RateLimitConfig) withDefaults() RateLimitConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.Window <= 0 {
		c.Window = 15 * time.Minute
	}
	if c.Lockout <= 0 {
		c.Lockout = 30 * time.Minute
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = 5 * time.Minute
	}
	return c
}

// NewRateLimiter starts a limiter with a background sweep. Call Stop when done.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		attempts: make(map[limiterKey]*attemptWindow),
		limits:   cfg.withDefaults(),
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func keyFor(ip, email string) limiterKey {
	return limiterKey{ip: ip, email: strings.ToLower(strings.TrimSpace(email))}
}

// Allow reports whether a login attempt may proceed. When it may not,
// retryAfter says how long the caller has to wait.
func (rl *RateLimiter) Allow(ip, email string) (bool, time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.attempts[keyFor(ip, email)]
	if !ok {
		return true, 0
	}
	if now.Before(w.lockedUntil) {
		return false, w.lockedUntil.Sub(now)
	}
	if now.Sub(w.openedAt) > rl.limits.Window {
		return true, 0
	}
	return w.failures < rl.limits.MaxAttempts, 0
}

// RecordFailure counts a failed attempt and reports whether it triggered a lockout.
func (rl *RateLimiter) RecordFailure(ip, email string) (bool, time.Duration) {
	now := rl.now()
	key := keyFor(ip, email)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.attempts[key]
	if !ok || now.Sub(w.openedAt) > rl.limits.Window {
		w = &attemptWindow{openedAt: now}
		rl.attempts[key] = w
	}

	w.failures++
	if w.failures >= rl.limits.MaxAttempts {
		w.lockedUntil = now.Add(rl.limits.Lockout)
		return true, rl.limits.Lockout
	}
	return false, 0
}

// RecordSuccess forgets earlier failures.
func (rl *RateLimiter) RecordSuccess(ip, email string) {
	rl.mu.Lock()
	delete(rl.attempts, keyFor(ip, email))
	rl.mu.Unlock()
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(rl.limits.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stop:
			return
		}
	}
}

func (rl *RateLimiter) sweep() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, w := range rl.attempts {
		if now.Sub(w.openedAt) > rl.limits.Window && !now.Before(w.lockedUntil) {
			delete(rl.attempts, key)
		}
	}
}
