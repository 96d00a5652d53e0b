package security

import (
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned when an event exceeds its limit.
var ErrRateLimited = errors.New("rate limit exceeded")

// Rate limited event kinds.
const (
	KindAuth    = "auth"
	KindExecute = "execute"
	KindSignIn  = "sign_in"
)

// RateLimitConfig sets per-minute limits. Zero means the default.
type RateLimitConfig struct {
	// AuthPerMin bounds gateway authentication attempts.
	AuthPerMin int `yaml:"auth_per_min"`
	// ExecutePerMin bounds batch executions.
	ExecutePerMin int `yaml:"execute_per_min"`
	// SignInPerMin bounds sign-in steps (code requests in particular).
	SignInPerMin int `yaml:"sign_in_per_min"`
}

func (c *RateLimitConfig) defaults() {
	if c.AuthPerMin <= 0 {
		c.AuthPerMin = 30
	}
	if c.ExecutePerMin <= 0 {
		c.ExecutePerMin = 120
	}
	if c.SignInPerMin <= 0 {
		c.SignInPerMin = 5
	}
}

// RateLimiter is a sliding window limiter with one window per event kind.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	window time.Duration
	limit  int
	events []time.Time
}

// NewRateLimiter creates a limiter for cfg.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	cfg.defaults()
	return &RateLimiter{
		now: time.Now,
		buckets: map[string]*bucket{
			KindAuth:    {window: time.Minute, limit: cfg.AuthPerMin},
			KindExecute: {window: time.Minute, limit: cfg.ExecutePerMin},
			KindSignIn:  {window: time.Minute, limit: cfg.SignInPerMin},
		},
	}
}

// Allow records one event of kind, or returns ErrRateLimited. Unknown kinds
// are not limited.
func (rl *RateLimiter) Allow(kind string) error {
	return rl.AllowN(kind, 1)
}

// AllowN records n events of kind at once.
func (rl *RateLimiter) AllowN(kind string, n int) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[kind]
	if !ok {
		return nil
	}
	now := rl.now()
	b.evict(now)
	if len(b.events)+n > b.limit {
		return ErrRateLimited
	}
	for range n {
		b.events = append(b.events, now)
	}
	return nil
}

// evict drops events older than the window. Events are in time order.
func (b *bucket) evict(now time.Time) {
	cutoff := now.Add(-b.window)
	i := 0
	for i < len(b.events) && b.events[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		b.events = b.events[i:]
	}
}
