// Package ratelimiter implements per-identity token bucket limiting,
// used as the posting flood control in front of the submission pipeline.
package ratelimiter

import (
	"sync"
	"time"
)

// RateLimiter is one identity's token bucket.
type RateLimiter struct {
	tokens     float64
	capacity   float64
	rate       float64
	lastRefill time.Time
	mu         sync.Mutex
	timer      *time.Timer
	identity   string
	parent     *UserRateLimiter
}

// UserRateLimiter manages buckets for many identities and evicts idle
// ones after expirationTime.
type UserRateLimiter struct {
	limiters       map[string]*RateLimiter
	mu             sync.RWMutex
	rate           float64
	capacity       float64
	expirationTime time.Duration
}

func New(rate float64, capacity float64, expirationTime time.Duration) *UserRateLimiter {
	return &UserRateLimiter{
		limiters:       make(map[string]*RateLimiter),
		rate:           rate,
		capacity:       capacity,
		expirationTime: expirationTime,
	}
}

func (url *UserRateLimiter) cleanup(identity string) {
	url.mu.Lock()
	delete(url.limiters, identity)
	url.mu.Unlock()
}

func (rl *RateLimiter) resetTimer() {
	if rl.timer != nil {
		rl.timer.Stop()
	}
	rl.timer = time.AfterFunc(rl.parent.expirationTime, func() {
		rl.parent.cleanup(rl.identity)
	})
}

func (url *UserRateLimiter) getLimiter(identity string) *RateLimiter {
	url.mu.RLock()
	limiter, exists := url.limiters[identity]
	url.mu.RUnlock()

	if exists {
		limiter.resetTimer()
		return limiter
	}

	url.mu.Lock()
	defer url.mu.Unlock()

	// Double-check after acquiring write lock
	limiter, exists = url.limiters[identity]
	if exists {
		limiter.resetTimer()
		return limiter
	}

	limiter = &RateLimiter{
		tokens:     url.capacity,
		capacity:   url.capacity,
		rate:       url.rate,
		lastRefill: time.Now(),
		identity:   identity,
		parent:     url,
	}
	url.limiters[identity] = limiter
	limiter.resetTimer()

	return limiter
}

func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(rl.lastRefill).Seconds()

	rl.tokens += elapsed * rl.rate
	if rl.tokens > rl.capacity {
		rl.tokens = rl.capacity
	}
	rl.lastRefill = now

	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

// Allow reports whether a request from identity may proceed.
func (url *UserRateLimiter) Allow(identity string) bool {
	return url.getLimiter(identity).Allow()
}

// Stop cleans up all eviction timers.
func (url *UserRateLimiter) Stop() {
	url.mu.Lock()
	defer url.mu.Unlock()
	for _, limiter := range url.limiters {
		if limiter.timer != nil {
			limiter.timer.Stop()
		}
	}
}

// OnceInSecond is the default posting flood limit.
func OnceInSecond() *UserRateLimiter {
	return New(1, 1, 1*time.Hour)
}

func Rps100() *UserRateLimiter {
	return New(100, 100, 1*time.Hour)
}
