package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimiter allows at most maxRequests per key within a sliding window.
type RateLimiter struct {
	mu          sync.Mutex
	requests    map[string][]time.Time
	windowSize  time.Duration
	maxRequests int
	now         func() time.Time
	stop        chan struct{}
	closeOnce   sync.Once
}

func NewRateLimiter(windowSize time.Duration, maxRequests int) *RateLimiter {
	rl := &RateLimiter{
		requests:    make(map[string][]time.Time),
		windowSize:  windowSize,
		maxRequests: maxRequests,
		now:         time.Now,
		stop:        make(chan struct{}),
	}

	go rl.cleanupLoop(time.Minute)

	return rl
}

func (rl *RateLimiter) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stop:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for key, times := range rl.requests {
		valid := rl.within(times, now)
		if len(valid) == 0 {
			delete(rl.requests, key)
		} else {
			rl.requests[key] = valid
		}
	}
}

func (rl *RateLimiter) within(times []time.Time, now time.Time) []time.Time {
	var valid []time.Time
	for _, t := range times {
		if now.Sub(t) < rl.windowSize {
			valid = append(valid, t)
		}
	}
	return valid
}

// Allow records a request for key. It returns an error wrapping
// ErrRateLimited when the window is full. A non-positive limit allows
// everything.
func (rl *RateLimiter) Allow(key string) error {
	if rl.maxRequests <= 0 {
		return nil
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	valid := rl.within(rl.requests[key], now)

	if len(valid) >= rl.maxRequests {
		rl.requests[key] = valid
		return fmt.Errorf("%w: maximum %d requests per %v", ErrRateLimited, rl.maxRequests, rl.windowSize)
	}

	rl.requests[key] = append(valid, now)
	return nil
}

// tracked is the number of keys currently held.
func (rl *RateLimiter) tracked() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.requests)
}

func (rl *RateLimiter) Close() {
	rl.closeOnce.Do(func() { close(rl.stop) })
}
