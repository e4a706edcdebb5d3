package api

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const rateWindow = time.Minute

// RateLimiter implements per-IP rate limiting with a sliding one minute window
type RateLimiter struct {
	limits            map[string][]time.Time
	maxRequestsPerMin int
	clock             clockwork.Clock
	mu                sync.Mutex
	cleanupInterval   time.Duration
	stopCleanup       chan struct{}
	stopOnce          sync.Once
}

// NewRateLimiter creates a rate limiter and starts its cleanup goroutine.
// A nil clock uses the real clock.
func NewRateLimiter(maxRequestsPerMinute int, clock clockwork.Clock) *RateLimiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	rl := &RateLimiter{
		limits:            make(map[string][]time.Time),
		maxRequestsPerMin: maxRequestsPerMinute,
		clock:             clock,
		cleanupInterval:   5 * time.Minute,
		stopCleanup:       make(chan struct{}),
	}

	go rl.startCleanup()

	return rl
}

// Allow records a request from ip and reports whether it is within the limit.
// When it is not, retryAfter is the wait until the oldest request leaves the window.
func (rl *RateLimiter) Allow(ip string) (allowed bool, retryAfter time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	requests := prune(rl.limits[ip], now)

	if len(requests) >= rl.maxRequestsPerMin {
		rl.limits[ip] = requests
		return false, rateWindow - now.Sub(requests[0])
	}

	rl.limits[ip] = append(requests, now)
	return true, 0
}

// prune drops requests that have left the window. requests is sorted oldest first.
func prune(requests []time.Time, now time.Time) []time.Time {
	i := 0
	for i < len(requests) && now.Sub(requests[i]) >= rateWindow {
		i++
	}
	return requests[i:]
}

func (rl *RateLimiter) startCleanup() {
	ticker := rl.clock.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanup removes IPs with no requests left in the window
func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	for ip, requests := range rl.limits {
		requests = prune(requests, now)
		if len(requests) == 0 {
			delete(rl.limits, ip)
		} else {
			rl.limits[ip] = requests
		}
	}
}

// tracked returns the number of IPs currently held
func (rl *RateLimiter) tracked() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limits)
}

// Stop stops the cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCleanup) })
}
