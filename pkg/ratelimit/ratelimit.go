package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// bucket counts failures of one IP inside the current window.
type bucket struct {
	count       int
	windowStart time.Time
}

// FailureLimiter throttles repeated bad UI tokens per client IP.
//
// Failures are counted in a fixed window; past maxAttempts the IP is refused
// until the window ends. A successful request calls Reset.
type FailureLimiter struct {
	mu          sync.RWMutex
	buckets     map[string]*bucket
	maxAttempts int
	window      time.Duration
	clock       clock.Clock
	stopCleanup chan struct{}
	closeOnce   sync.Once
}

// NewFailureLimiter creates a limiter on the wall clock.
func NewFailureLimiter(maxAttempts int, window time.Duration) *FailureLimiter {
	return NewFailureLimiterWithClock(clock.New(), maxAttempts, window)
}

// NewFailureLimiterWithClock creates a limiter reading time from clk and
// starts the cleanup goroutine.
func NewFailureLimiterWithClock(clk clock.Clock, maxAttempts int, window time.Duration) *FailureLimiter {
	rl := &FailureLimiter{
		buckets:     make(map[string]*bucket),
		maxAttempts: maxAttempts,
		window:      window,
		clock:       clk,
		stopCleanup: make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Blocked reports whether ip has used up its attempts in the current window.
func (rl *FailureLimiter) Blocked(ip string) bool {
	now := rl.clock.Now()

	rl.mu.RLock()
	defer rl.mu.RUnlock()

	b, exists := rl.buckets[ip]
	if !exists || now.Sub(b.windowStart) > rl.window {
		return false
	}
	return b.count >= rl.maxAttempts
}

// Fail records one failed attempt for ip.
func (rl *FailureLimiter) Fail(ip string) {
	now := rl.clock.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, exists := rl.buckets[ip]
	if !exists || now.Sub(b.windowStart) > rl.window {
		rl.buckets[ip] = &bucket{count: 1, windowStart: now}
		return
	}
	b.count++
}

// Reset clears ip's failures.
func (rl *FailureLimiter) Reset(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.buckets, ip)
}

// RetryAfterSeconds returns the seconds until ip's window ends, rounded up.
func (rl *FailureLimiter) RetryAfterSeconds(ip string) int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	b, exists := rl.buckets[ip]
	if !exists {
		return 0
	}

	remaining := rl.window - rl.clock.Since(b.windowStart)
	if remaining < 0 {
		return 0
	}
	return int(remaining.Seconds()) + 1
}

// Close stops the cleanup goroutine.
func (rl *FailureLimiter) Close() {
	rl.closeOnce.Do(func() { close(rl.stopCleanup) })
}

func (rl *FailureLimiter) cleanupLoop() {
	ticker := rl.clock.Ticker(60 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *FailureLimiter) cleanup() {
	now := rl.clock.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, b := range rl.buckets {
		if now.Sub(b.windowStart) > rl.window {
			delete(rl.buckets, ip)
		}
	}
}

// ExtractIP returns the client IP of r: the first X-Forwarded-For entry,
// then X-Real-IP, then RemoteAddr.
func ExtractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// FormatRetryMessage renders a wait in seconds: 120 → "2 minute(s)".
func FormatRetryMessage(seconds int) string {
	if seconds >= 60 {
		return fmt.Sprintf("%d minute(s)", seconds/60)
	}
	return fmt.Sprintf("%d second(s)", seconds)
}
