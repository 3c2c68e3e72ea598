package utils

import (
	"sync"
	"time"
)

// RateLimiter controls the rate of command execution
type RateLimiter struct {
	limits map[string]*userLimit
	max    int
	window time.Duration
	now    func() time.Time
	mu     sync.Mutex
}

// userLimit tracks rate limiting for a specific user
type userLimit struct {
	lastAccess time.Time
	count      int
}

// NewRateLimiter allows max uses of a command per user per minute.
func NewRateLimiter(max int) *RateLimiter {
	if max <= 0 {
		max = 15
	}
	return &RateLimiter{
		limits: make(map[string]*userLimit),
		max:    max,
		window: time.Minute,
		now:    time.Now,
	}
}

// Allow checks if a user is allowed to execute a command
// Returns true if allowed, false if rate limited
func (rl *RateLimiter) Allow(userID, command string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	key := userID + ":" + command
	now := rl.now()

	limit, exists := rl.limits[key]
	if !exists {
		rl.limits[key] = &userLimit{
			lastAccess: now,
			count:      1,
		}
		return true
	}

	// Reset the counter once the window has passed
	if now.Sub(limit.lastAccess) >= rl.window {
		limit.lastAccess = now
		limit.count = 1
		return true
	}

	if limit.count >= rl.max {
		return false
	}

	limit.count++
	return true
}

// GetRetryAfter returns the time in seconds until the user can try again
func (rl *RateLimiter) GetRetryAfter(userID, command string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	key := userID + ":" + command
	limit, exists := rl.limits[key]
	if !exists {
		return 0
	}

	elapsed := rl.now().Sub(limit.lastAccess)
	if elapsed >= rl.window {
		return 0
	}

	return int((rl.window - elapsed).Seconds())
}
