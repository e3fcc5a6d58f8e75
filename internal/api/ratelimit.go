package api

import (
	"time"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/ratelimit"
)

// RateLimiter wraps KeyedRateLimiter for API use.
type RateLimiter = ratelimit.KeyedRateLimiter

// NewRateLimiter creates a new rate limiter.
// ratePerInterval: number of requests allowed per interval
// interval: time period for the rate (e.g., time.Minute)
// burst: maximum burst size
func NewRateLimiter(ratePerInterval int, interval time.Duration, burst int) *RateLimiter {
	rps := float64(ratePerInterval) / interval.Seconds()
	return ratelimit.New(rps, burst)
}

// rateLimitKey picks the best available caller identity for IP-keyed
// limiting. The daemon normally listens on loopback, so proxy headers
// are the only way to distinguish callers behind a reverse proxy.
func rateLimitKey(forwardedFor, realIP string) string {
	if forwardedFor != "" {
		// First IP in the chain is the client.
		for i := range len(forwardedFor) {
			if forwardedFor[i] == ',' {
				return forwardedFor[:i]
			}
		}
		return forwardedFor
	}
	if realIP != "" {
		return realIP
	}
	return "local"
}
