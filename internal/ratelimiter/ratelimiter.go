// Package ratelimiter provides rate limiting primitives built on
// golang.org/x/time/rate.
//
// Two flavors are offered:
//   - RateLimiter: classic token bucket (sustained rate + burst), used to cap
//     aggregate command ingestion.
//   - IntervalLimiter: enforces a minimum delay between consecutive events,
//     used to pace per-connection reads and commands. A paced caller sleeps
//     the remainder of the interval instead of being rejected, trading
//     latency for a bounded worst-case ingestion rate.
package ratelimiter

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter wraps a token bucket limiter.
//
// Thread safety: all methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a RateLimiter allowing requestsPerSecond sustained with the
// given burst capacity. A zero requestsPerSecond disables limiting.
func New(requestsPerSecond, burst uint) *RateLimiter {
	if requestsPerSecond == 0 {
		// Effectively unlimited; rate.Inf has edge cases with Wait.
		requestsPerSecond = 1_000_000_000
		burst = requestsPerSecond
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst)),
	}
}

// Allow reports whether one event may proceed now, consuming a token if so.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Wait blocks until a token is available or the context is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Tokens returns the current number of available tokens. Primarily useful
// for monitoring and tests.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}

// IntervalLimiter enforces a minimum interval between consecutive events.
//
// It is a token bucket with capacity 1 refilled once per interval: the first
// Pace returns immediately, subsequent calls block until the interval since
// the previous event has elapsed.
//
// Thread safety: safe for concurrent use, though it is normally owned by a
// single reader goroutine.
type IntervalLimiter struct {
	limiter *rate.Limiter
}

// NewInterval creates an IntervalLimiter with the given floor. A zero or
// negative interval disables pacing.
func NewInterval(interval time.Duration) *IntervalLimiter {
	if interval <= 0 {
		return &IntervalLimiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &IntervalLimiter{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Pace blocks until the configured interval since the previous event has
// elapsed, or the context is cancelled.
func (l *IntervalLimiter) Pace(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
