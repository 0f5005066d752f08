// Package ratelimit gates outbound PokeAPI requests. It caps the number of
// concurrent requests and honours Retry-After back-pressure from the
// upstream after a 429 or 503.
package ratelimit

import (
	"time"
)

const (
	// DefaultMaxConcurrency is the default number of parallel upstream requests.
	DefaultMaxConcurrency = 10

	// DefaultBackoff applies when a 429 carries no usable Retry-After.
	DefaultBackoff = 5 * time.Second

	// MaxBackoff caps the block window taken from Retry-After.
	MaxBackoff = 2 * time.Minute
)

// RateLimitState is a snapshot of the limiter.
type RateLimitState struct {
	// InFlight is the number of requests currently holding a slot.
	InFlight int64 `json:"in_flight"`

	// Capacity is the configured concurrency cap.
	Capacity int64 `json:"capacity"`

	// BlockedUntil is when new requests may proceed again after upstream
	// back-pressure. Zero when not blocked.
	BlockedUntil time.Time `json:"blocked_until"`

	// LastUpdate is when back-pressure was last recorded.
	LastUpdate time.Time `json:"last_update"`
}

// IsBlocked reports whether new requests must wait for the reset instant.
func (s *RateLimitState) IsBlocked() bool {
	return time.Now().Before(s.BlockedUntil)
}

// IsSaturated reports whether every slot is taken.
func (s *RateLimitState) IsSaturated() bool {
	return s.Capacity > 0 && s.InFlight >= s.Capacity
}

// TimeUntilReset returns the duration until requests are unblocked.
// Returns 0 if not blocked.
func (s *RateLimitState) TimeUntilReset() time.Duration {
	duration := time.Until(s.BlockedUntil)
	if duration < 0 {
		return 0
	}
	return duration
}
