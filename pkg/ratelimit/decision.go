package ratelimit

import (
	"fmt"
	"time"
)

// RateLimitDecision is the outcome of one limit check, with enough
// metadata for the caller to pace itself: how much budget remains and when
// the window re-opens.
type RateLimitDecision struct {
	// Allowed reports whether the request may proceed.
	Allowed bool

	// Key is the rate-limit subject (e.g., the destination host).
	Key string

	// Limit is the configured window budget.
	Limit int

	// Remaining is the budget left after this request, 0 when denied.
	Remaining int

	// ResetAt is when the current window rolls over.
	ResetAt time.Time

	// RetryAfter is how long a denied caller should wait; zero when
	// allowed.
	RetryAfter time.Duration
}

// IsAllowed reports whether the request may proceed.
func (d *RateLimitDecision) IsAllowed() bool { return d.Allowed }

// RetryAfterSeconds returns the denied caller's wait in whole seconds,
// rounded up so a sub-second wait never truncates to an immediate retry.
func (d *RateLimitDecision) RetryAfterSeconds() int64 {
	if d.RetryAfter <= 0 {
		return 0
	}
	secs := int64(d.RetryAfter / time.Second)
	if d.RetryAfter%time.Second > 0 {
		secs++
	}
	return secs
}

func (d *RateLimitDecision) String() string {
	if d.Allowed {
		return fmt.Sprintf("allowed key=%s remaining=%d/%d reset=%s",
			d.Key, d.Remaining, d.Limit, d.ResetAt.Format(time.RFC3339))
	}
	return fmt.Sprintf("denied key=%s limit=%d retry_after=%s",
		d.Key, d.Limit, d.RetryAfter)
}

// NewAllowedDecision builds the admitted-request outcome.
func NewAllowedDecision(key string, limit, remaining int, resetAt time.Time) *RateLimitDecision {
	if remaining < 0 {
		remaining = 0
	}
	return &RateLimitDecision{
		Allowed:   true,
		Key:       key,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}

// NewDeniedDecision builds the rejected-request outcome; the caller sets
// RetryAfter from its own window arithmetic.
func NewDeniedDecision(key string, limit int, resetAt time.Time) *RateLimitDecision {
	return &RateLimitDecision{
		Allowed: false,
		Key:     key,
		Limit:   limit,
		ResetAt: resetAt,
	}
}
