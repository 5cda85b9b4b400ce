package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// SlidingWindowAlgorithm admits a request when fewer than limit requests
// for the same key fall inside the trailing window. Tracking individual
// timestamps avoids the edge bursts a fixed-window counter allows.
//
// The algorithm also guards against the system clock stepping backwards
// (NTP corrections): each key remembers the newest timestamp it has seen
// and refuses to move behind it, so a clock step can never re-open a
// window that was already spent.
type SlidingWindowAlgorithm struct {
	clock Clock

	mu       sync.Mutex
	lastSeen map[string]time.Time
}

// NewSlidingWindowAlgorithm constructs the algorithm. A nil clock means the
// system clock.
func NewSlidingWindowAlgorithm(clock Clock) *SlidingWindowAlgorithm {
	if clock == nil {
		clock = SystemClock{}
	}
	return &SlidingWindowAlgorithm{
		clock:    clock,
		lastSeen: make(map[string]time.Time),
	}
}

// IsAllowed checks and records one request for key against store. The
// check and the insert happen atomically inside the store, so concurrent
// callers cannot both squeeze under the limit.
func (a *SlidingWindowAlgorithm) IsAllowed(ctx context.Context, key string, store RateLimitStore, limit int, window time.Duration) (*RateLimitDecision, error) {
	now := a.steadyNow(key)
	cutoff := now.Add(-window)
	resetAt := now.Add(window)

	allowed, count, err := store.CheckAndAddRequest(ctx, key, now, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: check request: %w", err)
	}

	if allowed {
		return NewAllowedDecision(key, limit, limit-count, resetAt), nil
	}

	decision := NewDeniedDecision(key, limit, resetAt)
	decision.RetryAfter = resetAt.Sub(now)
	return decision, nil
}

// steadyNow returns the clock's current time, clamped so it never moves
// behind the newest timestamp already observed for key.
func (a *SlidingWindowAlgorithm) steadyNow(key string) time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.clock.Now()
	if last, ok := a.lastSeen[key]; ok && now.Before(last) {
		slog.Warn("ratelimit: clock moved backwards, holding last timestamp",
			slog.String("key", key), slog.Duration("skew", last.Sub(now)))
		return last
	}
	a.lastSeen[key] = now
	return now
}

// CleanupExpiredTimestamps drops clock-skew tracking entries older than
// maxAge and reports how many were removed. Call it on the same cadence as
// the store's own cleanup.
func (a *SlidingWindowAlgorithm) CleanupExpiredTimestamps(maxAge time.Duration) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := a.clock.Now().Add(-maxAge)
	removed := 0
	for key, ts := range a.lastSeen {
		if ts.Before(cutoff) {
			delete(a.lastSeen, key)
			removed++
		}
	}
	return removed
}

// TrackedKeys reports how many keys hold clock-skew state.
func (a *SlidingWindowAlgorithm) TrackedKeys() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.lastSeen)
}
