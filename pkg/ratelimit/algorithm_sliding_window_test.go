package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock steps time under test control.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) rewind(d time.Duration) { c.advance(-d) }

func newTestLimiter() (*SlidingWindowAlgorithm, *InMemoryRateLimitStore, *fakeClock) {
	clock := newFakeClock()
	algo := NewSlidingWindowAlgorithm(clock)
	store := NewInMemoryRateLimitStore(InMemoryStoreConfig{MaxKeys: 100, Clock: clock})
	return algo, store, clock
}

func TestSlidingWindow_AllowsUpToLimit(t *testing.T) {
	algo, store, clock := newTestLimiter()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		decision, err := algo.IsAllowed(ctx, "news.example.com", store, 3, time.Minute)
		if err != nil {
			t.Fatalf("IsAllowed: %v", err)
		}
		if !decision.IsAllowed() {
			t.Fatalf("request %d should be allowed", i+1)
		}
		if decision.Remaining != 3-(i+1) {
			t.Errorf("request %d: Remaining = %d, want %d", i+1, decision.Remaining, 3-(i+1))
		}
		clock.advance(time.Second)
	}

	decision, err := algo.IsAllowed(ctx, "news.example.com", store, 3, time.Minute)
	if err != nil {
		t.Fatalf("IsAllowed: %v", err)
	}
	if decision.IsAllowed() {
		t.Error("fourth request inside the window should be denied")
	}
	if decision.RetryAfter <= 0 {
		t.Error("denied decision must carry a positive RetryAfter")
	}
}

func TestSlidingWindow_WindowSlides(t *testing.T) {
	algo, store, clock := newTestLimiter()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if d, _ := algo.IsAllowed(ctx, "h", store, 2, time.Minute); !d.IsAllowed() {
			t.Fatalf("priming request %d denied", i)
		}
	}
	if d, _ := algo.IsAllowed(ctx, "h", store, 2, time.Minute); d.IsAllowed() {
		t.Fatal("limit should be exhausted")
	}

	// Once the first requests fall out of the trailing window, budget
	// returns.
	clock.advance(61 * time.Second)
	d, err := algo.IsAllowed(ctx, "h", store, 2, time.Minute)
	if err != nil {
		t.Fatalf("IsAllowed: %v", err)
	}
	if !d.IsAllowed() {
		t.Error("request after the window slid should be allowed")
	}
}

func TestSlidingWindow_KeysAreIndependent(t *testing.T) {
	algo, store, _ := newTestLimiter()
	ctx := context.Background()

	if d, _ := algo.IsAllowed(ctx, "a.example.com", store, 1, time.Minute); !d.IsAllowed() {
		t.Fatal("first key should be allowed")
	}
	if d, _ := algo.IsAllowed(ctx, "a.example.com", store, 1, time.Minute); d.IsAllowed() {
		t.Fatal("first key should now be exhausted")
	}
	if d, _ := algo.IsAllowed(ctx, "b.example.com", store, 1, time.Minute); !d.IsAllowed() {
		t.Error("second key must have its own budget")
	}
}

func TestSlidingWindow_ClockRewindDoesNotReopenWindow(t *testing.T) {
	algo, store, clock := newTestLimiter()
	ctx := context.Background()

	if d, _ := algo.IsAllowed(ctx, "h", store, 1, time.Minute); !d.IsAllowed() {
		t.Fatal("priming request denied")
	}

	// The clock stepping backwards must not slide the window backwards
	// with it.
	clock.rewind(30 * time.Second)
	d, err := algo.IsAllowed(ctx, "h", store, 1, time.Minute)
	if err != nil {
		t.Fatalf("IsAllowed: %v", err)
	}
	if d.IsAllowed() {
		t.Error("rewound clock must not grant fresh budget")
	}
}

func TestSlidingWindow_ConcurrentCallersNeverExceedLimit(t *testing.T) {
	algo, store, _ := newTestLimiter()
	ctx := context.Background()

	const workers = 32
	const limit = 10
	var allowed atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := algo.IsAllowed(ctx, "h", store, limit, time.Minute)
			if err == nil && d.IsAllowed() {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := allowed.Load(); got != limit {
		t.Errorf("allowed = %d, want exactly %d", got, limit)
	}
}

func TestSlidingWindow_CleanupExpiredTimestamps(t *testing.T) {
	algo, store, clock := newTestLimiter()
	ctx := context.Background()

	_, _ = algo.IsAllowed(ctx, "old", store, 1, time.Minute)
	clock.advance(2 * time.Hour)
	_, _ = algo.IsAllowed(ctx, "fresh", store, 1, time.Minute)

	removed := algo.CleanupExpiredTimestamps(time.Hour)
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if algo.TrackedKeys() != 1 {
		t.Errorf("TrackedKeys = %d, want 1", algo.TrackedKeys())
	}
}
