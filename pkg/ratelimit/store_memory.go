package ratelimit

import (
	"context"
	"sync"
	"time"
)

// InMemoryStoreConfig configures an InMemoryRateLimitStore.
type InMemoryStoreConfig struct {
	// MaxKeys caps how many keys the store holds; when full, the stalest
	// keys are evicted to make room. Default 10000.
	MaxKeys int

	// Clock provides time operations for testing. Default: system clock.
	Clock Clock
}

// DefaultInMemoryStoreConfig returns the production defaults.
func DefaultInMemoryStoreConfig() InMemoryStoreConfig {
	return InMemoryStoreConfig{MaxKeys: 10000, Clock: SystemClock{}}
}

// InMemoryRateLimitStore keeps per-key request timestamps in a mutex-guarded
// map. Eviction is by least-recent access, scanned rather than list-tracked:
// the store only evicts when a brand-new key arrives at capacity, which in
// this engine means a source table larger than MaxKeys — rare enough that a
// scan beats carrying linked-list bookkeeping on every request.
type InMemoryRateLimitStore struct {
	mu       sync.Mutex
	requests map[string]*keyWindow
	maxKeys  int
	clock    Clock

	evicted int64
}

// keyWindow holds one key's in-window timestamps.
type keyWindow struct {
	timestamps []time.Time
	lastAccess time.Time
}

// NewInMemoryRateLimitStore constructs a store from config, applying
// defaults for zero values.
func NewInMemoryRateLimitStore(config InMemoryStoreConfig) *InMemoryRateLimitStore {
	if config.MaxKeys <= 0 {
		config.MaxKeys = 10000
	}
	if config.Clock == nil {
		config.Clock = SystemClock{}
	}
	return &InMemoryRateLimitStore{
		requests: make(map[string]*keyWindow),
		maxKeys:  config.MaxKeys,
		clock:    config.Clock,
	}
}

// CheckAndAddRequest implements the atomic admit-and-record contract: the
// in-window count and the insert share one lock acquisition, so concurrent
// callers can never both slip under the limit.
func (s *InMemoryRateLimitStore) CheckAndAddRequest(_ context.Context, key string, timestamp, cutoff time.Time, limit int) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	window, exists := s.requests[key]
	count := 0
	if exists {
		// Compact in place while counting: expired timestamps never come
		// back, so dropping them here keeps slices from growing without
		// bound between Cleanup passes.
		kept := window.timestamps[:0]
		for _, ts := range window.timestamps {
			if ts.After(cutoff) {
				kept = append(kept, ts)
			}
		}
		window.timestamps = kept
		count = len(kept)
	}

	if count >= limit {
		return false, count, nil
	}

	if !exists {
		if len(s.requests) >= s.maxKeys {
			s.evictStalest()
		}
		window = &keyWindow{}
		s.requests[key] = window
	}
	window.timestamps = append(window.timestamps, timestamp)
	window.lastAccess = timestamp

	return true, count + 1, nil
}

// Cleanup drops timestamps at or before cutoff, deleting keys left empty.
func (s *InMemoryRateLimitStore) Cleanup(_ context.Context, cutoff time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, window := range s.requests {
		kept := window.timestamps[:0]
		for _, ts := range window.timestamps {
			if ts.After(cutoff) {
				kept = append(kept, ts)
			}
		}
		if len(kept) == 0 {
			delete(s.requests, key)
			continue
		}
		window.timestamps = kept
	}
	return nil
}

// KeyCount reports how many keys currently hold state.
func (s *InMemoryRateLimitStore) KeyCount(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests), nil
}

// Evicted reports the cumulative number of keys removed by capacity
// eviction, for metrics mirroring.
func (s *InMemoryRateLimitStore) Evicted() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evicted
}

// evictStalest removes a tenth of the keys (at least one), oldest access
// first, so eviction does not run again on every subsequent new key.
// Callers must hold s.mu.
func (s *InMemoryRateLimitStore) evictStalest() {
	target := s.maxKeys / 10
	if target < 1 {
		target = 1
	}

	for i := 0; i < target && len(s.requests) > 0; i++ {
		var stalest string
		var stalestAccess time.Time
		first := true
		for key, window := range s.requests {
			if first || window.lastAccess.Before(stalestAccess) {
				stalest = key
				stalestAccess = window.lastAccess
				first = false
			}
		}
		delete(s.requests, stalest)
		s.evicted++
	}
}

var _ RateLimitStore = (*InMemoryRateLimitStore)(nil)
