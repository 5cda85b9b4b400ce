// Package sourcecore implements the cache-enhanced source fetch contract:
// Wrapper owns a Strategy and exposes GetNews, applying the
// empty/error/shrink cache-protection policies before any cache mutation is
// visible to callers. It is a composable wrapper that owns a strategy
// object statically, instead of rebinding a method at runtime.
package sourcecore

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"newsfeed-engine/internal/cache"
	"newsfeed-engine/internal/domain/entity"
	"newsfeed-engine/internal/fetchcore"
)

// Strategy is the kind-specific fetch primitive. A
// concrete strategy type need only implement this method to be usable by a
// Wrapper; no import of this package is required to satisfy it.
type Strategy interface {
	Fetch(ctx context.Context) ([]entity.NewsItem, error)
}

const defaultFetchTimeout = 60 * time.Second

// Wrapper is the per-source fetch wrapper. It owns the
// CacheEntry and the two telemetry structs for its source; the scheduler
// owns SourceRuntimeState separately and calls GetNews through this type.
type Wrapper struct {
	descriptor *entity.SourceDescriptor
	strategy   Strategy
	cacheLayer *cache.Cache
	cacheKey   string
	logger     *slog.Logger

	fetchTimeout time.Duration

	// mu guards the fields below; it is held only for the duration of
	// snapshot reads/writes, never across a Strategy.Fetch call.
	mu              sync.Mutex
	cachedItems     []entity.NewsItem
	lastUpdate      time.Time
	protectionStats CacheProtectionStats
	cacheMetrics    CacheMetrics

	// fetchMu enforces single-flight: at most one Strategy.Fetch call is in
	// flight for this source at any wall-clock instant.
	fetchMu sync.Mutex
}

// New constructs a Wrapper for one source.
func New(descriptor *entity.SourceDescriptor, strategy Strategy, cacheLayer *cache.Cache) *Wrapper {
	return &Wrapper{
		descriptor:   descriptor,
		strategy:     strategy,
		cacheLayer:   cacheLayer,
		cacheKey:     "source:" + descriptor.SourceID,
		logger:       slog.Default(),
		fetchTimeout: defaultFetchTimeout,
	}
}

// Hydrate attempts to seed the in-memory cache from the two-tier cache layer
// (e.g. after a process restart, when the remote tier still holds a warm
// entry). It is a best-effort operation; a miss or decode failure leaves the
// wrapper in its cold-start state.
func (w *Wrapper) Hydrate(ctx context.Context) {
	payload, ok := w.cacheLayer.Get(ctx, w.cacheKey)
	if !ok {
		return
	}
	items, err := cache.DecodeItems(payload)
	if err != nil {
		w.logger.Warn("sourcecore: failed to decode hydrated cache payload",
			slog.String("source_id", w.descriptor.SourceID), slog.Any("error", err))
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.cachedItems = items
	w.lastUpdate = time.Now()
	w.cacheMetrics.observeSize(len(items))
}

// GetNews is the cache-protected entry point around Fetch. It never returns
// an error: failures degrade to the stale-but-valid cache or an empty list,
// propagation policy.
func (w *Wrapper) GetNews(ctx context.Context, force bool) []entity.NewsItem {
	if !force {
		if items, ok := w.tryServeFromCache(); ok {
			return items
		}
	}

	w.fetchMu.Lock()
	defer w.fetchMu.Unlock()

	// Another goroutine may have refreshed the cache while we waited for
	// fetchMu; honor it instead of re-fetching if this call isn't forced.
	if !force {
		if items, ok := w.tryServeFromCache(); ok {
			return items
		}
	}

	w.mu.Lock()
	w.cacheMetrics.CacheMiss++
	w.mu.Unlock()

	start := time.Now()
	fetchCtx, cancel := context.WithTimeout(ctx, w.fetchTimeout)
	newItems, err := w.strategy.Fetch(fetchCtx)
	cancel()
	duration := time.Since(start)

	if err == nil {
		newItems = fetchcore.DedupByTitle(newItems)
	}

	return w.applyProtection(newItems, err, duration)
}

func (w *Wrapper) tryServeFromCache() ([]entity.NewsItem, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.isValidLocked() {
		return nil, false
	}
	w.cacheMetrics.CacheHit++
	return copyItems(w.cachedItems), true
}

func (w *Wrapper) isValidLocked() bool {
	if len(w.cachedItems) == 0 {
		return false
	}
	multiplier := w.descriptor.ValidityMultiplier
	if multiplier <= 0 {
		multiplier = 1.0
	}
	age := time.Since(w.lastUpdate)
	validFor := time.Duration(float64(w.descriptor.CacheTTL) * multiplier)
	valid := age < validFor
	if valid && multiplier != 1.0 && age >= w.descriptor.CacheTTL {
		w.logger.Info("sourcecore: served hit under extended validity multiplier",
			slog.String("source_id", w.descriptor.SourceID),
			slog.Float64("multiplier", multiplier), slog.Duration("age", age))
	}
	return valid
}

// applyProtection implements the ordered cache-protection decision chain:
// error protection, then empty protection, then shrink
// protection, then a real cache update.
func (w *Wrapper) applyProtection(newItems []entity.NewsItem, fetchErr error, duration time.Duration) []entity.NewsItem {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.cacheMetrics.LastFetchDuration = duration
	cachedSize := len(w.cachedItems)

	if fetchErr != nil {
		if cachedSize > 0 {
			w.protectionStats.record(ProtectionError, cachedSize, 0, fetchErr.Error())
			return copyItems(w.cachedItems)
		}
		w.cacheMetrics.FetchError++
		return nil
	}

	if len(newItems) == 0 {
		w.cacheMetrics.EmptyResult++
		if cachedSize > 0 {
			w.protectionStats.record(ProtectionEmpty, cachedSize, 0, "")
			return copyItems(w.cachedItems)
		}
		w.updateCacheLocked(newItems)
		return nil
	}

	if cachedSize > 5 && float64(len(newItems)) < 0.3*float64(cachedSize) {
		w.protectionStats.record(ProtectionShrink, cachedSize, len(newItems), "")
		return copyItems(w.cachedItems)
	}

	w.updateCacheLocked(newItems)
	return copyItems(w.cachedItems)
}

// updateCacheLocked implements the update_cache contract. Callers must hold
// w.mu. It is a no-op if items is empty while a non-empty cache already
// exists — callers above never hit that case themselves, but the guard
// protects any future direct caller.
func (w *Wrapper) updateCacheLocked(items []entity.NewsItem) {
	if len(items) == 0 && len(w.cachedItems) > 0 {
		return
	}

	w.cachedItems = items
	w.lastUpdate = time.Now()
	w.cacheMetrics.CacheUpdate++
	w.cacheMetrics.observeSize(len(items))

	payload, err := cache.EncodeItems(items)
	if err != nil {
		w.logger.Warn("sourcecore: failed to encode cache payload",
			slog.String("source_id", w.descriptor.SourceID), slog.Any("error", err))
		return
	}
	w.cacheLayer.Set(context.Background(), w.cacheKey, payload, w.descriptor.CacheTTL)
}

// ClearCache wipes the in-memory and two-tier cache entry and resets the
// protection counters, but leaves the cumulative CacheMetrics untouched.
func (w *Wrapper) ClearCache() {
	w.mu.Lock()
	w.cachedItems = nil
	w.lastUpdate = time.Time{}
	w.protectionStats = CacheProtectionStats{}
	w.cacheMetrics.observeSize(0)
	w.mu.Unlock()

	w.cacheLayer.Delete(context.Background(), w.cacheKey)
}

// SourceID returns the wrapped source's identity.
func (w *Wrapper) SourceID() string { return w.descriptor.SourceID }

// Descriptor returns the wrapped source's immutable configuration.
func (w *Wrapper) Descriptor() *entity.SourceDescriptor { return w.descriptor }

// Telemetry returns a point-in-time copy of the cache metrics and
// protection stats for read-only observers.
func (w *Wrapper) Telemetry() (CacheMetrics, CacheProtectionStats) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cacheMetrics, w.protectionStats.Snapshot()
}

// CacheAge returns how long ago the cache was last updated, and whether it
// has ever been populated.
func (w *Wrapper) CacheAge() (time.Duration, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lastUpdate.IsZero() {
		return 0, false
	}
	return time.Since(w.lastUpdate), true
}

// orphanReporter is implemented by strategies that own long-lived session
// resources (currently BrowserStrategy) and can report ones they failed to
// close.
type orphanReporter interface {
	OrphanedSessions() int64
}

// OrphanedSessions reports the wrapped strategy's orphaned session count, or
// 0 for strategies that don't hold such resources.
func (w *Wrapper) OrphanedSessions() int64 {
	if r, ok := w.strategy.(orphanReporter); ok {
		return r.OrphanedSessions()
	}
	return 0
}

func copyItems(items []entity.NewsItem) []entity.NewsItem {
	out := make([]entity.NewsItem, len(items))
	copy(out, items)
	return out
}
