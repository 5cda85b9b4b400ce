// Package cache implements the two-tier TTL cache: an in-process map
// guarded by a sync.RWMutex, and an optional remote KV store reached through
// a narrow interface so the in-process tier never depends on a concrete
// client, degrading to memory-only on any remote error.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// RemoteStore is the narrow interface the remote tier must satisfy. A real
// implementation wraps a Redis-compatible client; tests and memory-only
// deployments may leave it nil.
type RemoteStore interface {
	Get(ctx context.Context, key string) ([]byte, time.Duration, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context, pattern string) error
}

type entry struct {
	payload   []byte
	expiresAt time.Time
}

// Cache is the two-tier TTL cache. The zero value is not usable;
// construct with New.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	remote  RemoteStore
	logger  *slog.Logger
}

// New constructs a Cache. remote may be nil to disable the remote tier.
func New(remote RemoteStore) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		remote:  remote,
		logger:  slog.Default(),
	}
}

// Get consults the in-process tier first; on miss it consults the remote
// tier and, on a remote hit, repopulates the in-process tier with the
// remote's remaining TTL.
func (c *Cache) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if ok {
		if time.Now().Before(e.expiresAt) {
			return e.payload, true
		}
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
	}

	if c.remote == nil {
		return nil, false
	}

	payload, ttl, err := c.remote.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache: remote get failed, degrading to memory-only",
			slog.String("key", key), slog.Any("error", err))
		return nil, false
	}
	if payload == nil {
		return nil, false
	}

	c.mu.Lock()
	c.entries[key] = entry{payload: payload, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()

	return payload, true
}

// Set writes both tiers. A remote failure is logged and tolerated; the
// in-process write always succeeds.
func (c *Cache) Set(ctx context.Context, key string, payload json.RawMessage, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = entry{payload: payload, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()

	if c.remote == nil {
		return
	}
	if err := c.remote.Set(ctx, key, payload, ttl); err != nil {
		c.logger.Warn("cache: remote set failed, continuing memory-only",
			slog.String("key", key), slog.Any("error", err))
	}
}

// Delete evicts key from both tiers.
func (c *Cache) Delete(ctx context.Context, key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	if c.remote == nil {
		return
	}
	if err := c.remote.Delete(ctx, key); err != nil {
		c.logger.Warn("cache: remote delete failed", slog.String("key", key), slog.Any("error", err))
	}
}

// Clear evicts every in-process key matching pattern (a simple prefix match)
// and forwards the pattern to the remote tier if configured.
func (c *Cache) Clear(ctx context.Context, pattern string) {
	c.mu.Lock()
	for key := range c.entries {
		if matchesPattern(key, pattern) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()

	if c.remote == nil {
		return
	}
	if err := c.remote.Clear(ctx, pattern); err != nil {
		c.logger.Warn("cache: remote clear failed", slog.String("pattern", pattern), slog.Any("error", err))
	}
}

// Exists reports whether key is present and unexpired in the in-process
// tier. It does not consult the remote tier (a read-through Get does that).
func (c *Cache) Exists(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return ok && time.Now().Before(e.expiresAt)
}

// TTL returns the remaining time-to-live for key, or false if absent/expired.
func (c *Cache) TTL(key string) (time.Duration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return 0, false
	}
	remaining := time.Until(e.expiresAt)
	if remaining <= 0 {
		return 0, false
	}
	return remaining, true
}

// Stats reports in-process entry count and per-key remaining TTL.
type Stats struct {
	EntryCount int
	KeyTTLs    map[string]time.Duration
}

// Stats returns a point-in-time snapshot of the in-process tier.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ttls := make(map[string]time.Duration, len(c.entries))
	now := time.Now()
	for key, e := range c.entries {
		if now.Before(e.expiresAt) {
			ttls[key] = e.expiresAt.Sub(now)
		}
	}
	return Stats{EntryCount: len(c.entries), KeyTTLs: ttls}
}

// FlushToRemote pushes every unexpired in-process entry to the remote tier,
// for use as an orchestrator shutdown hook so a restart
// does not lose whatever the memory tier alone was holding. A no-op if no
// remote tier is configured.
func (c *Cache) FlushToRemote(ctx context.Context) error {
	if c.remote == nil {
		return nil
	}

	c.mu.RLock()
	snapshot := make(map[string]entry, len(c.entries))
	for k, e := range c.entries {
		snapshot[k] = e
	}
	c.mu.RUnlock()

	now := time.Now()
	var firstErr error
	for key, e := range snapshot {
		if !now.Before(e.expiresAt) {
			continue
		}
		if err := c.remote.Set(ctx, key, e.payload, e.expiresAt.Sub(now)); err != nil {
			c.logger.Warn("cache: flush to remote failed", slog.String("key", key), slog.Any("error", err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func matchesPattern(key, pattern string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}
	if n := len(pattern); n > 0 && pattern[n-1] == '*' {
		prefix := pattern[:n-1]
		return len(key) >= len(prefix) && key[:len(prefix)] == prefix
	}
	return key == pattern
}
