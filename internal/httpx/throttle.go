package httpx

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"newsfeed-engine/pkg/ratelimit"
)

// hostThrottle caps outbound request rate per destination host. It repurposes
// a framework-agnostic sliding-window limiter, built for per-client API
// throttling, keyed by host instead of client identity.
type hostThrottle struct {
	algo    *ratelimit.SlidingWindowAlgorithm
	store   *ratelimit.InMemoryRateLimitStore
	cfg     *ratelimit.RateLimitConfig
	metrics ratelimit.RateLimitMetrics
	logger  *slog.Logger
}

func newHostThrottle(cfg *ratelimit.RateLimitConfig, metrics ratelimit.RateLimitMetrics) *hostThrottle {
	if cfg == nil {
		cfg = ratelimit.DefaultConfig()
	}
	if metrics == nil {
		metrics = ratelimit.NewNoOpMetrics()
	}
	return &hostThrottle{
		algo:    ratelimit.NewSlidingWindowAlgorithm(nil),
		store:   ratelimit.NewInMemoryRateLimitStore(ratelimit.InMemoryStoreConfig{MaxKeys: cfg.MaxActiveKeys}),
		cfg:     cfg,
		metrics: metrics,
		logger:  slog.Default(),
	}
}

// wait blocks until the host has budget, or ctx is done, whichever is
// first. It never denies a request outright: cache-protected fetches must
// still eventually run, so this only shapes pacing, never drops calls.
func (t *hostThrottle) wait(ctx context.Context, rawURL string) {
	if t == nil || !t.cfg.Enabled {
		return
	}
	host := hostOf(rawURL)
	if host == "" {
		return
	}
	limit, window := t.cfg.GetHostLimit(host)
	if limit <= 0 {
		return
	}

	for {
		start := time.Now()
		decision, err := t.algo.IsAllowed(ctx, host, t.store, limit, window)
		t.metrics.RecordCheckDuration("host", time.Since(start))
		if err != nil {
			t.logger.Warn("httpx: throttle check failed, proceeding unthrottled",
				slog.String("host", host), slog.Any("error", err))
			return
		}
		if decision.IsAllowed() {
			t.metrics.RecordAllowed("host", host)
			if keys, err := t.store.KeyCount(ctx); err == nil {
				t.metrics.SetActiveKeys("host", keys)
			}
			return
		}
		t.metrics.RecordDenied("host", host)

		delay := time.Duration(decision.RetryAfterSeconds()) * time.Second
		if delay <= 0 {
			delay = 100 * time.Millisecond
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
