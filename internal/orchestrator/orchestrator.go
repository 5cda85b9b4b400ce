// Package orchestrator groups sources into frequency tiers and drives the
// scheduler on an external cron tick (robfig/cron/v3, explicit timezone with
// UTC fallback), with three tier schedules plus on-demand FetchAll/FetchOne
// entry points.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"newsfeed-engine/internal/registry"
	"newsfeed-engine/internal/scheduler"
)

// Tier is a frequency band sources are grouped into by UpdateInterval.
type Tier string

const (
	TierHigh   Tier = "high"   // <= 15 minutes
	TierMedium Tier = "medium" // 15-45 minutes
	TierLow    Tier = "low"    // > 45 minutes
)

const (
	highTierCeiling   = 15 * time.Minute
	mediumTierCeiling = 45 * time.Minute
)

func tierOf(interval time.Duration) Tier {
	switch {
	case interval <= highTierCeiling:
		return TierHigh
	case interval <= mediumTierCeiling:
		return TierMedium
	default:
		return TierLow
	}
}

// TierSchedule pairs a tier with the cron expression its external tick runs
// on.
type TierSchedule struct {
	Tier Tier
	Cron string
}

// DefaultSchedules mirrors the tier definitions with reasonable external
// tick cadences: each tier is ticked comfortably more often than its
// shortest member interval, since ShouldFetch still gates the real work.
var DefaultSchedules = []TierSchedule{
	{Tier: TierHigh, Cron: "*/2 * * * *"},
	{Tier: TierMedium, Cron: "*/10 * * * *"},
	{Tier: TierLow, Cron: "0 * * * *"},
}

// SessionCleaner reports how many browser sessions a strategy failed to
// close during normal operation. It does not release those sessions.
type SessionCleaner interface {
	OrphanedSessions() int64
}

// CacheFlusher flushes in-process cache writes to the remote tier on
// shutdown.
type CacheFlusher interface {
	FlushToRemote(ctx context.Context) error
}

// RunObserver is notified after each tier run completes, letting a caller
// mirror run outcomes into process-level metrics without this package
// depending on any particular metrics backend.
type RunObserver func(tier Tier, sourcesFetched int, duration time.Duration, err error)

// Orchestrator drives the scheduler on a per-tier external cron tick.
type Orchestrator struct {
	reg         *registry.Registry
	sched       *scheduler.Scheduler
	cron        *cron.Cron
	logger      *slog.Logger
	cleaners    []SessionCleaner
	flushers    []CacheFlusher
	concurrency int
	observer    RunObserver
}

// Option configures an Orchestrator at construction time.
type Option func(*Orchestrator)

// WithTimezone sets the cron scheduler's timezone, falling back to UTC if
// the named location cannot be loaded.
func WithTimezone(name string) Option {
	return func(o *Orchestrator) {
		loc, err := time.LoadLocation(name)
		if err != nil {
			loc = time.UTC
		}
		o.cron = cron.New(cron.WithLocation(loc))
	}
}

// WithSessionCleaner registers a browser-session cleanup hook.
func WithSessionCleaner(c SessionCleaner) Option {
	return func(o *Orchestrator) { o.cleaners = append(o.cleaners, c) }
}

// WithCacheFlusher registers a cache-flush shutdown hook.
func WithCacheFlusher(f CacheFlusher) Option {
	return func(o *Orchestrator) { o.flushers = append(o.flushers, f) }
}

// WithRunObserver registers a callback invoked after every tier run.
func WithRunObserver(obs RunObserver) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// New constructs an Orchestrator bound to reg and sched.
func New(reg *registry.Registry, sched *scheduler.Scheduler, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		reg:         reg,
		sched:       sched,
		cron:        cron.New(cron.WithLocation(time.UTC)),
		logger:      slog.Default(),
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

const defaultConcurrency = 16

// sourceIDsInTier lists every source whose descriptor falls in tier.
func (o *Orchestrator) sourceIDsInTier(tier Tier) []string {
	var ids []string
	for _, w := range o.reg.All() {
		if tierOf(w.Descriptor().UpdateInterval) == tier {
			ids = append(ids, w.SourceID())
		}
	}
	return ids
}

// FetchTier fans out Fetch across every source in tier, bounded by a
// concurrency-limited errgroup.
func (o *Orchestrator) FetchTier(ctx context.Context, tier Tier) error {
	start := time.Now()
	ids := o.sourceIDsInTier(tier)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	var failures int64
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if _, err := o.sched.Fetch(gctx, id, false); err != nil {
				atomic.AddInt64(&failures, 1)
				o.logger.Warn("orchestrator: tier fetch failed",
					slog.String("tier", string(tier)), slog.String("source_id", id), slog.Any("error", err))
			}
			return nil
		})
	}
	err := g.Wait()

	if o.observer != nil {
		runErr := err
		if runErr == nil && failures > 0 && failures == int64(len(ids)) {
			runErr = fmt.Errorf("orchestrator: all %d sources in tier %s failed", len(ids), tier)
		}
		o.observer(tier, len(ids), time.Since(start), runErr)
	}
	return err
}

// FetchAll fans out Fetch across every registered source.
func (o *Orchestrator) FetchAll(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	for _, w := range o.reg.All() {
		id := w.SourceID()
		g.Go(func() error {
			if _, err := o.sched.Fetch(gctx, id, false); err != nil {
				o.logger.Warn("orchestrator: fetch failed", slog.String("source_id", id), slog.Any("error", err))
			}
			return nil
		})
	}
	return g.Wait()
}

// FetchOne runs Fetch for a single source, forced.
func (o *Orchestrator) FetchOne(ctx context.Context, sourceID string) (scheduler.FetchResult, error) {
	return o.sched.Fetch(ctx, sourceID, true)
}

// Start registers the tier schedules and begins the cron scheduler. Call
// Stop to reverse this.
func (o *Orchestrator) Start(ctx context.Context, schedules []TierSchedule) error {
	for _, ts := range schedules {
		tier := ts.Tier
		if _, err := o.cron.AddFunc(ts.Cron, func() {
			if err := o.FetchTier(ctx, tier); err != nil {
				o.logger.Warn("orchestrator: tier run failed", slog.String("tier", string(tier)), slog.Any("error", err))
			}
		}); err != nil {
			return err
		}
	}
	o.cron.Start()
	return nil
}

// Stop halts the cron scheduler and runs shutdown hooks: a warning for any
// orphaned browser sessions (they are logged, not terminated), then cache
// flush to the remote tier.
func (o *Orchestrator) Stop(ctx context.Context) {
	stopCtx := o.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}

	for _, c := range o.cleaners {
		if n := c.OrphanedSessions(); n > 0 {
			o.logger.Warn("orchestrator: orphaned browser sessions at shutdown", slog.Int64("count", n))
		}
	}
	for _, f := range o.flushers {
		if err := f.FlushToRemote(ctx); err != nil {
			o.logger.Warn("orchestrator: cache flush failed", slog.Any("error", err))
		}
	}
}
