// Package scheduler implements the adaptive per-source scheduling loop:
// ShouldFetch eligibility, single-flight Fetch, bounded
// concurrent Tick, and a Run loop driven by a fixed check interval, with
// per-source adaptive timing instead of one global cron expression for
// every source.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"newsfeed-engine/internal/domain/entity"
	"newsfeed-engine/internal/observability/logging"
	obsmetrics "newsfeed-engine/internal/observability/metrics"
	"newsfeed-engine/internal/observability/tracing"
	"newsfeed-engine/internal/registry"
	"newsfeed-engine/internal/repository"
)

// ErrAlreadyFetching is returned by Fetch when the source is already
// in-flight and force was not requested.
var ErrAlreadyFetching = errors.New("scheduler: source already fetching")

// ErrUnknownSource is returned for a source_id the registry does not know.
var ErrUnknownSource = errors.New("scheduler: unknown source")

const (
	defaultCheckInterval = 10 * time.Second
	defaultConcurrency   = 16
	defaultGraceTimeout  = 10 * time.Second
)

// FetchResult summarizes one Fetch call's outcome.
type FetchResult struct {
	SourceID     string
	ItemCount    int
	NewCount     int
	UpdatedCount int
	Success      bool
	Duration     time.Duration
	Err          error
}

// Scheduler is the adaptive per-source scheduling loop.
type Scheduler struct {
	reg  *registry.Registry
	repo repository.NewsRepository

	states map[string]*SourceRuntimeState

	checkInterval time.Duration
	concurrency   int
	graceTimeout  time.Duration

	logger  *slog.Logger
	metrics *Metrics

	wg sync.WaitGroup
}

// Option configures a Scheduler at construction time.
type Option func(*Scheduler)

// WithCheckInterval overrides the default 10s Run loop tick period.
func WithCheckInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.checkInterval = d }
}

// WithConcurrency overrides the default Tick dispatch concurrency (16).
func WithConcurrency(n int) Option {
	return func(s *Scheduler) { s.concurrency = n }
}

// WithMetrics attaches a Metrics recorder.
func WithMetrics(m *Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// New constructs a Scheduler over every source currently in reg.
func New(reg *registry.Registry, repo repository.NewsRepository, opts ...Option) *Scheduler {
	states := make(map[string]*SourceRuntimeState, reg.Len())
	for _, w := range reg.All() {
		states[w.SourceID()] = newRuntimeState(w.Descriptor())
	}

	s := &Scheduler{
		reg:           reg,
		repo:          repo,
		states:        states,
		checkInterval: defaultCheckInterval,
		concurrency:   defaultConcurrency,
		graceTimeout:  defaultGraceTimeout,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ShouldFetch reports whether sourceID is known, not currently fetching, and
// its effective interval has elapsed since the last fetch.
func (s *Scheduler) ShouldFetch(sourceID string) bool {
	state, ok := s.states[sourceID]
	if !ok {
		return false
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.currentlyFetching {
		return false
	}
	if state.lastFetch.IsZero() {
		return true
	}
	return time.Since(state.lastFetch) >= state.effectiveInterval()
}

// Fetch is the single-flight entry point for one source. It
// never blocks on another in-flight Fetch for the same source; it returns
// ErrAlreadyFetching instead of waiting.
func (s *Scheduler) Fetch(ctx context.Context, sourceID string, force bool) (FetchResult, error) {
	ctx, span := tracing.GetTracer().Start(ctx, "scheduler.Fetch")
	defer span.End()
	ctx = logging.WithSourceIDValue(ctx, sourceID)

	wrapper, ok := s.reg.Get(sourceID)
	if !ok {
		return FetchResult{}, fmt.Errorf("%w: %s", ErrUnknownSource, sourceID)
	}
	state := s.states[sourceID]

	state.mu.Lock()
	if state.currentlyFetching {
		state.mu.Unlock()
		return FetchResult{}, ErrAlreadyFetching
	}
	elapsed := state.lastFetch.IsZero() || time.Since(state.lastFetch) >= state.effectiveInterval()
	if !force && !elapsed {
		state.mu.Unlock()
		return FetchResult{SourceID: sourceID}, nil
	}
	state.currentlyFetching = true
	state.mu.Unlock()

	defer func() {
		state.mu.Lock()
		state.currentlyFetching = false
		state.mu.Unlock()
	}()

	start := time.Now()
	items := wrapper.GetNews(ctx, force)
	duration := time.Since(start)
	success := len(items) > 0

	obsmetrics.FeedCrawlDuration.WithLabelValues(sourceID).Observe(duration.Seconds())
	if !success {
		obsmetrics.FeedCrawlErrors.WithLabelValues(sourceID, "empty_or_failed").Inc()
	}

	now := time.Now()
	// The sources row must exist before any news_items rows reference it.
	if err := s.repo.UpdateSourceTimestamp(ctx, sourceID, now); err != nil {
		s.logger.Warn("scheduler: failed to update source timestamp",
			slog.String("source_id", sourceID), slog.Any("error", err))
	}

	newCount, updatedCount := s.persist(ctx, sourceID, items)
	obsmetrics.ArticlesFetchedTotal.WithLabelValues(wrapper.Descriptor().Name, sourceID).Add(float64(newCount))

	state.mu.Lock()
	state.recordHistory(now, len(items), success)
	state.updateFrequencyScore(now, items, success)
	if state.descriptor.EnableAdaptive {
		if success {
			state.recomputeAdaptiveInterval(now)
		} else {
			state.backoff()
		}
	}
	state.lastFetch = now
	state.mu.Unlock()

	result := FetchResult{
		SourceID: sourceID, ItemCount: len(items), NewCount: newCount,
		UpdatedCount: updatedCount, Success: success, Duration: duration,
	}

	if s.metrics != nil {
		s.metrics.ObserveFetch(sourceID, result)
	}
	logging.WithSourceID(ctx, s.logger).Info("scheduler: fetch complete",
		slog.Int("items", len(items)), slog.Int("new", newCount), slog.Int("updated", updatedCount),
		slog.Bool("success", success), slog.Duration("duration", duration))

	return result, nil
}

// persist upserts each item by (source_id, original_id), isolating and
// logging per-item failures so one bad record never aborts the batch.
func (s *Scheduler) persist(ctx context.Context, sourceID string, items []entity.NewsItem) (newCount, updatedCount int) {
	for _, item := range items {
		existing, err := s.repo.GetByOriginalID(ctx, sourceID, item.ID)
		if err != nil {
			s.logger.Warn("scheduler: lookup failed, skipping item",
				slog.String("source_id", sourceID), slog.String("original_id", item.ID), slog.Any("error", err))
			continue
		}

		if existing == nil {
			if _, err := s.repo.Create(ctx, repository.NewsCreate{SourceID: sourceID, OriginalID: item.ID, Item: item}); err != nil {
				s.logger.Warn("scheduler: create failed, skipping item",
					slog.String("source_id", sourceID), slog.String("original_id", item.ID), slog.Any("error", err))
				continue
			}
			newCount++
			continue
		}

		if err := s.repo.Update(ctx, existing.ID, repository.NewsUpdate{Item: item}); err != nil {
			s.logger.Warn("scheduler: update failed, skipping item",
				slog.String("source_id", sourceID), slog.String("original_id", item.ID), slog.Any("error", err))
			continue
		}
		updatedCount++
	}
	return newCount, updatedCount
}

// Tick dispatches one bounded-concurrency fan-out over every eligible
// source. Dispatched fetches are detached: Tick returns once all have been
// launched, not once they complete.
func (s *Scheduler) Tick(ctx context.Context) {
	sem := make(chan struct{}, s.concurrency)

	for _, w := range s.reg.All() {
		sourceID := w.SourceID()
		if !s.ShouldFetch(sourceID) {
			continue
		}

		sem <- struct{}{}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() { <-sem }()

			if _, err := s.Fetch(ctx, sourceID, false); err != nil && !errors.Is(err, ErrAlreadyFetching) {
				s.logger.Warn("scheduler: fetch dispatch failed",
					slog.String("source_id", sourceID), slog.Any("error", err))
			}
		}()
	}
}

// Run invokes Tick every checkInterval until ctx is cancelled, then waits up
// to graceTimeout for in-flight fetches before returning.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.awaitShutdown()
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

func (s *Scheduler) awaitShutdown() {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.graceTimeout):
		s.logger.Warn("scheduler: grace period elapsed with fetches still in flight")
	}
}

// Snapshot returns a point-in-time copy of one source's runtime state.
func (s *Scheduler) Snapshot(sourceID string) (StateSnapshot, bool) {
	state, ok := s.states[sourceID]
	if !ok {
		return StateSnapshot{}, false
	}
	return state.Snapshot(), true
}

// Snapshots returns a point-in-time copy of every source's runtime state.
func (s *Scheduler) Snapshots() []StateSnapshot {
	out := make([]StateSnapshot, 0, len(s.states))
	for _, state := range s.states {
		out = append(out, state.Snapshot())
	}
	return out
}
