package orchestrator_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsfeed-engine/internal/cache"
	"newsfeed-engine/internal/domain/entity"
	"newsfeed-engine/internal/orchestrator"
	"newsfeed-engine/internal/registry"
	"newsfeed-engine/internal/repository"
	"newsfeed-engine/internal/scheduler"
	"newsfeed-engine/internal/sourcecore"
	"newsfeed-engine/tests/fixtures"
)

type countingStrategy struct {
	mu    sync.Mutex
	calls int
	items []entity.NewsItem
}

func (s *countingStrategy) Fetch(context.Context) ([]entity.NewsItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.items, nil
}

func (s *countingStrategy) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type nullRepo struct{}

func (nullRepo) GetByOriginalID(context.Context, string, string) (*repository.Record, error) {
	return nil, nil
}
func (nullRepo) Create(_ context.Context, c repository.NewsCreate) (*repository.Record, error) {
	return &repository.Record{ID: "rec", SourceID: c.SourceID, OriginalID: c.OriginalID}, nil
}
func (nullRepo) Update(context.Context, string, repository.NewsUpdate) error    { return nil }
func (nullRepo) UpdateSourceTimestamp(context.Context, string, time.Time) error { return nil }

func registerSource(t *testing.T, reg *registry.Registry, sourceID string, interval time.Duration, strat sourcecore.Strategy) {
	t.Helper()
	d := &entity.SourceDescriptor{
		SourceID:       sourceID,
		Kind:           entity.SourceKindRSS,
		URL:            "https://example.com/" + sourceID,
		UpdateInterval: interval,
		CacheTTL:       time.Minute,
	}
	require.NoError(t, d.Validate())
	reg.Register(sourcecore.New(d, strat, cache.New(nil)))
}

func TestFetchTier_DispatchesOnlyMatchingTier(t *testing.T) {
	fast := &countingStrategy{items: fixtures.NewsItems("fast", 2)}
	slow := &countingStrategy{items: fixtures.NewsItems("slow", 2)}

	reg := registry.New()
	registerSource(t, reg, "fast", 10*time.Minute, fast) // high tier: <= 15m
	registerSource(t, reg, "slow", time.Hour, slow)      // low tier: > 45m

	sched := scheduler.New(reg, nullRepo{})
	orch := orchestrator.New(reg, sched)

	require.NoError(t, orch.FetchTier(context.Background(), orchestrator.TierHigh))
	assert.Equal(t, 1, fast.callCount())
	assert.Equal(t, 0, slow.callCount())

	require.NoError(t, orch.FetchTier(context.Background(), orchestrator.TierLow))
	assert.Equal(t, 1, fast.callCount())
	assert.Equal(t, 1, slow.callCount())
}

func TestFetchTier_MediumBand(t *testing.T) {
	medium := &countingStrategy{items: fixtures.NewsItems("mid", 1)}

	reg := registry.New()
	registerSource(t, reg, "mid", 30*time.Minute, medium)

	sched := scheduler.New(reg, nullRepo{})
	orch := orchestrator.New(reg, sched)

	require.NoError(t, orch.FetchTier(context.Background(), orchestrator.TierHigh))
	assert.Equal(t, 0, medium.callCount())

	require.NoError(t, orch.FetchTier(context.Background(), orchestrator.TierMedium))
	assert.Equal(t, 1, medium.callCount())
}

func TestFetchTier_ReentryIsSuppressedByIntervalGate(t *testing.T) {
	strat := &countingStrategy{items: fixtures.NewsItems("fast", 1)}
	reg := registry.New()
	registerSource(t, reg, "fast", 10*time.Minute, strat)

	sched := scheduler.New(reg, nullRepo{})
	orch := orchestrator.New(reg, sched)

	require.NoError(t, orch.FetchTier(context.Background(), orchestrator.TierHigh))
	// Immediately re-running the tier finds the source inside its interval.
	require.NoError(t, orch.FetchTier(context.Background(), orchestrator.TierHigh))

	assert.Equal(t, 1, strat.callCount())
}

func TestFetchAll_CoversEveryTier(t *testing.T) {
	fast := &countingStrategy{items: fixtures.NewsItems("fast", 1)}
	slow := &countingStrategy{items: fixtures.NewsItems("slow", 1)}

	reg := registry.New()
	registerSource(t, reg, "fast", 10*time.Minute, fast)
	registerSource(t, reg, "slow", time.Hour, slow)

	sched := scheduler.New(reg, nullRepo{})
	orch := orchestrator.New(reg, sched)

	require.NoError(t, orch.FetchAll(context.Background()))
	assert.Equal(t, 1, fast.callCount())
	assert.Equal(t, 1, slow.callCount())
}

func TestFetchOne_Forces(t *testing.T) {
	strat := &countingStrategy{items: fixtures.NewsItems("fast", 1)}
	reg := registry.New()
	registerSource(t, reg, "fast", 10*time.Minute, strat)

	sched := scheduler.New(reg, nullRepo{})
	orch := orchestrator.New(reg, sched)

	result, err := orch.FetchOne(context.Background(), "fast")
	require.NoError(t, err)
	assert.Equal(t, 1, result.ItemCount)

	// Forced entry ignores the interval gate.
	result, err = orch.FetchOne(context.Background(), "fast")
	require.NoError(t, err)
	assert.Equal(t, 2, strat.callCount())
	assert.Equal(t, 1, result.ItemCount)
}

func TestRunObserver_SeesTierOutcomes(t *testing.T) {
	strat := &countingStrategy{items: fixtures.NewsItems("fast", 1)}
	reg := registry.New()
	registerSource(t, reg, "fast", 10*time.Minute, strat)

	var observed []orchestrator.Tier
	var observedCounts []int
	sched := scheduler.New(reg, nullRepo{})
	orch := orchestrator.New(reg, sched,
		orchestrator.WithRunObserver(func(tier orchestrator.Tier, sources int, _ time.Duration, err error) {
			observed = append(observed, tier)
			observedCounts = append(observedCounts, sources)
			assert.NoError(t, err)
		}),
	)

	require.NoError(t, orch.FetchTier(context.Background(), orchestrator.TierHigh))
	assert.Equal(t, []orchestrator.Tier{orchestrator.TierHigh}, observed)
	assert.Equal(t, []int{1}, observedCounts)
}

type fakeFlusher struct{ flushed bool }

func (f *fakeFlusher) FlushToRemote(context.Context) error {
	f.flushed = true
	return nil
}

func TestStop_RunsShutdownHooks(t *testing.T) {
	reg := registry.New()
	registerSource(t, reg, "fast", 10*time.Minute, &countingStrategy{})

	flusher := &fakeFlusher{}
	sched := scheduler.New(reg, nullRepo{})
	orch := orchestrator.New(reg, sched,
		orchestrator.WithCacheFlusher(flusher),
		orchestrator.WithSessionCleaner(reg),
	)

	require.NoError(t, orch.Start(context.Background(), orchestrator.DefaultSchedules))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	orch.Stop(ctx)

	assert.True(t, flusher.flushed, "cache flush hook must run on shutdown")
}
