package proxy_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsfeed-engine/internal/proxy"
)

func TestManager_GetReturnsActiveProxy(t *testing.T) {
	mgr := proxy.NewManager(nil)
	mgr.Add(proxy.Config{ID: "p1", URL: "http://proxy-1:8080", Group: "default"})

	snap, ok := mgr.Get(context.Background(), "default")
	require.True(t, ok)
	assert.Equal(t, "p1", snap.ID)
	assert.Equal(t, "http://proxy-1:8080", snap.URL)
}

func TestManager_GetEmptyGroupReturnsNothing(t *testing.T) {
	mgr := proxy.NewManager(nil)
	_, ok := mgr.Get(context.Background(), "default")
	assert.False(t, ok)
}

func TestManager_GetFallsBackToDefaultGroup(t *testing.T) {
	mgr := proxy.NewManager(nil)
	mgr.Add(proxy.Config{ID: "p1", URL: "http://proxy-1:8080", Group: "default"})

	snap, ok := mgr.Get(context.Background(), "asia")
	require.True(t, ok)
	assert.Equal(t, "p1", snap.ID)
}

func TestManager_GetEmptyGroupNameMeansDefault(t *testing.T) {
	mgr := proxy.NewManager(nil)
	mgr.Add(proxy.Config{ID: "p1", URL: "http://proxy-1:8080"})

	_, ok := mgr.Get(context.Background(), "")
	assert.True(t, ok)
}

func TestManager_HealthFlipAfterSustainedFailures(t *testing.T) {
	mgr := proxy.NewManager(nil)
	mgr.Add(proxy.Config{ID: "p1", URL: "http://proxy-1:8080", Group: "default"})

	// Nine failures: below the 10-request observation floor, still selectable.
	for i := 0; i < 9; i++ {
		mgr.Report("p1", false, 0)
	}
	_, ok := mgr.Get(context.Background(), "default")
	assert.True(t, ok, "proxy must stay active before 10 observed requests")

	// Tenth failure: 0% success over >= 10 requests flips it to ERROR.
	mgr.Report("p1", false, 0)
	_, ok = mgr.Get(context.Background(), "default")
	assert.False(t, ok, "failed proxy must stop being selected")

	snaps := mgr.Snapshots()
	require.Len(t, snaps, 1)
	assert.Equal(t, proxy.StatusError, snaps[0].Status)
	assert.Equal(t, int64(10), snaps[0].TotalRequests)
}

func TestManager_HealthySuccessRateSurvivesTenRequests(t *testing.T) {
	mgr := proxy.NewManager(nil)
	mgr.Add(proxy.Config{ID: "p1", URL: "http://proxy-1:8080", Group: "default"})

	// 40% success over 10 requests stays above the 30% disable threshold.
	for i := 0; i < 10; i++ {
		mgr.Report("p1", i%5 < 2, 10*time.Millisecond)
	}

	_, ok := mgr.Get(context.Background(), "default")
	assert.True(t, ok)
}

func TestManager_ReportTracksResponseTimeEMA(t *testing.T) {
	mgr := proxy.NewManager(nil)
	mgr.Add(proxy.Config{ID: "p1", URL: "http://proxy-1:8080", Group: "default"})

	mgr.Report("p1", true, 100*time.Millisecond)
	mgr.Report("p1", true, 200*time.Millisecond)

	snaps := mgr.Snapshots()
	require.Len(t, snaps, 1)
	// First sample seeds the average; the second blends at weight 0.3.
	want := time.Duration(0.7*float64(100*time.Millisecond) + 0.3*float64(200*time.Millisecond))
	assert.Equal(t, want, snaps[0].AvgResponseTime)
}

func TestManager_SelectionPrefersHigherPriority(t *testing.T) {
	mgr := proxy.NewManager(nil)
	mgr.Add(proxy.Config{ID: "low", URL: "http://proxy-low:8080", Group: "default", Priority: 1})
	mgr.Add(proxy.Config{ID: "high", URL: "http://proxy-high:8080", Group: "default", Priority: 10})

	// The 80/20 policy picks the sorted head most of the time; over many
	// draws the high-priority proxy must dominate.
	var highCount int
	const draws = 200
	for i := 0; i < draws; i++ {
		snap, ok := mgr.Get(context.Background(), "default")
		require.True(t, ok)
		if snap.ID == "high" {
			highCount++
		}
	}
	assert.Greater(t, highCount, draws/2)
}

func TestManager_Remove(t *testing.T) {
	mgr := proxy.NewManager(nil)
	mgr.Add(proxy.Config{ID: "p1", URL: "http://proxy-1:8080", Group: "default"})

	mgr.Remove("p1")

	_, ok := mgr.Get(context.Background(), "default")
	assert.False(t, ok)
	assert.Empty(t, mgr.Snapshots())
}

func TestManager_RefreshIsRateLimited(t *testing.T) {
	var loads int
	mgr := proxy.NewManager(func(context.Context) ([]proxy.Config, error) {
		loads++
		return []proxy.Config{{ID: "p1", URL: "http://proxy-1:8080"}}, nil
	})

	require.NoError(t, mgr.Refresh(context.Background()))
	require.NoError(t, mgr.Refresh(context.Background()))

	assert.Equal(t, 1, loads, "second refresh inside the interval must not reload")
	assert.Len(t, mgr.Snapshots(), 1)
}

func TestManager_RefreshPropagatesSourceError(t *testing.T) {
	srcErr := errors.New("table unreadable")
	mgr := proxy.NewManager(func(context.Context) ([]proxy.Config, error) {
		return nil, srcErr
	})

	err := mgr.Refresh(context.Background())
	assert.ErrorIs(t, err, srcErr)
}

func TestManager_ReportUnknownProxyIsNoop(t *testing.T) {
	mgr := proxy.NewManager(nil)
	assert.NotPanics(t, func() { mgr.Report("ghost", true, time.Millisecond) })
}

func TestManager_HealthCheckUnknownProxy(t *testing.T) {
	mgr := proxy.NewManager(nil)
	err := mgr.HealthCheck(context.Background(), "ghost")
	assert.Error(t, err)
}
