package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Name:             "test-circuit",
		MaxRequests:      2,
		Interval:         10 * time.Second,
		Timeout:          100 * time.Millisecond,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

func TestNew(t *testing.T) {
	cb := New(testConfig())

	require.NotNil(t, cb)
	assert.Equal(t, "test-circuit", cb.Name())
	assert.Equal(t, gobreaker.StateClosed, cb.State())
	assert.False(t, cb.IsOpen())
}

func TestExecute_PassesThroughResultAndError(t *testing.T) {
	cb := New(testConfig())

	result, err := cb.Execute(func() (interface{}, error) { return "payload", nil })
	require.NoError(t, err)
	assert.Equal(t, "payload", result)

	boom := errors.New("upstream down")
	result, err = cb.Execute(func() (interface{}, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, result)
}

func TestTripsOpenPastThreshold(t *testing.T) {
	cb := New(testConfig())
	boom := errors.New("upstream down")

	// Six requests, five failures: above both the sample floor and the
	// 60% ratio.
	for i := 0; i < 5; i++ {
		_, _ = cb.Execute(func() (interface{}, error) { return nil, boom })
	}
	_, _ = cb.Execute(func() (interface{}, error) { return "ok", nil })

	require.True(t, cb.IsOpen())

	// Open circuit rejects without invoking the function.
	called := false
	_, err := cb.Execute(func() (interface{}, error) {
		called = true
		return nil, nil
	})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.False(t, called)
}

func TestStaysClosedBelowSampleFloor(t *testing.T) {
	cb := New(testConfig())
	boom := errors.New("upstream down")

	// Four straight failures, but MinRequests is five: no trip yet.
	for i := 0; i < 4; i++ {
		_, _ = cb.Execute(func() (interface{}, error) { return nil, boom })
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestRecoversThroughHalfOpen(t *testing.T) {
	cb := New(testConfig())
	boom := errors.New("upstream down")

	for i := 0; i < 6; i++ {
		_, _ = cb.Execute(func() (interface{}, error) { return nil, boom })
	}
	require.True(t, cb.IsOpen())

	// After the open timeout, a successful probe closes the circuit.
	time.Sleep(150 * time.Millisecond)
	_, err := cb.Execute(func() (interface{}, error) { return "ok", nil })
	require.NoError(t, err)
	assert.NotEqual(t, gobreaker.StateOpen, cb.State())
}

func TestProfiles(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"default", DefaultConfig("x")},
		{"proxy-health", ProxyHealthConfig()},
		{"json-api", JSONAPIConfig()},
		{"feed-fetch", FeedFetchConfig()},
		{"web-scraper", WebScraperConfig()},
		{"database", DBConfig()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEmpty(t, tt.cfg.Name)
			assert.Greater(t, tt.cfg.MaxRequests, uint32(0))
			assert.Greater(t, tt.cfg.Timeout, time.Duration(0))
			assert.Greater(t, tt.cfg.FailureThreshold, 0.0)
			assert.LessOrEqual(t, tt.cfg.FailureThreshold, 1.0)
			assert.Greater(t, tt.cfg.MinRequests, uint32(0))
		})
	}
}
