package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvString(t *testing.T) {
	t.Setenv("SOURCE_TABLE_FILE", "custom/sources.yaml")
	assert.Equal(t, "custom/sources.yaml", LoadEnvString("SOURCE_TABLE_FILE", "config/sources.yaml"))

	assert.Equal(t, "config/sources.yaml", LoadEnvString("UNSET_VARIABLE", "config/sources.yaml"))
}

func TestLoadEnvWithFallback(t *testing.T) {
	noVowels := func(v string) error {
		for _, r := range v {
			switch r {
			case 'a', 'e', 'i', 'o', 'u':
				return assert.AnError
			}
		}
		return nil
	}

	t.Run("unset uses default silently", func(t *testing.T) {
		result := LoadEnvWithFallback("UNSET_VARIABLE", "dflt", noVowels)
		assert.Equal(t, "dflt", result.Value)
		assert.False(t, result.FallbackApplied)
		assert.Empty(t, result.Warnings)
	})

	t.Run("valid value passes through", func(t *testing.T) {
		t.Setenv("TEST_VALUE", "xyz")
		result := LoadEnvWithFallback("TEST_VALUE", "dflt", noVowels)
		assert.Equal(t, "xyz", result.Value)
		assert.False(t, result.FallbackApplied)
	})

	t.Run("invalid value falls back with warning", func(t *testing.T) {
		t.Setenv("TEST_VALUE", "audio")
		result := LoadEnvWithFallback("TEST_VALUE", "dflt", noVowels)
		assert.Equal(t, "dflt", result.Value)
		assert.True(t, result.FallbackApplied)
		require.Len(t, result.Warnings, 1)
		assert.Contains(t, result.Warnings[0], "TEST_VALUE")
	})

	t.Run("nil validator accepts anything", func(t *testing.T) {
		t.Setenv("TEST_VALUE", "anything at all")
		result := LoadEnvWithFallback("TEST_VALUE", "dflt", nil)
		assert.Equal(t, "anything at all", result.Value)
	})
}

func TestLoadEnvDuration(t *testing.T) {
	t.Run("parses go duration syntax", func(t *testing.T) {
		t.Setenv("CHECK_INTERVAL", "90s")
		result := LoadEnvDuration("CHECK_INTERVAL", time.Minute, ValidatePositiveDuration)
		assert.Equal(t, 90*time.Second, result.Value)
		assert.False(t, result.FallbackApplied)
	})

	t.Run("unparseable falls back", func(t *testing.T) {
		t.Setenv("CHECK_INTERVAL", "ninety seconds")
		result := LoadEnvDuration("CHECK_INTERVAL", time.Minute, nil)
		assert.Equal(t, time.Minute, result.Value)
		assert.True(t, result.FallbackApplied)
	})

	t.Run("validator rejection falls back", func(t *testing.T) {
		t.Setenv("CHECK_INTERVAL", "-5s")
		result := LoadEnvDuration("CHECK_INTERVAL", time.Minute, ValidatePositiveDuration)
		assert.Equal(t, time.Minute, result.Value)
		assert.True(t, result.FallbackApplied)
	})

	t.Run("unset uses default silently", func(t *testing.T) {
		result := LoadEnvDuration("UNSET_VARIABLE", time.Minute, ValidatePositiveDuration)
		assert.Equal(t, time.Minute, result.Value)
		assert.False(t, result.FallbackApplied)
	})
}

func TestLoadEnvInt(t *testing.T) {
	rangeCheck := func(v int) error { return ValidateIntRange(v, 1, 100) }

	t.Run("parses integers", func(t *testing.T) {
		t.Setenv("CONCURRENCY", "16")
		result := LoadEnvInt("CONCURRENCY", 10, rangeCheck)
		assert.Equal(t, 16, result.Value)
		assert.False(t, result.FallbackApplied)
	})

	t.Run("non-integer falls back", func(t *testing.T) {
		t.Setenv("CONCURRENCY", "sixteen")
		result := LoadEnvInt("CONCURRENCY", 10, rangeCheck)
		assert.Equal(t, 10, result.Value)
		assert.True(t, result.FallbackApplied)
	})

	t.Run("out of range falls back", func(t *testing.T) {
		t.Setenv("CONCURRENCY", "5000")
		result := LoadEnvInt("CONCURRENCY", 10, rangeCheck)
		assert.Equal(t, 10, result.Value)
		assert.True(t, result.FallbackApplied)
		require.Len(t, result.Warnings, 1)
	})
}

func TestLoadEnvBool(t *testing.T) {
	tests := []struct {
		raw          string
		want         bool
		wantFallback bool
	}{
		{"true", true, false},
		{"1", true, false},
		{"T", true, false},
		{"false", false, false},
		{"0", false, false},
		{"F", false, false},
		{"yes", true, true}, // not a Go bool literal: falls back to default
		{"maybe", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Setenv("FLAG", tt.raw)
			result := LoadEnvBool("FLAG", true)
			assert.Equal(t, tt.want, result.Value)
			assert.Equal(t, tt.wantFallback, result.FallbackApplied)
		})
	}

	t.Run("unset uses default silently", func(t *testing.T) {
		result := LoadEnvBool("UNSET_VARIABLE", false)
		assert.Equal(t, false, result.Value)
		assert.False(t, result.FallbackApplied)
	})
}
