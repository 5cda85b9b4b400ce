package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureLogger returns a JSON logger writing into buf so assertions can
// decode what was emitted.
func captureLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, nil))
}

func lastRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	return record
}

func TestNewLogger_DefaultLevelIsInfo(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	logger := NewLogger()
	require.NotNil(t, logger)

	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
}

func TestNewLogger_DebugLevelFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	logger := NewLogger()

	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestNewTextLogger(t *testing.T) {
	logger := NewTextLogger()
	require.NotNil(t, logger)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
}

func TestWithSourceID_AttachesContextValue(t *testing.T) {
	var buf bytes.Buffer
	logger := captureLogger(&buf)

	ctx := WithSourceIDValue(context.Background(), "bbc")
	WithSourceID(ctx, logger).Info("fetch complete")

	record := lastRecord(t, &buf)
	assert.Equal(t, "bbc", record["source_id"])
	assert.Equal(t, "fetch complete", record["msg"])
}

func TestWithSourceID_NoValueLeavesLoggerUntouched(t *testing.T) {
	var buf bytes.Buffer
	logger := captureLogger(&buf)

	WithSourceID(context.Background(), logger).Info("tick")

	record := lastRecord(t, &buf)
	assert.NotContains(t, record, "source_id")
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := captureLogger(&buf)

	WithFields(logger, map[string]interface{}{
		"tier":    "high",
		"sources": 12,
	}).Info("tier run complete")

	record := lastRecord(t, &buf)
	assert.Equal(t, "high", record["tier"])
	assert.Equal(t, float64(12), record["sources"])
}

func TestLoggerContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := captureLogger(&buf)

	ctx := WithLogger(context.Background(), logger)
	FromContext(ctx).Info("carried through context")

	record := lastRecord(t, &buf)
	assert.Equal(t, "carried through context", record["msg"])
}

func TestFromContext_FallsBackToDefault(t *testing.T) {
	logger := FromContext(context.Background())
	require.NotNil(t, logger)
}
