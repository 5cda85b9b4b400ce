package tracing

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// withSpanRecorder installs an in-memory exporter for the test's duration.
func withSpanRecorder(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(sdktrace.NewTracerProvider()) })
	return exporter
}

func serve(handler http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware_RecordsSpanWithAttributes(t *testing.T) {
	exporter := withSpanRecorder(t)

	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := serve(handler, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /health", spans[0].Name)

	attrs := make(map[string]any, len(spans[0].Attributes))
	for _, kv := range spans[0].Attributes {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, int64(http.StatusOK), attrs["http.status_code"])
	assert.Equal(t, "GET", attrs["http.method"])
	assert.Equal(t, "/health", attrs["http.path"])
	assert.NotContains(t, attrs, "error")
}

func TestMiddleware_MarksServerErrors(t *testing.T) {
	exporter := withSpanRecorder(t)

	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	serve(handler, "/telemetry")

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	errored := false
	for _, kv := range spans[0].Attributes {
		if string(kv.Key) == "error" && kv.Value.AsBool() {
			errored = true
		}
	}
	assert.True(t, errored, "5xx must mark the span as errored")
}

func TestMiddleware_EchoesTraceID(t *testing.T) {
	withSpanRecorder(t)

	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := serve(handler, "/status")

	assert.NotEmpty(t, rec.Header().Get("X-Trace-Id"))
}

func TestMiddleware_DefaultStatusIs200(t *testing.T) {
	exporter := withSpanRecorder(t)

	// Handler writes a body without an explicit WriteHeader.
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	serve(handler, "/metrics")

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	for _, kv := range spans[0].Attributes {
		if string(kv.Key) == "http.status_code" {
			assert.Equal(t, int64(http.StatusOK), kv.Value.AsInt64())
		}
	}
}
