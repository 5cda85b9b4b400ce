package tracing

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// statusRecorder captures the status code the wrapped handler wrote, since
// http.ResponseWriter offers no way to read it back.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware traces inbound requests on the operational HTTP surface
// (health, metrics, status endpoints): it picks up W3C trace context from
// the caller's headers, opens a server span, echoes the trace ID back in
// X-Trace-Id, and records method/path/status on the span. 5xx responses
// mark the span as errored.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		w.Header().Set("X-Trace-Id", span.SpanContext().TraceID().String())

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r.WithContext(ctx))

		span.SetAttributes(
			attribute.Int("http.status_code", recorder.status),
			attribute.String("http.method", r.Method),
			attribute.String("http.path", r.URL.Path),
		)
		if recorder.status >= 500 {
			span.SetAttributes(attribute.Bool("error", true))
		}
	})
}
