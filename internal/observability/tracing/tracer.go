package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the engine's shared tracer. otel.Tracer delegates through the
// global provider, so spans follow whatever provider the process installs.
var tracer = otel.Tracer("newsfeed-engine")

// GetTracer hands out the shared tracer for span creation:
//
//	ctx, span := tracing.GetTracer().Start(ctx, "scheduler.Fetch")
//	defer span.End()
func GetTracer() trace.Tracer {
	return tracer
}
