// Package tracing carries the engine's OpenTelemetry integration: a
// process-wide tracer used to span every HTTP substrate request and every
// scheduler fetch, plus server middleware for the operational
// health/metrics/status endpoints that picks up W3C trace context and
// echoes trace IDs back to callers.
package tracing
