// Package observability groups the engine's telemetry concerns:
//
//   - logging: structured slog logging with source-ID context propagation
//   - metrics: the Prometheus collector set for fetches, HTTP, and the store
//   - slo: service-level-objective gauges derived from the telemetry rollup
//   - tracing: OpenTelemetry spans for fetches and the operational HTTP surface
//
// Each subpackage stands alone; this parent exists only to document the
// grouping.
package observability
