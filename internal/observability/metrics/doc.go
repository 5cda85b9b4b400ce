// Package metrics holds the engine's central Prometheus collectors:
// outbound HTTP traffic by destination host, per-source fetch counts and
// durations, full-article content fetches, and database pool state. All
// collectors register with the default registry at init and are scraped
// through the worker's /metrics endpoint.
package metrics
