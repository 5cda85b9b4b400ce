package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics track outbound request patterns and performance
var (
	// HTTPRequestsTotal counts total HTTP requests by method, host, and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "host", "status"},
	)

	// HTTPRequestDuration measures HTTP request duration in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "host", "status"},
	)

	// HTTPRequestSize measures HTTP request body size in bytes
	HTTPRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_size_bytes",
			Help:    "HTTP request size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "host"},
	)

	// HTTPResponseSize measures HTTP response body size in bytes
	HTTPResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "host"},
	)

	// ActiveConnections tracks the number of active outbound HTTP connections
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)
)

// Business metrics track engine-specific operations
var (
	// ArticlesTotal tracks total number of news items in the database
	ArticlesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "news_items_total",
			Help: "Total number of news items in the database",
		},
	)

	// SourcesTotal tracks total number of configured sources
	SourcesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sources_total",
			Help: "Total number of configured sources",
		},
	)

	// ArticlesFetchedTotal counts news items fetched from each source
	ArticlesFetchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "news_items_fetched_total",
			Help: "Total number of news items fetched from sources",
		},
		[]string{"source", "source_id"},
	)

	// FeedCrawlDuration measures time to fetch one source
	FeedCrawlDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_crawl_duration_seconds",
			Help:    "Time taken to fetch a source",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"source_id"},
	)

	// FeedCrawlErrors counts errors during source fetching
	FeedCrawlErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_crawl_errors_total",
			Help: "Total number of source fetch errors",
		},
		[]string{"source_id", "error_type"},
	)

	// ContentFetchAttemptsTotal counts full-article content fetch attempts by result
	ContentFetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_fetch_attempts_total",
			Help: "Total number of content fetch attempts",
		},
		[]string{"result"}, // result: success, failure, skipped
	)

	// ContentFetchDuration measures time to fetch full article content
	ContentFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "content_fetch_duration_seconds",
			Help:    "Time taken to fetch article content",
			Buckets: []float64{0.1, 0.2, 0.4, 0.8, 1.6, 3.2, 6.4, 12.8},
		},
	)

	// ContentFetchSize measures fetched content size in bytes
	ContentFetchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "content_fetch_size_bytes",
			Help: "Fetched article content size in bytes",
			Buckets: []float64{
				100, 200, 400, 800, 1600, 3200, 6400, 12800,
				25600, 51200, 102400, 204800, 409600, 819200,
				1638400, 3276800, 6553600, 10485760, // up to 10MB
			},
		},
	)
)

// Database metrics track database performance
var (
	// DBQueryDuration measures database query duration
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation"},
	)

	// DBConnectionsActive tracks active database connections
	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	// DBConnectionsIdle tracks idle database connections
	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)
)

// RecordHTTPRequest records an outbound HTTP request with its metadata
func RecordHTTPRequest(method, host, status string, duration time.Duration, requestSize, responseSize int) {
	HTTPRequestsTotal.WithLabelValues(method, host, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, host, status).Observe(duration.Seconds())

	if requestSize > 0 {
		HTTPRequestSize.WithLabelValues(method, host).Observe(float64(requestSize))
	}
	if responseSize > 0 {
		HTTPResponseSize.WithLabelValues(method, host).Observe(float64(responseSize))
	}
}

// RecordOperationDuration records the duration of a named operation
func RecordOperationDuration(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
