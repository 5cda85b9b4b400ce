package metrics

import (
	"time"
)

// RecordArticlesFetched records the number of news items fetched from a source.
// This metric helps track fetch-pipeline performance and source activity.
func RecordArticlesFetched(sourceName, sourceID string, count int) {
	ArticlesFetchedTotal.WithLabelValues(sourceName, sourceID).Add(float64(count))
}

// RecordFeedCrawl records metrics for one source fetch.
func RecordFeedCrawl(sourceID string, duration time.Duration, itemsFound, itemsInserted, itemsDuplicated int64) {
	FeedCrawlDuration.WithLabelValues(sourceID).Observe(duration.Seconds())

	// Record the breakdown of items processed
	if itemsFound > 0 {
		RecordArticlesFetched("", sourceID, int(itemsFound))
	}
}

// RecordFeedCrawlError records an error during a source fetch.
func RecordFeedCrawlError(sourceID string, errorType string) {
	FeedCrawlErrors.WithLabelValues(sourceID, errorType).Inc()
}

// UpdateArticlesTotal updates the total count of news items in the database.
// This gauge should be updated periodically to reflect the current state.
func UpdateArticlesTotal(count int) {
	ArticlesTotal.Set(float64(count))
}

// UpdateSourcesTotal updates the total count of configured sources.
// This gauge should be updated periodically to reflect the current state.
func UpdateSourcesTotal(count int) {
	SourcesTotal.Set(float64(count))
}

// RecordContentFetchSuccess records a successful full-article content fetch.
// This tracks both the duration and size of fetched content.
//
// Parameters:
//   - duration: Time taken to fetch the content
//   - size: Size of fetched content in bytes
//
// Example:
//
//	start := time.Now()
//	content, err := fetcher.FetchContent(ctx, url)
//	if err == nil {
//	    RecordContentFetchSuccess(time.Since(start), len(content))
//	}
func RecordContentFetchSuccess(duration time.Duration, size int) {
	ContentFetchAttemptsTotal.WithLabelValues("success").Inc()
	ContentFetchDuration.Observe(duration.Seconds())
	ContentFetchSize.Observe(float64(size))
}

// RecordContentFetchFailed records a failed full-article content fetch.
//
// Parameters:
//   - duration: Time taken before the fetch failed
func RecordContentFetchFailed(duration time.Duration) {
	ContentFetchAttemptsTotal.WithLabelValues("failure").Inc()
	ContentFetchDuration.Observe(duration.Seconds())
}

// RecordContentFetchSkipped records a skipped content fetch.
// This occurs when the listing-page selectors already yielded enough content
// and a full-article fetch is unnecessary.
func RecordContentFetchSkipped() {
	ContentFetchAttemptsTotal.WithLabelValues("skipped").Inc()
}

// RecordDBQuery records the duration of a database query operation.
// Operation should describe the query type (e.g., "select_news", "insert_news").
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateDBConnectionStats updates database connection pool statistics.
func UpdateDBConnectionStats(active, idle int) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
