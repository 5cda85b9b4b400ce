// Package fixtures provides reusable test data generators for integration tests.
// This package eliminates test data duplication and ensures consistent test content
// across different test suites.
package fixtures

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"newsfeed-engine/internal/domain/entity"
)

// NewsItemOptions configures a generated news item.
type NewsItemOptions struct {
	SourceID    string
	OriginalID  string
	Title       string
	PublishedAt time.Time
	Tags        []string
}

// NewsItem builds a well-formed entity.NewsItem for fetch-core and
// persistence tests, filling in sane defaults for any zero-value field.
//
// Example:
//
//	item := fixtures.NewsItem(fixtures.NewsItemOptions{SourceID: "bbc"})
func NewsItem(opts NewsItemOptions) entity.NewsItem {
	if opts.SourceID == "" {
		opts.SourceID = "example-source"
	}
	if opts.OriginalID == "" {
		opts.OriginalID = "article-1"
	}
	if opts.Title == "" {
		opts.Title = "Example headline"
	}
	if opts.PublishedAt.IsZero() {
		opts.PublishedAt = time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	}

	url := "https://example.com/" + opts.OriginalID
	sum := md5.Sum([]byte(fmt.Sprintf("%s:%s:%s:%s", opts.SourceID, url, opts.Title, opts.PublishedAt.UTC().Format(time.RFC3339))))

	return entity.NewsItem{
		ID:          hex.EncodeToString(sum[:]),
		Title:       opts.Title,
		URL:         url,
		SourceID:    opts.SourceID,
		SourceName:  opts.SourceID,
		PublishedAt: opts.PublishedAt,
		UpdatedAt:   opts.PublishedAt,
		Summary:     "A short summary of " + opts.Title,
		Tags:        opts.Tags,
		Language:    "en",
	}
}

// NewsItems builds n sequential news items for the same source, useful for
// exercising cache-shrink and adaptive-interval heuristics that depend on
// batch size.
//
// Example:
//
//	items := fixtures.NewsItems("bbc", 5)
func NewsItems(sourceID string, n int) []entity.NewsItem {
	items := make([]entity.NewsItem, 0, n)
	base := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		items = append(items, NewsItem(NewsItemOptions{
			SourceID:    sourceID,
			OriginalID:  "article-" + strconv.Itoa(i+1),
			Title:       "Headline " + strconv.Itoa(i+1),
			PublishedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}
	return items
}

// RSSSource builds a minimal, valid RSS SourceDescriptor.
//
// Example:
//
//	src := fixtures.RSSSource("bbc")
func RSSSource(sourceID string) *entity.SourceDescriptor {
	d := &entity.SourceDescriptor{
		SourceID:       sourceID,
		Kind:           entity.SourceKindRSS,
		URL:            "https://example.com/" + sourceID + "/feed",
		UpdateInterval: 30 * time.Minute,
		CacheTTL:       30 * time.Minute,
		EnableAdaptive: true,
	}
	_ = d.Validate()
	return d
}
