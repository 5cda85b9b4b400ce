package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewsItem_ZeroValue(t *testing.T) {
	var item NewsItem

	assert.Empty(t, item.ID)
	assert.Empty(t, item.Title)
	assert.Empty(t, item.URL)
	assert.True(t, item.PublishedAt.IsZero())
	assert.Nil(t, item.Extra)
}

func TestNewsItem_WithAllFields(t *testing.T) {
	publishedAt := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	updatedAt := time.Date(2024, 1, 15, 11, 0, 0, 0, time.UTC)

	item := NewsItem{
		ID:          "abc123",
		Title:       "Complete Item",
		URL:         "https://example.com/complete",
		SourceID:    "source-1",
		SourceName:  "Source One",
		PublishedAt: publishedAt,
		UpdatedAt:   updatedAt,
		Summary:     "a summary",
		Content:     "full content",
		Author:      "Jane Doe",
		Category:    "tech",
		Tags:        []string{"go", "news"},
		ImageURL:    "https://example.com/img.png",
		Language:    "en",
		Country:     "US",
		Extra:       map[string]any{"foo": "bar"},
	}

	assert.Equal(t, "abc123", item.ID)
	assert.Equal(t, publishedAt, item.PublishedAt)
	assert.Equal(t, updatedAt, item.UpdatedAt)
	assert.Equal(t, []string{"go", "news"}, item.Tags)
	assert.Equal(t, "bar", item.Extra["foo"])
}

func TestNewsItem_Comparison(t *testing.T) {
	now := time.Now()

	a := NewsItem{ID: "1", Title: "A", URL: "https://example.com/1", PublishedAt: now}
	b := NewsItem{ID: "1", Title: "A", URL: "https://example.com/1", PublishedAt: now}
	c := NewsItem{ID: "2", Title: "B", URL: "https://example.com/2", PublishedAt: now}

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
