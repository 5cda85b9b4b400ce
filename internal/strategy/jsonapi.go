package strategy

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"newsfeed-engine/internal/domain/entity"
	"newsfeed-engine/internal/fetchcore"
	"newsfeed-engine/internal/httpx"
)

// JSONAPIStrategy fetches one or more JSON endpoints and extracts items from
// a configured gjson data path, merging and deduping across endpoints when
// api_urls lists more than one.
type JSONAPIStrategy struct {
	descriptor *entity.SourceDescriptor
	client     *httpx.Client
}

// NewJSONAPIStrategy constructs a JSONAPIStrategy for one source.
func NewJSONAPIStrategy(descriptor *entity.SourceDescriptor, client *httpx.Client) *JSONAPIStrategy {
	return &JSONAPIStrategy{descriptor: descriptor, client: client}
}

func (s *JSONAPIStrategy) endpoints() []string {
	if len(s.descriptor.JSONAPI.APIURLs) > 0 {
		return s.descriptor.JSONAPI.APIURLs
	}
	return []string{s.descriptor.JSONAPI.APIURL}
}

// Fetch satisfies sourcecore.Strategy.
func (s *JSONAPIStrategy) Fetch(ctx context.Context) ([]entity.NewsItem, error) {
	endpoints := s.endpoints()
	seenURLs := make(map[string]bool)
	var items []entity.NewsItem
	var lastErr error

	for _, endpoint := range endpoints {
		opts := networkOptions(s.descriptor, httpx.JSON)
		opts.URL = endpoint

		resp, err := s.client.DoRequest(ctx, opts)
		if err != nil {
			lastErr = err
			continue
		}

		extracted := s.extractItems(resp.JSON)
		for _, item := range extracted {
			if item.URL != "" && seenURLs[item.URL] {
				continue
			}
			if item.URL != "" {
				seenURLs[item.URL] = true
			}
			items = append(items, item)
		}
	}

	if len(items) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("json_api: all endpoints failed for source %s: %w", s.descriptor.SourceID, lastErr)
		}
		return nil, newNoContentError(s.descriptor.SourceID, "data path matched no entries")
	}

	return finalizeItems(s.descriptor, items), nil
}

// extractItems walks the configured data path and maps each matched object
// to a NewsItem using the field names gjson exposes by convention. Missing
// fields degrade gracefully rather than dropping the item.
func (s *JSONAPIStrategy) extractItems(root gjson.Result) []entity.NewsItem {
	path := s.descriptor.JSONAPI.DataPath
	data := root
	if path != "" {
		data = root.Get(path)
	}
	if !data.Exists() {
		return nil
	}
	if !data.IsArray() {
		return []entity.NewsItem{s.mapOne(data)}
	}

	var out []entity.NewsItem
	data.ForEach(func(_, value gjson.Result) bool {
		out = append(out, s.mapOne(value))
		return true
	})
	return out
}

func (s *JSONAPIStrategy) mapOne(v gjson.Result) entity.NewsItem {
	title := firstNonEmpty(v, "title", "headline", "name")
	url := firstNonEmpty(v, "url", "link", "permalink")
	published := firstNonEmpty(v, "published_at", "publishedAt", "pub_date", "date", "created_at")

	item := entity.NewsItem{
		Title:       title,
		URL:         url,
		Summary:     firstNonEmpty(v, "summary", "description", "excerpt"),
		Content:     firstNonEmpty(v, "content", "body", "text"),
		Author:      firstNonEmpty(v, "author", "byline"),
		ImageURL:    firstNonEmpty(v, "image_url", "image", "thumbnail"),
		PublishedAt: fetchcore.ExtractDate(published),
	}
	return item
}

func firstNonEmpty(v gjson.Result, keys ...string) string {
	for _, key := range keys {
		if field := v.Get(key); field.Exists() && field.String() != "" {
			return field.String()
		}
	}
	return ""
}
