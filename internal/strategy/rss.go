package strategy

import (
	"context"
	"fmt"

	"github.com/mmcdole/gofeed"

	"newsfeed-engine/internal/domain/entity"
	"newsfeed-engine/internal/httpx"
)

// RSSStrategy parses an RSS/Atom feed, retrying through a fixed chain of
// backup URLs before giving up. The primary URL is the feed URL passed to
// the constructor; the registry supplies the descriptor's url field.
type RSSStrategy struct {
	descriptor *entity.SourceDescriptor
	client     *httpx.Client
	feedURL    string
}

// NewRSSStrategy constructs an RSSStrategy. feedURL is the primary feed
// endpoint; backups come from descriptor.RSS.BackupURLs.
func NewRSSStrategy(descriptor *entity.SourceDescriptor, client *httpx.Client, feedURL string) *RSSStrategy {
	return &RSSStrategy{descriptor: descriptor, client: client, feedURL: feedURL}
}

func (s *RSSStrategy) candidateURLs() []string {
	urls := make([]string, 0, 1+len(s.descriptor.RSS.BackupURLs))
	if s.feedURL != "" {
		urls = append(urls, s.feedURL)
	}
	urls = append(urls, s.descriptor.RSS.BackupURLs...)
	return urls
}

// Fetch satisfies sourcecore.Strategy.
func (s *RSSStrategy) Fetch(ctx context.Context) ([]entity.NewsItem, error) {
	parser := gofeed.NewParser()

	var lastErr error
	for _, candidate := range s.candidateURLs() {
		opts := networkOptions(s.descriptor, httpx.Text)
		opts.URL = candidate

		resp, err := s.client.DoRequest(ctx, opts)
		if err != nil {
			lastErr = err
			continue
		}

		feed, err := parser.ParseString(resp.Text)
		if err != nil {
			lastErr = fmt.Errorf("parse feed %s: %w", candidate, err)
			continue
		}

		items := s.mapItems(feed)
		if len(items) == 0 {
			lastErr = newNoContentError(s.descriptor.SourceID, "feed parsed with zero entries")
			continue
		}
		return finalizeItems(s.descriptor, items), nil
	}

	if lastErr == nil {
		lastErr = newNoContentError(s.descriptor.SourceID, "no feed url configured")
	}
	return nil, lastErr
}

func (s *RSSStrategy) mapItems(feed *gofeed.Feed) []entity.NewsItem {
	out := make([]entity.NewsItem, 0, len(feed.Items))
	for _, fi := range feed.Items {
		item := entity.NewsItem{
			Title:   fi.Title,
			URL:     fi.Link,
			Summary: fi.Description,
		}
		if fi.Content != "" {
			item.Content = fi.Content
		}
		if fi.Author != nil {
			item.Author = fi.Author.Name
		} else if len(fi.Authors) > 0 {
			item.Author = fi.Authors[0].Name
		}
		if fi.PublishedParsed != nil {
			item.PublishedAt = *fi.PublishedParsed
		} else if fi.UpdatedParsed != nil {
			item.PublishedAt = *fi.UpdatedParsed
		}
		if fi.Image != nil {
			item.ImageURL = fi.Image.URL
		}
		for _, cat := range fi.Categories {
			item.Tags = append(item.Tags, cat)
		}
		out = append(out, item)
	}
	return out
}
