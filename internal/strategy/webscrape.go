package strategy

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"newsfeed-engine/internal/domain/entity"
	"newsfeed-engine/internal/fetchcore"
	"newsfeed-engine/internal/httpx"
	obsmetrics "newsfeed-engine/internal/observability/metrics"
)

// WebScrapeStrategy renders a listing page through a CSS selector map.
// It serves both WEB_SCRAPE and CUSTOM_SELECTORS source
// kinds: the latter only differs in how its selector map was populated
// (operator-authored rather than defaulted), not in fetch behavior.
type WebScrapeStrategy struct {
	descriptor *entity.SourceDescriptor
	client     *httpx.Client
	pageURL    string
}

// NewWebScrapeStrategy constructs a WebScrapeStrategy for one source's
// listing page.
func NewWebScrapeStrategy(descriptor *entity.SourceDescriptor, client *httpx.Client, pageURL string) *WebScrapeStrategy {
	return &WebScrapeStrategy{descriptor: descriptor, client: client, pageURL: pageURL}
}

// Fetch satisfies sourcecore.Strategy.
func (s *WebScrapeStrategy) Fetch(ctx context.Context) ([]entity.NewsItem, error) {
	opts := networkOptions(s.descriptor, httpx.Text)
	opts.URL = s.pageURL

	resp, err := s.client.DoRequest(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("web_scrape: fetch %s: %w", s.pageURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.Text))
	if err != nil {
		return nil, fmt.Errorf("web_scrape: parse html: %w", err)
	}

	sel := s.descriptor.Selectors
	var items []entity.NewsItem
	doc.Find(sel.Item).Each(func(_ int, node *goquery.Selection) {
		item, ok := s.extractOne(node, sel)
		if ok {
			items = append(items, item)
		}
	})

	if len(items) == 0 {
		return nil, newNoContentError(s.descriptor.SourceID, "item selector matched nothing")
	}

	if s.descriptor.EnableReadability {
		s.enhanceWithReadability(ctx, items)
	}

	return finalizeItems(s.descriptor, items), nil
}

func (s *WebScrapeStrategy) extractOne(node *goquery.Selection, sel entity.SelectorConfig) (entity.NewsItem, bool) {
	title := strings.TrimSpace(node.Find(sel.Title).First().Text())
	link, hasLink := node.Find(sel.Link).First().Attr("href")
	if title == "" || !hasLink || link == "" {
		return entity.NewsItem{}, false
	}
	link = resolveLink(sel.URLPrefix, link)

	item := entity.NewsItem{Title: title, URL: link}
	if sel.Summary != "" {
		item.Summary = strings.TrimSpace(node.Find(sel.Summary).First().Text())
	}
	if sel.Content != "" {
		item.Content = strings.TrimSpace(node.Find(sel.Content).First().Text())
	}
	if sel.Date != "" {
		raw := strings.TrimSpace(node.Find(sel.Date).First().Text())
		item.PublishedAt = fetchcore.ExtractDate(raw)
	}
	return item, true
}

func resolveLink(prefix, link string) string {
	if prefix == "" || strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link
	}
	return strings.TrimSuffix(prefix, "/") + "/" + strings.TrimPrefix(link, "/")
}

// enhanceWithReadability fetches full-article content for items whose
// listing-page selectors yielded no content, mutating items in place. A
// per-item failure is tolerated: the item keeps whatever it already had.
func (s *WebScrapeStrategy) enhanceWithReadability(ctx context.Context, items []entity.NewsItem) {
	for i := range items {
		if items[i].Content != "" || items[i].URL == "" {
			obsmetrics.RecordContentFetchSkipped()
			continue
		}
		// Article URLs come from scraped markup; refuse anything pointing
		// into private address space before fetching it.
		if err := entity.ValidateURL(items[i].URL); err != nil {
			obsmetrics.RecordContentFetchSkipped()
			continue
		}

		start := time.Now()
		opts := networkOptions(s.descriptor, httpx.Text)
		opts.URL = items[i].URL
		resp, err := s.client.DoRequest(ctx, opts)
		if err != nil {
			obsmetrics.RecordContentFetchFailed(time.Since(start))
			continue
		}

		parsedURL, err := url.Parse(items[i].URL)
		if err != nil {
			obsmetrics.RecordContentFetchFailed(time.Since(start))
			continue
		}
		article, err := readability.FromReader(strings.NewReader(resp.Text), parsedURL)
		if err != nil {
			obsmetrics.RecordContentFetchFailed(time.Since(start))
			continue
		}
		if article.TextContent != "" {
			items[i].Content = article.TextContent
		}
		if items[i].ImageURL == "" && article.Image != "" {
			items[i].ImageURL = article.Image
		}
		obsmetrics.RecordContentFetchSuccess(time.Since(start), len(items[i].Content))
	}
}
