// Package strategy implements the per-kind fetch strategies dispatched by a
// Wrapper: one type per SourceKind, each satisfying
// sourcecore.Strategy by structural typing, behind the Strategy interface
// instead of a runtime method override.
package strategy

import (
	"fmt"

	"newsfeed-engine/internal/domain/entity"
	"newsfeed-engine/internal/fetchcore"
	"newsfeed-engine/internal/httpx"
)

// networkOptions builds the shared httpx.Options fields every strategy
// derives from a source's NetworkConfig.
func networkOptions(descriptor *entity.SourceDescriptor, responseKind httpx.ResponseKind) httpx.Options {
	net := descriptor.Network
	return httpx.Options{
		ResponseKind:         responseKind,
		Timeout:              net.TotalTimeout,
		ConnectTimeout:       net.ConnectTimeout,
		ReadTimeout:          net.ReadTimeout,
		MaxRetries:           net.MaxRetries,
		RetryBaseDelay:       net.RetryBaseDelay,
		InsecureSkipVerify:   net.InsecureSkipVerify,
		NeedsProxy:           net.NeedsProxy,
		ProxyFallbackAllowed: net.ProxyFallbackAllowed,
		SourceID:             descriptor.SourceID,
		ProxyGroup:           net.ProxyGroup,
	}
}

// finalizeItems stamps every item with the source's identity and runs the
// shared emission-time normalization before a strategy
// returns from Fetch.
func finalizeItems(descriptor *entity.SourceDescriptor, items []entity.NewsItem) []entity.NewsItem {
	out := make([]entity.NewsItem, 0, len(items))
	for _, item := range items {
		item.SourceID = descriptor.SourceID
		if item.SourceName == "" {
			item.SourceName = descriptor.Name
		}
		if item.Category == "" {
			item.Category = descriptor.Category
		}
		if item.Country == "" {
			item.Country = descriptor.Country
		}
		if item.Language == "" {
			item.Language = descriptor.Language
		}
		out = append(out, fetchcore.NormalizeItem(item))
	}
	return out
}

// errNoContent is returned by a strategy that reached its source
// successfully but could extract no usable items, distinguished from a
// transport failure so callers can tell "source empty" from "source down".
// Wrapper.applyProtection treats both as "fetch produced nothing", which is
// correct: either way the cache-protection decision is the same.
type errNoContent struct {
	sourceID string
	detail   string
}

func (e *errNoContent) Error() string {
	return fmt.Sprintf("strategy: source %s yielded no content: %s", e.sourceID, e.detail)
}

func newNoContentError(sourceID, detail string) error {
	return &errNoContent{sourceID: sourceID, detail: detail}
}
