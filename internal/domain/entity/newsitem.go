// Package entity defines the core domain entities and validation logic for the application.
// It contains the fundamental business objects such as NewsItem and SourceDescriptor, along
// with their validation rules and domain-specific errors.
package entity

import "time"

// NewsItem is the unit of output of a source fetch. Strategies populate it
// from heterogeneous upstream shapes (RSS, JSON APIs, scraped HTML); the
// fetch core normalizes it before it is cached or persisted.
type NewsItem struct {
	// ID is stable: a hash of source_id:url:title:published_at when the
	// strategy did not already supply one. See fetchcore.GenerateID.
	ID          string
	Title       string
	URL         string
	SourceID    string
	SourceName  string
	PublishedAt time.Time
	UpdatedAt   time.Time

	Summary  string
	Content  string
	Author   string
	Category string
	Tags     []string
	ImageURL string
	Language string
	Country  string

	// Extra carries strategy-specific fields that have no dedicated field.
	Extra map[string]any
}
