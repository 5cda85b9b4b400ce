// Package repository defines the narrow persistence contract consumed by the
// fetch core and scheduler. The core never owns the relational schema; it
// only requires lookup-by-original-id, insert, update, and a timestamp touch.
package repository

import (
	"context"
	"time"

	"newsfeed-engine/internal/domain/entity"
)

// Record is a persisted news item as the store returns it.
type Record struct {
	ID         string
	SourceID   string
	OriginalID string
	Item       entity.NewsItem
}

// NewsCreate carries the fields required to insert a news item.
type NewsCreate struct {
	SourceID   string
	OriginalID string
	Item       entity.NewsItem
}

// NewsUpdate carries the fields that may change on an existing news item.
type NewsUpdate struct {
	Item entity.NewsItem
}

// NewsRepository is the persistence adapter consumed by the scheduler.
// It is intentionally minimal: the relational schema, search, and pagination
// surfaces built on top of it are a separate, out-of-scope product concern.
type NewsRepository interface {
	GetByOriginalID(ctx context.Context, sourceID, originalID string) (*Record, error)
	Create(ctx context.Context, create NewsCreate) (*Record, error)
	Update(ctx context.Context, recordID string, update NewsUpdate) error
	UpdateSourceTimestamp(ctx context.Context, sourceID string, now time.Time) error
}
