// Package postgres is the reference implementation of repository.NewsRepository
// over database/sql, driven by the pgx stdlib driver. It is a
// reference consumer of the persistence interface, not a product surface: the
// core never imports it directly, only the interface it satisfies.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"newsfeed-engine/internal/repository"
	"newsfeed-engine/internal/resilience/circuitbreaker"

	"github.com/google/uuid"
)

// NewsRepo routes every read and write through a database circuit breaker:
// with the store down, upserts from scheduler fan-out fail fast instead of
// piling up on a dead connection pool.
type NewsRepo struct {
	db *circuitbreaker.DBCircuitBreaker
}

func NewNewsRepo(db *sql.DB) repository.NewsRepository {
	return &NewsRepo{db: circuitbreaker.NewDBCircuitBreaker(db)}
}

func (r *NewsRepo) GetByOriginalID(ctx context.Context, sourceID, originalID string) (*repository.Record, error) {
	const query = `
SELECT id, source_id, original_id, title, url, source_name, summary, content, author,
       category, image_url, language, country, tags, extra, published_at, updated_at
FROM news_items
WHERE source_id = $1 AND original_id = $2`

	rows, err := r.db.QueryContext(ctx, query, sourceID, originalID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetByOriginalID: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("GetByOriginalID: %w", err)
		}
		return nil, nil
	}
	rec, err := scanRecord(rows)
	if err != nil {
		return nil, fmt.Errorf("GetByOriginalID: %w", err)
	}
	return rec, nil
}

func (r *NewsRepo) Create(ctx context.Context, create repository.NewsCreate) (*repository.Record, error) {
	item := create.Item
	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	tagsJSON, err := json.Marshal(item.Tags)
	if err != nil {
		return nil, fmt.Errorf("Create: marshal tags: %w", err)
	}
	extraJSON, err := json.Marshal(item.Extra)
	if err != nil {
		return nil, fmt.Errorf("Create: marshal extra: %w", err)
	}

	const query = `
INSERT INTO news_items
  (id, source_id, original_id, title, url, source_name, summary, content, author,
   category, image_url, language, country, tags, extra, published_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`

	now := time.Now()
	if _, err := r.db.ExecContext(ctx, query,
		item.ID, create.SourceID, create.OriginalID, item.Title, item.URL, item.SourceName,
		item.Summary, item.Content, item.Author, item.Category, item.ImageURL, item.Language,
		item.Country, tagsJSON, extraJSON, item.PublishedAt, now,
	); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	return &repository.Record{ID: item.ID, SourceID: create.SourceID, OriginalID: create.OriginalID, Item: item}, nil
}

func (r *NewsRepo) Update(ctx context.Context, recordID string, update repository.NewsUpdate) error {
	item := update.Item

	tagsJSON, err := json.Marshal(item.Tags)
	if err != nil {
		return fmt.Errorf("Update: marshal tags: %w", err)
	}
	extraJSON, err := json.Marshal(item.Extra)
	if err != nil {
		return fmt.Errorf("Update: marshal extra: %w", err)
	}

	const query = `
UPDATE news_items SET
  title=$2, url=$3, source_name=$4, summary=$5, content=$6, author=$7, category=$8,
  image_url=$9, language=$10, country=$11, tags=$12, extra=$13, published_at=$14, updated_at=$15
WHERE id=$1`

	if _, err := r.db.ExecContext(ctx, query,
		recordID, item.Title, item.URL, item.SourceName, item.Summary, item.Content, item.Author,
		item.Category, item.ImageURL, item.Language, item.Country, tagsJSON, extraJSON,
		item.PublishedAt, time.Now(),
	); err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	return nil
}

func (r *NewsRepo) UpdateSourceTimestamp(ctx context.Context, sourceID string, now time.Time) error {
	const query = `
INSERT INTO sources (id, name, last_crawled_at) VALUES ($1, $1, $2)
ON CONFLICT (id) DO UPDATE SET last_crawled_at = EXCLUDED.last_crawled_at`

	if _, err := r.db.ExecContext(ctx, query, sourceID, now); err != nil {
		return fmt.Errorf("UpdateSourceTimestamp: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*repository.Record, error) {
	var (
		rec       repository.Record
		tagsJSON  []byte
		extraJSON []byte
	)
	item := &rec.Item

	if err := row.Scan(
		&rec.ID, &rec.SourceID, &rec.OriginalID, &item.Title, &item.URL, &item.SourceName,
		&item.Summary, &item.Content, &item.Author, &item.Category, &item.ImageURL,
		&item.Language, &item.Country, &tagsJSON, &extraJSON, &item.PublishedAt, &item.UpdatedAt,
	); err != nil {
		return nil, err
	}

	item.ID = rec.ID
	item.SourceID = rec.SourceID

	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &item.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags: %w", err)
		}
	}
	if len(extraJSON) > 0 {
		if err := json.Unmarshal(extraJSON, &item.Extra); err != nil {
			return nil, fmt.Errorf("unmarshal extra: %w", err)
		}
	}

	return &rec, nil
}

var _ repository.NewsRepository = (*NewsRepo)(nil)
