package db

import "database/sql"

// MigrateUp creates the minimal schema the persistence adapter needs:
// a sources table used only to track last-crawl timestamps (source
// configuration itself is loaded from YAML, not the database), and a
// news_items table keyed by (source_id, original_id) for upsert lookups.
func MigrateUp(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS sources (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL,
    last_crawled_at TIMESTAMPTZ
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS news_items (
    id           TEXT PRIMARY KEY,
    source_id    TEXT NOT NULL REFERENCES sources(id),
    original_id  TEXT NOT NULL,
    title        TEXT NOT NULL,
    url          TEXT NOT NULL,
    source_name  TEXT,
    summary      TEXT,
    content      TEXT,
    author       TEXT,
    category     TEXT,
    image_url    TEXT,
    language     TEXT,
    country      TEXT,
    tags         JSONB,
    extra        JSONB,
    published_at TIMESTAMPTZ,
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE(source_id, original_id)
)`); err != nil {
		return err
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_news_items_published_at ON news_items(published_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_news_items_source_id ON news_items(source_id)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	return nil
}

// MigrateDown drops the news_items table. Sources is left intact: it is the
// durable record of per-source crawl timestamps.
func MigrateDown(db *sql.DB) error {
	_, err := db.Exec(`DROP TABLE IF EXISTS news_items CASCADE`)
	return err
}
