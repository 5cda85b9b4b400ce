// Package db owns database bootstrap: pool construction from DATABASE_URL
// and the minimal schema migration.
package db

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"newsfeed-engine/internal/resilience/retry"
)

// ConnectionConfig is the pool sizing applied to the *sql.DB handle.
type ConnectionConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultConnectionConfig sizes the pool for one worker process: upsert
// fan-out is bounded by the scheduler's concurrency, so a modest pool
// suffices.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: 1 * time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
	}
}

// Open builds the pool from DATABASE_URL and verifies connectivity before
// returning. A missing URL or an unreachable database is fatal: the worker
// cannot do anything useful without its store.
func Open() *sql.DB {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatal(err)
	}

	cfg := getConnectionConfigFromEnv()
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	slog.Info("database connection pool configured",
		slog.Int("max_open_conns", cfg.MaxOpenConns),
		slog.Int("max_idle_conns", cfg.MaxIdleConns),
		slog.Duration("conn_max_lifetime", cfg.ConnMaxLifetime),
		slog.Duration("conn_max_idle_time", cfg.ConnMaxIdleTime))

	// The database is often still coming up when the worker starts (fresh
	// compose environments); retry the ping before giving up.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := retry.WithBackoff(ctx, retry.DBConfig(), func() error {
		return db.PingContext(ctx)
	}); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}

	slog.Info("database connection established")
	return db
}

// getConnectionConfigFromEnv overlays DB_* environment overrides onto the
// defaults. Malformed or non-positive values keep the default silently:
// pool sizing is tuning, not correctness, and must never block startup.
func getConnectionConfigFromEnv() ConnectionConfig {
	cfg := DefaultConnectionConfig()

	if raw := os.Getenv("DB_MAX_OPEN_CONNS"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			cfg.MaxOpenConns = v
		}
	}
	if raw := os.Getenv("DB_MAX_IDLE_CONNS"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			cfg.MaxIdleConns = v
		}
	}
	if raw := os.Getenv("DB_CONN_MAX_LIFETIME"); raw != "" {
		if v, err := time.ParseDuration(raw); err == nil && v > 0 {
			cfg.ConnMaxLifetime = v
		}
	}
	if raw := os.Getenv("DB_CONN_MAX_IDLE_TIME"); raw != "" {
		if v, err := time.ParseDuration(raw); err == nil && v > 0 {
			cfg.ConnMaxIdleTime = v
		}
	}
	return cfg
}
