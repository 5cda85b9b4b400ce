package circuitbreaker

import (
	"context"
	"database/sql"
	"time"

	"github.com/sony/gobreaker"
)

// DBConfig is the breaker profile for database traffic: the store is a hard
// dependency, so the circuit only opens on sustained total failure and
// recovers cautiously.
func DBConfig() Config {
	return Config{
		Name:             "database",
		MaxRequests:      3,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 1.0,
		MinRequests:      5,
	}
}

// DBCircuitBreaker guards a *sql.DB behind a breaker so that a dead or
// wedged database fails fast instead of stacking up blocked upserts under
// scheduler fan-out. The persistence adapter routes its reads and writes
// through this type rather than the raw handle.
type DBCircuitBreaker struct {
	breaker *CircuitBreaker
	db      *sql.DB
}

// NewDBCircuitBreaker wraps db with the default database breaker profile.
func NewDBCircuitBreaker(db *sql.DB) *DBCircuitBreaker {
	return NewDBCircuitBreakerWithConfig(db, DBConfig())
}

// NewDBCircuitBreakerWithConfig wraps db with a caller-chosen profile.
func NewDBCircuitBreakerWithConfig(db *sql.DB, cfg Config) *DBCircuitBreaker {
	return &DBCircuitBreaker{breaker: New(cfg), db: db}
}

// QueryContext runs a query through the breaker. With the circuit open it
// returns gobreaker.ErrOpenState without touching the database.
func (d *DBCircuitBreaker) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := d.breaker.Execute(func() (interface{}, error) {
		return d.db.QueryContext(ctx, query, args...)
	})
	if err != nil {
		return nil, err
	}
	return rows.(*sql.Rows), nil
}

// ExecContext runs a statement through the breaker. With the circuit open it
// returns gobreaker.ErrOpenState without touching the database.
func (d *DBCircuitBreaker) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := d.breaker.Execute(func() (interface{}, error) {
		return d.db.ExecContext(ctx, query, args...)
	})
	if err != nil {
		return nil, err
	}
	return res.(sql.Result), nil
}

// State reports the breaker's current state.
func (d *DBCircuitBreaker) State() gobreaker.State { return d.breaker.State() }

// IsOpen reports whether the circuit is open.
func (d *DBCircuitBreaker) IsOpen() bool { return d.breaker.IsOpen() }
