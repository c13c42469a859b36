package db

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/dine-composer/internal/internaltypes"
)

// Querier is what the history repository and migrations need from Postgres.
// *DB implements it; dbtest.Fake stands in for it in tests.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) error
	QueryRow(ctx context.Context, sql string, args ...any) Row
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
}

type Row interface {
	Scan(dest ...any) error
}

type Rows interface {
	Close()
	Err() error
	Next() bool
	Scan(dest ...any) error
}

// PoolOptions sizes the pool. A CLI run issues a handful of statements, so the
// defaults are small.
type PoolOptions struct {
	MaxConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	ConnectTimeout  time.Duration
}

func (o PoolOptions) withDefaults() PoolOptions {
	if o.MaxConns <= 0 {
		o.MaxConns = 4
	}
	if o.MaxConnLifetime <= 0 {
		o.MaxConnLifetime = 5 * time.Minute
	}
	if o.MaxConnIdleTime <= 0 {
		o.MaxConnIdleTime = time.Minute
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 3 * time.Second
	}
	return o
}

// DB is the history database handle.
type DB struct {
	pool *pgxpool.Pool
}

var _ Querier = (*DB)(nil)

// Open connects and checks the server answers before returning. An
// unreachable server is reported as a transport failure.
func Open(ctx context.Context, databaseURL string, opts PoolOptions) (*DB, error) {
	opts = opts.withDefaults()
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, internaltypes.Invalid("DATABASE_URL: %v", err)
	}
	cfg.MaxConns = opts.MaxConns
	cfg.MaxConnLifetime = opts.MaxConnLifetime
	cfg.MaxConnIdleTime = opts.MaxConnIdleTime
	cfg.ConnConfig.ConnectTimeout = opts.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "open history database")
	}
	d := &DB{pool: pool}

	pingCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, errors.WithHint(internaltypes.Transport(err, "history database"), "unset DATABASE_URL to run without history")
	}
	return d, nil
}

func (d *DB) Close() { d.pool.Close() }

func (d *DB) Exec(ctx context.Context, sql string, args ...any) error {
	_, err := d.pool.Exec(ctx, sql, args...)
	return err
}

func (d *DB) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return d.pool.QueryRow(ctx, sql, args...)
}

// Query returns the pgx rows as Rows; a nil Rows is never returned with a nil error.
func (d *DB) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rows, err := d.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// WrapNotFound maps pgx's no-rows error onto ErrNotFound and annotates the rest.
func WrapNotFound(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return internaltypes.ErrNotFound
	}
	return errors.Wrap(err, "db")
}
