// Package database centralises sqlx connection helpers and the thin
// statement layer every table gateway is built on.  Two drivers are
// registered: go-sql-driver/mysql (MySQL, MariaDB) and lib/pq (PostgreSQL).
//
// Public entry points:
//
//	Open(ctx, dialect, dsn, opts, namer) – connect, ping, and wrap.
//	New(db, dialect, namer)              – wrap an existing *sqlx.DB (tests).
//
// Open pings the database before returning so callers can fail fast during
// bootstrap.  Callers should Close() the returned *Conn when no longer
// needed.  The pool is owned by the caller; gateways never open or close it.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Options tunes one connection pool.  Retries and RetryBackoff apply to the
// initial ping only; statements are never retried.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Retries         int
	RetryBackoff    time.Duration
}

// DefaultOptions returns conservative pool sizes: 15 max open, 5 idle, and a
// 30-minute connection lifetime.
func DefaultOptions() Options {
	return Options{
		MaxOpenConns:    15,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		Retries:         2,
		RetryBackoff:    500 * time.Millisecond,
	}
}

// Conn is the database handle shared by all gateways.  It pairs a pool with
// the SQL dialect spoken by the server and the table naming service.
type Conn struct {
	db      *sqlx.DB
	dialect Dialect
	namer   Namer
}

// Open connects with the driver matching d, applies opts, and pings.
func Open(ctx context.Context, d Dialect, dsn string, opts Options, namer Namer) (*Conn, error) {
	dsn, err := NormalizeDSN(d, dsn)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d, err)
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	for attempt := 0; ; attempt++ {
		err = db.PingContext(ctx)
		if err == nil || attempt >= opts.Retries {
			break
		}
		zap.S().Warnw("database ping failed, retrying",
			"dialect", d.String(), "attempt", attempt+1, "err", err)

		t := time.NewTimer(opts.RetryBackoff)
		select {
		case <-ctx.Done():
			t.Stop()
			_ = db.Close()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d, err)
	}

	zap.S().Debugw("database online", "dialect", d.String())
	return New(db, d, namer), nil
}

// NormalizeDSN forces parseTime and UTC on MySQL DSNs so DATETIME and
// TIMESTAMP columns scan into time.Time.  PostgreSQL DSNs pass through.
func NormalizeDSN(d Dialect, dsn string) (string, error) {
	if d != MySQL {
		return dsn, nil
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

// New wraps an already-open pool.  A nil namer means no table prefix.
func New(db *sqlx.DB, d Dialect, namer Namer) *Conn {
	if namer == nil {
		namer = Prefix("")
	}
	return &Conn{db: db, dialect: d, namer: namer}
}

// Dialect reports the SQL dialect of the underlying server.
func (c *Conn) Dialect() Dialect { return c.dialect }

// Table maps a logical table name to its physical, possibly prefixed, name.
func (c *Conn) Table(raw string) string { return c.namer.Table(raw) }

// QuoteIdentifier quotes name for the current dialect.
func (c *Conn) QuoteIdentifier(name string) string { return c.dialect.QuoteIdentifier(name) }

// DB exposes the pool for callers that need sqlx directly.
func (c *Conn) DB() *sqlx.DB { return c.db }

// Close releases the pool.
func (c *Conn) Close() error { return c.db.Close() }
