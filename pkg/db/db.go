// SPDX-License-Identifier: Apache-2.0

// Package db wraps a *sql.DB with dialect-aware retry-on-lock-timeout
// behavior, so every other package talks to a single DB interface instead
// of a raw *sql.DB. Grounded directly on the teacher's pkg/db/db.go.
package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/cloudflare/backoff"
	"github.com/lib/pq"

	"github.com/momentum-cms/migrate/pkg/coltype"
)

const (
	// postgresLockNotAvailable is Postgres's SQLSTATE for "lock not
	// available" (statement/lock timeout), raised when a DDL statement
	// can't acquire the AccessExclusiveLock it needs within lock_timeout.
	postgresLockNotAvailable pq.ErrorCode = "55P03"

	maxBackoffDuration = 1 * time.Minute
	backoffInterval    = 1 * time.Second
)

// DB is the interface every other package depends on instead of *sql.DB
// directly, so call sites never need a dialect switch of their own.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	WithTransaction(ctx context.Context, f func(context.Context, *sql.Tx) error) error
	Dialect() coltype.Dialect
	Close() error
}

// RDB wraps a *sql.DB and retries queries that fail on a lock-timeout error,
// using an exponential backoff with jitter (github.com/cloudflare/backoff,
// same as the teacher).
type RDB struct {
	conn    *sql.DB
	dialect coltype.Dialect
}

// New wraps an already-open connection for the given dialect.
func New(conn *sql.DB, dialect coltype.Dialect) *RDB {
	return &RDB{conn: conn, dialect: dialect}
}

func (db *RDB) Dialect() coltype.Dialect {
	return db.dialect
}

// ExecContext wraps sql.DB.ExecContext, retrying queries on lock_timeout errors.
func (db *RDB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	b := backoff.New(maxBackoffDuration, backoffInterval)
	for {
		res, err := db.conn.ExecContext(ctx, query, args...)
		if err == nil {
			return res, nil
		}
		if db.isLockTimeout(err) {
			if werr := sleepCtx(ctx, b.Duration()); werr != nil {
				return nil, werr
			}
			continue
		}
		return nil, err
	}
}

// QueryContext wraps sql.DB.QueryContext, retrying queries on lock_timeout errors.
func (db *RDB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	b := backoff.New(maxBackoffDuration, backoffInterval)
	for {
		rows, err := db.conn.QueryContext(ctx, query, args...)
		if err == nil {
			return rows, nil
		}
		if db.isLockTimeout(err) {
			if werr := sleepCtx(ctx, b.Duration()); werr != nil {
				return nil, werr
			}
			continue
		}
		return nil, err
	}
}

func (db *RDB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return db.conn.QueryRowContext(ctx, query, args...)
}

// WithTransaction runs f in a transaction, retrying the whole transaction on
// a lock-timeout error and rolling back on any other error.
func (db *RDB) WithTransaction(ctx context.Context, f func(context.Context, *sql.Tx) error) error {
	b := backoff.New(maxBackoffDuration, backoffInterval)
	for {
		tx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}

		err = f(ctx, tx)
		if err == nil {
			return tx.Commit()
		}

		if rbErr := tx.Rollback(); rbErr != nil {
			return rbErr
		}

		if db.isLockTimeout(err) {
			if werr := sleepCtx(ctx, b.Duration()); werr != nil {
				return werr
			}
			continue
		}

		return err
	}
}

func (db *RDB) Close() error {
	return db.conn.Close()
}

// isLockTimeout recognizes a dialect's lock-contention error. SQLite has no
// SQLSTATE concept; modernc.org/sqlite surfaces lock contention as a plain
// "database is locked" error string, so that dialect matches on message
// rather than a typed code.
func (db *RDB) isLockTimeout(err error) bool {
	switch db.dialect {
	case coltype.Postgres:
		pqErr := &pq.Error{}
		return errors.As(err, &pqErr) && pqErr.Code == postgresLockNotAvailable
	case coltype.SQLite:
		return strings.Contains(err.Error(), "database is locked")
	default:
		return false
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// TxDB adapts an in-flight *sql.Tx to the DB interface, so code written
// against DB (MigrationContext and everything built on it) runs the same
// whether it's given a connection or a transaction in progress — needed to
// run a migration's Up/Down inside RDB.WithTransaction's callback.
type TxDB struct {
	tx      *sql.Tx
	dialect coltype.Dialect
}

// NewTxDB wraps tx for the given dialect.
func NewTxDB(tx *sql.Tx, dialect coltype.Dialect) *TxDB {
	return &TxDB{tx: tx, dialect: dialect}
}

func (db *TxDB) Dialect() coltype.Dialect {
	return db.dialect
}

func (db *TxDB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return db.tx.ExecContext(ctx, query, args...)
}

func (db *TxDB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return db.tx.QueryContext(ctx, query, args...)
}

func (db *TxDB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return db.tx.QueryRowContext(ctx, query, args...)
}

// WithTransaction is not supported on an already-open transaction: nested
// transactions have no meaning for database/sql, so a migration calling
// this through MigrationContext would indicate a programming error.
func (db *TxDB) WithTransaction(ctx context.Context, f func(context.Context, *sql.Tx) error) error {
	return f(ctx, db.tx)
}

// Close is a no-op: the owning RDB.WithTransaction call commits or rolls
// back the transaction, not the migration code running inside it.
func (db *TxDB) Close() error {
	return nil
}

// ScanFirstValue scans the first (and only expected) row/column of rows
// into dest, closing over the single-row, single-column convention used by
// row-count and aggregate queries.
func ScanFirstValue[T any](rows *sql.Rows, dest *T) error {
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(dest); err != nil {
			return err
		}
	}
	return rows.Err()
}
