// SPDX-License-Identifier: Apache-2.0

package datahelpers

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/momentum-cms/migrate/pkg/coltype"
	"github.com/momentum-cms/migrate/pkg/db"
)

// rowIDColumn returns the physical row identifier a dialect exposes:
// ctid for PostgreSQL, rowid for SQLite's implicit rowid alias (present on
// every table that isn't declared WITHOUT ROWID). Batching by this column
// rather than a caller-supplied business key means Backfill/Transform need
// no assumption about what columns a table has.
func rowIDColumn(dialect coltype.Dialect) string {
	if dialect == coltype.Postgres {
		return "ctid"
	}
	return "rowid"
}

// placeholder returns the dialect-correct bind parameter for position n
// (1-based): $1, $2, … for PostgreSQL, ? for SQLite, whose driver takes
// positional placeholders regardless of the number used.
func placeholder(dialect coltype.Dialect, n int) string {
	if dialect == coltype.Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Backfill sets column to value on every row where column IS NULL (and
// opts' optional Where clause, if set), in batches of opts.batchSize
// (default 1000, spec.md §4.8). Returns the total number of rows updated.
//
// Grounded on the teacher's needsBackfillColumnBatcher.updateBatch:
// `UPDATE ... WHERE ctid IN (SELECT ctid FROM ... WHERE <predicate> LIMIT
// n)`, relying on the predicate no longer matching a row once it's been
// updated to terminate the loop, rather than keyset pagination over a
// business column this helper has no reason to assume exists.
func Backfill(ctx context.Context, conn db.DB, table, column string, value interface{}, opts *Options) (int64, error) {
	if opts == nil {
		opts = NewOptions()
	}
	qi := pq.QuoteIdentifier

	setSQL := fmt.Sprintf("%s = %s", qi(column), placeholder(conn.Dialect(), 1))
	predicate := fmt.Sprintf("%s IS NULL", qi(column))
	if opts.where != "" {
		predicate += fmt.Sprintf(" AND (%s)", opts.where)
	}

	return batchUpdate(ctx, conn, table, setSQL, predicate, []interface{}{value}, opts)
}

// Transform runs an UPDATE setting column to sqlExpression — a raw SQL
// expression rather than a bound value, e.g. `"first_name" || ' ' ||
// "last_name"` — across every row of table (and opts' optional Where
// clause, if set). Unbatched when opts.batchSize <= 0, the default for
// Transform per spec.md §4.8; otherwise batched the same physical-row-id
// way as Backfill. Batching only terminates cleanly when the where/column
// combination stops matching a row once transformed — the same
// assumption Backfill's "column IS NULL" predicate relies on; a caller
// batching an expression that doesn't shrink its own candidate set will
// loop until ctx is cancelled.
func Transform(ctx context.Context, conn db.DB, table, column, sqlExpression string, opts *Options) (int64, error) {
	if opts == nil {
		opts = &Options{}
	}
	qi := pq.QuoteIdentifier
	setSQL := fmt.Sprintf("%s = %s", qi(column), sqlExpression)

	if opts.batchSize <= 0 {
		stmt := fmt.Sprintf("UPDATE %s SET %s", qi(table), setSQL)
		if opts.where != "" {
			stmt += " WHERE " + opts.where
		}

		res, err := conn.ExecContext(ctx, stmt)
		if err != nil {
			return 0, fmt.Errorf("datahelpers: transforming %q.%q: %w", table, column, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		opts.notify(n, n)
		return n, nil
	}

	predicate := opts.where
	if predicate == "" {
		predicate = "1=1"
	}
	return batchUpdate(ctx, conn, table, setSQL, predicate, nil, opts)
}

// batchUpdate runs `UPDATE table SET setSQL WHERE rowID IN (SELECT rowID
// FROM table WHERE predicate LIMIT batchSize)` repeatedly until a batch
// affects fewer rows than batchSize, returning the total rows affected.
func batchUpdate(ctx context.Context, conn db.DB, table, setSQL, predicate string, args []interface{}, opts *Options) (int64, error) {
	qi := pq.QuoteIdentifier
	rowID := rowIDColumn(conn.Dialect())
	batchSize := opts.batchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	stmt := fmt.Sprintf(
		"UPDATE %[1]s SET %[2]s WHERE %[3]s IN (SELECT %[3]s FROM %[1]s WHERE %[4]s LIMIT %[5]d)",
		qi(table), setSQL, rowID, predicate, batchSize,
	)

	var total int64
	for {
		res, err := conn.ExecContext(ctx, stmt, args...)
		if err != nil {
			return total, fmt.Errorf("datahelpers: batch update on %q: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += n
		opts.notify(total, total)

		if n < int64(batchSize) {
			break
		}

		if opts.batchDelay > 0 {
			select {
			case <-ctx.Done():
				return total, ctx.Err()
			case <-time.After(opts.batchDelay):
			}
		} else if err := ctx.Err(); err != nil {
			return total, err
		}
	}
	return total, nil
}

func rowCount(ctx context.Context, conn db.DB, table string) (int64, error) {
	var total int64
	err := conn.QueryRowContext(ctx, fmt.Sprintf("SELECT count(*) FROM %s", pq.QuoteIdentifier(table))).Scan(&total)
	return total, err
}
