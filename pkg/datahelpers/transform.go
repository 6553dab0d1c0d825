// SPDX-License-Identifier: Apache-2.0

package datahelpers

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/lib/pq"

	"github.com/momentum-cms/migrate/pkg/coltype"
	"github.com/momentum-cms/migrate/pkg/db"
)

// RenameColumn copies every row's value from one column to another on the
// same table, for a migration that adds the new column, calls
// RenameColumn, then drops the old one — rather than relying on a
// same-transaction ALTER ... RENAME COLUMN, which a shared diff/sqlgen
// rename already covers; this helper is for migrations that need the old
// and new columns to coexist mid-migration.
func RenameColumn(ctx context.Context, conn db.DB, table, from, to string, opts *Options) error {
	_, err := Transform(ctx, conn, table, to, pq.QuoteIdentifier(from), opts)
	return err
}

// SplitColumn applies fn to every row's value in `from`, writing its two
// return values into `intoA` and `intoB`. fn runs in Go, one row at a time
// — for splits that aren't expressible as a single SQL expression (e.g.
// splitting "First Last" on whitespace).
func SplitColumn(ctx context.Context, conn db.DB, table, from, intoA, intoB, idColumn string, fn func(value string) (a, b string), opts *Options) error {
	return transformRows(ctx, conn, table, idColumn, []string{from}, []string{intoA, intoB}, func(in []string) []string {
		a, b := fn(in[0])
		return []string{a, b}
	}, opts)
}

// MergeColumns applies fn to every row's values across `from`, writing the
// single result into `into`. The SQL-expression equivalent (string
// concatenation, arithmetic) can be done directly with Transform; this
// helper is for merges that need Go-side logic.
func MergeColumns(ctx context.Context, conn db.DB, table string, from []string, into, idColumn string, fn func(values []string) string, opts *Options) error {
	return transformRows(ctx, conn, table, idColumn, from, []string{into}, func(in []string) []string {
		return []string{fn(in)}
	}, opts)
}

// identifierPattern matches a plain column name with no operators or
// punctuation — CopyData's columnMap source values that don't match this
// are treated as raw SQL expressions rather than identifiers to quote.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// sourceExpr renders a CopyData mapping's source side: a plain column
// name is quoted as an identifier, anything else (e.g. `UPPER("name")`,
// `price * 100`) is passed through as the caller's own SQL expression
// (spec.md §4.8's "mapping supporting both raw source names and
// expression overrides").
func sourceExpr(src string) string {
	if identifierPattern.MatchString(src) {
		return pq.QuoteIdentifier(src)
	}
	return src
}

// CopyData copies rows of fromTable into toTable using columnMap
// (destination column name -> source column name or expression), in
// batches ordered by idColumn, optionally restricted by opts' Where.
// Useful when a migration moves data into a newly created table rather
// than altering the existing one in place.
func CopyData(ctx context.Context, conn db.DB, fromTable, toTable string, columnMap map[string]string, idColumn string, opts *Options) error {
	if opts == nil {
		opts = NewOptions()
	}
	qi := pq.QuoteIdentifier
	dialect := conn.Dialect()

	destCols := make([]string, 0, len(columnMap))
	srcCols := make([]string, 0, len(columnMap))
	for dest, src := range columnMap {
		destCols = append(destCols, dest)
		srcCols = append(srcCols, src)
	}

	total, err := rowCount(ctx, conn, fromTable)
	if err != nil {
		return fmt.Errorf("datahelpers: counting rows of %q: %w", fromTable, err)
	}

	destList := ""
	srcList := ""
	for i := range destCols {
		if i > 0 {
			destList += ", "
			srcList += ", "
		}
		destList += qi(destCols[i])
		srcList += sourceExpr(srcCols[i])
	}

	var lastSeen *string
	var done int64
	for {
		opts.notify(done, total)

		var args []interface{}
		where := ""
		if lastSeen != nil {
			where = fmt.Sprintf("%s > %s", qi(idColumn), placeholder(dialect, 1))
			args = []interface{}{*lastSeen}
		}
		if opts.where != "" {
			if where != "" {
				where += " AND (" + opts.where + ")"
			} else {
				where = opts.where
			}
		}

		stmt := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", qi(toTable), destList, srcList, qi(fromTable))
		if where != "" {
			stmt += " WHERE " + where
		}
		stmt += fmt.Sprintf(" ORDER BY %s LIMIT %d RETURNING %s", qi(idColumn), opts.batchSize, qi(idColumn))

		rows, err := conn.QueryContext(ctx, stmt, args...)
		if err != nil {
			return fmt.Errorf("datahelpers: copying %q into %q: %w", fromTable, toTable, err)
		}

		var n int64
		var max string
		for rows.Next() {
			if err := rows.Scan(&max); err != nil {
				rows.Close()
				return err
			}
			n++
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		if n == 0 {
			break
		}
		done += n
		lastSeen = &max
	}

	opts.notify(total, total)
	return nil
}

// ColumnToJSON wraps every row's scalar value in `from` into a single-key
// JSON object stored in `into` (e.g. moving a flat `metadata_color` column
// into a `metadata` JSON blob ahead of a wider JSON-column migration).
// Uses jsonb_build_object on PostgreSQL, json_object (SQLite's json1
// signature, key/value pairs — not PostgreSQL's array-based json_object)
// on SQLite (spec.md §4.8).
func ColumnToJSON(ctx context.Context, conn db.DB, table, from, into, jsonKey string, opts *Options) error {
	qi := pq.QuoteIdentifier

	var expr string
	if conn.Dialect() == coltype.Postgres {
		expr = fmt.Sprintf("jsonb_build_object(%s, %s)", pq.QuoteLiteral(jsonKey), qi(from))
	} else {
		expr = fmt.Sprintf("json_object(%s, %s)", pq.QuoteLiteral(jsonKey), qi(from))
	}

	_, err := Transform(ctx, conn, table, into, expr, opts)
	return err
}

// JSONToColumn is ColumnToJSON's inverse: extracts jsonKey out of the JSON
// blob in `from` into the scalar column `into`. Uses the ->> operator on
// PostgreSQL, json_extract on SQLite (spec.md §4.8).
func JSONToColumn(ctx context.Context, conn db.DB, table, from, into, jsonKey string, opts *Options) error {
	qi := pq.QuoteIdentifier

	var expr string
	if conn.Dialect() == coltype.Postgres {
		expr = fmt.Sprintf("%s ->> %s", qi(from), pq.QuoteLiteral(jsonKey))
	} else {
		expr = fmt.Sprintf("json_extract(%s, %s)", qi(from), pq.QuoteLiteral("$."+jsonKey))
	}

	_, err := Transform(ctx, conn, table, into, expr, opts)
	return err
}

// Dedup strategies (spec.md §4.8): which row survives within a group of
// rows sharing the same values across uniqueColumns.
const (
	DedupLatest   = "latest"
	DedupEarliest = "earliest"
	DedupFirst    = "first"
)

// Dedup deletes every row of table except one per group of rows sharing
// the same values across uniqueColumns, chosen by strategy: "latest"/
// "earliest" keep the row with the greatest/least createdAtColumn value;
// "first" keeps the row with the lowest physical row identifier and
// ignores createdAtColumn (it may be passed empty). PostgreSQL uses
// DISTINCT ON; SQLite has no DISTINCT ON, so it uses GROUP BY ...
// MIN(rowid) for "first" and a ROW_NUMBER window for "latest"/"earliest"
// (spec.md §4.8).
func Dedup(ctx context.Context, conn db.DB, table string, uniqueColumns []string, strategy, createdAtColumn string) error {
	qi := pq.QuoteIdentifier
	rowID := rowIDColumn(conn.Dialect())
	partitionBy := quoteList(uniqueColumns)

	var stmt string
	switch {
	case conn.Dialect() == coltype.Postgres:
		var order string
		switch strategy {
		case DedupLatest:
			order = fmt.Sprintf("%s, %s DESC", partitionBy, qi(createdAtColumn))
		case DedupEarliest:
			order = fmt.Sprintf("%s, %s ASC", partitionBy, qi(createdAtColumn))
		default: // DedupFirst
			order = fmt.Sprintf("%s, %s ASC", partitionBy, rowID)
		}
		stmt = fmt.Sprintf(
			"DELETE FROM %[1]s WHERE %[2]s NOT IN (SELECT DISTINCT ON (%[3]s) %[2]s FROM %[1]s ORDER BY %[4]s)",
			qi(table), rowID, partitionBy, order,
		)

	case strategy == DedupFirst:
		stmt = fmt.Sprintf(
			"DELETE FROM %[1]s WHERE %[2]s NOT IN (SELECT MIN(%[2]s) FROM %[1]s GROUP BY %[3]s)",
			qi(table), rowID, partitionBy,
		)

	default: // latest/earliest on SQLite, via a ROW_NUMBER window
		orderDir := "DESC"
		if strategy == DedupEarliest {
			orderDir = "ASC"
		}
		stmt = fmt.Sprintf(`
			DELETE FROM %[1]s WHERE %[2]s NOT IN (
				SELECT %[2]s FROM (
					SELECT %[2]s, ROW_NUMBER() OVER (PARTITION BY %[3]s ORDER BY %[4]s %[5]s) AS rn
					FROM %[1]s
				) ranked WHERE rn = 1
			)`, qi(table), rowID, partitionBy, qi(createdAtColumn), orderDir)
	}

	if _, err := conn.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("datahelpers: deduplicating %q: %w", table, err)
	}
	return nil
}

func quoteList(cols []string) string {
	qi := pq.QuoteIdentifier
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += qi(c)
	}
	return out
}

// transformRows reads `from` columns for every row in batches, runs fn in
// Go, and writes the results back into `into` columns — keyset pagination
// over idColumn, round-tripping through Go instead of a single SQL
// expression.
func transformRows(ctx context.Context, conn db.DB, table, idColumn string, from, into []string, fn func(in []string) []string, opts *Options) error {
	if opts == nil {
		opts = NewOptions()
	}
	qi := pq.QuoteIdentifier
	dialect := conn.Dialect()

	total, err := rowCount(ctx, conn, table)
	if err != nil {
		return fmt.Errorf("datahelpers: counting rows of %q: %w", table, err)
	}

	selectCols := qi(idColumn)
	for _, c := range from {
		selectCols += ", " + qi(c)
	}

	var lastSeen *string
	var done int64

	for {
		opts.notify(done, total)

		var stmt string
		var args []interface{}
		if lastSeen != nil {
			stmt = fmt.Sprintf("SELECT %s FROM %s WHERE %s > %s ORDER BY %s LIMIT %d",
				selectCols, qi(table), qi(idColumn), placeholder(dialect, 1), qi(idColumn), opts.batchSize)
			args = []interface{}{*lastSeen}
		} else {
			stmt = fmt.Sprintf("SELECT %s FROM %s ORDER BY %s LIMIT %d",
				selectCols, qi(table), qi(idColumn), opts.batchSize)
		}

		rows, err := conn.QueryContext(ctx, stmt, args...)
		if err != nil {
			return fmt.Errorf("datahelpers: reading %q: %w", table, err)
		}

		type rowUpdate struct {
			id   string
			vals []string
		}
		var batch []rowUpdate
		for rows.Next() {
			scanTargets := make([]interface{}, 1+len(from))
			var id string
			scanTargets[0] = &id
			vals := make([]string, len(from))
			for i := range vals {
				scanTargets[i+1] = &vals[i]
			}
			if err := rows.Scan(scanTargets...); err != nil {
				rows.Close()
				return err
			}
			batch = append(batch, rowUpdate{id: id, vals: vals})
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		if len(batch) == 0 {
			break
		}

		for _, r := range batch {
			out := fn(r.vals)
			setList := ""
			args := make([]interface{}, 0, len(out)+1)
			for i, c := range into {
				if i > 0 {
					setList += ", "
				}
				setList += fmt.Sprintf("%s = %s", qi(c), placeholder(dialect, i+1))
				args = append(args, out[i])
			}
			args = append(args, r.id)
			updateStmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s", qi(table), setList, qi(idColumn), placeholder(dialect, len(args)))
			if _, err := conn.ExecContext(ctx, updateStmt, args...); err != nil {
				return fmt.Errorf("datahelpers: updating row %q of %q: %w", r.id, table, err)
			}
		}

		done += int64(len(batch))
		lastSeen = &batch[len(batch)-1].id

		if opts.batchDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(opts.batchDelay):
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
	}

	opts.notify(total, total)
	return nil
}
