// SPDX-License-Identifier: Apache-2.0

package loader

import (
	"context"

	"github.com/momentum-cms/migrate/pkg/coltype"
	"github.com/momentum-cms/migrate/pkg/datahelpers"
	"github.com/momentum-cms/migrate/pkg/db"
)

// MigrationContext is the surface passed to every user migration's Up/Down
// method (spec.md §6): raw SQL execution against the target connection,
// the data-helpers toolbox, the active dialect, and a logger.
type MigrationContext struct {
	conn    db.DB
	Data    *Data
	Dialect coltype.Dialect
	Log     Logger
}

// NewMigrationContext builds a MigrationContext bound to conn.
func NewMigrationContext(conn db.DB, log Logger) *MigrationContext {
	if log == nil {
		log = NewNoopLogger()
	}
	return &MigrationContext{
		conn:    conn,
		Data:    &Data{conn: conn},
		Dialect: conn.Dialect(),
		Log:     log,
	}
}

// SQL executes query without returning rows.
func (c *MigrationContext) SQL(ctx context.Context, query string, params ...interface{}) error {
	_, err := c.conn.ExecContext(ctx, query, params...)
	return err
}

// Query executes query and collects every row as a column-name-keyed map.
// spec.md's Query<T> is generic over the caller's target language; Go has
// no equivalent without per-call type parameters the migration author
// would have to supply by hand, so this returns the same untyped shape
// query builders in other pack repos hand back from ad hoc SQL.
func (c *MigrationContext) Query(ctx context.Context, query string, params ...interface{}) ([]map[string]interface{}, error) {
	rows, err := c.conn.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []map[string]interface{}
	for rows.Next() {
		raw := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(cols))
		for i, c := range cols {
			row[c] = normalizeScanned(raw[i])
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// normalizeScanned converts a driver-returned []byte (the common shape for
// TEXT/VARCHAR columns across both database/sql drivers this module uses)
// into a string, so migration authors see the same Go types regardless of
// dialect.
func normalizeScanned(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// Data is the batched data-helpers toolbox (spec.md §4.8), bound to this
// context's connection so migrations don't have to pass it on every call.
type Data struct {
	conn db.DB
}

func (d *Data) Backfill(ctx context.Context, table, column string, value interface{}, opts *datahelpers.Options) (int64, error) {
	return datahelpers.Backfill(ctx, d.conn, table, column, value, opts)
}

func (d *Data) Transform(ctx context.Context, table, column, sqlExpression string, opts *datahelpers.Options) (int64, error) {
	return datahelpers.Transform(ctx, d.conn, table, column, sqlExpression, opts)
}

func (d *Data) RenameColumn(ctx context.Context, table, from, to string, opts *datahelpers.Options) error {
	return datahelpers.RenameColumn(ctx, d.conn, table, from, to, opts)
}

func (d *Data) SplitColumn(ctx context.Context, table, from, intoA, intoB, idColumn string, fn func(value string) (a, b string), opts *datahelpers.Options) error {
	return datahelpers.SplitColumn(ctx, d.conn, table, from, intoA, intoB, idColumn, fn, opts)
}

func (d *Data) MergeColumns(ctx context.Context, table string, from []string, into, idColumn string, fn func(values []string) string, opts *datahelpers.Options) error {
	return datahelpers.MergeColumns(ctx, d.conn, table, from, into, idColumn, fn, opts)
}

func (d *Data) CopyData(ctx context.Context, fromTable, toTable string, columnMap map[string]string, idColumn string, opts *datahelpers.Options) error {
	return datahelpers.CopyData(ctx, d.conn, fromTable, toTable, columnMap, idColumn, opts)
}

func (d *Data) ColumnToJSON(ctx context.Context, table, from, into, jsonKey string, opts *datahelpers.Options) error {
	return datahelpers.ColumnToJSON(ctx, d.conn, table, from, into, jsonKey, opts)
}

func (d *Data) JSONToColumn(ctx context.Context, table, from, into, jsonKey string, opts *datahelpers.Options) error {
	return datahelpers.JSONToColumn(ctx, d.conn, table, from, into, jsonKey, opts)
}

func (d *Data) Dedup(ctx context.Context, table string, uniqueColumns []string, strategy, createdAtColumn string) error {
	return datahelpers.Dedup(ctx, d.conn, table, uniqueColumns, strategy, createdAtColumn)
}
