// SPDX-License-Identifier: Apache-2.0

package introspect

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/momentum-cms/migrate/pkg/coltype"
	"github.com/momentum-cms/migrate/pkg/schema"
)

// SQLite introspects a connected SQLite database via its PRAGMA interface —
// SQLite has no information_schema/pg_catalog equivalent.
type SQLite struct {
	db *sql.DB
}

// NewSQLite wraps an already-open connection. The caller owns the
// connection's lifecycle.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

type sqliteCtx struct {
	ctx context.Context
	db  *sql.DB
}

func (s *SQLite) Snapshot(ctx context.Context, capturedAt string) (*schema.DatabaseSchemaSnapshot, error) {
	sc := &sqliteCtx{ctx: ctx, db: s.db}

	names, err := sc.tableNames()
	if err != nil {
		return nil, fmt.Errorf("introspect: listing tables: %w", err)
	}

	tables := make([]schema.TableSnapshot, 0, len(names))
	for _, name := range names {
		if schema.InternalTables[name] {
			continue
		}

		t := schema.TableSnapshot{Name: name}

		t.Columns, err = sc.columns(name)
		if err != nil {
			return nil, fmt.Errorf("introspect: columns of %q: %w", name, err)
		}

		t.ForeignKeys, err = sc.foreignKeys(name)
		if err != nil {
			return nil, fmt.Errorf("introspect: foreign keys of %q: %w", name, err)
		}

		t.Indexes, err = sc.indexes(name)
		if err != nil {
			return nil, fmt.Errorf("introspect: indexes of %q: %w", name, err)
		}

		tables = append(tables, t)
	}

	return schema.New(coltype.SQLite, tables, capturedAt), nil
}

func (sc *sqliteCtx) tableNames() ([]string, error) {
	rows, err := sc.db.QueryContext(sc.ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// columns reads PRAGMA table_info(table), whose columns are (cid, name,
// type, notnull, dflt_value, pk). SQLite identifiers can't be bound as
// query parameters, so the table name is quoted and interpolated directly;
// it is always a name this process itself listed via tableNames, never
// caller-supplied input.
func (sc *sqliteCtx) columns(table string) ([]schema.ColumnSnapshot, error) {
	rows, err := sc.db.QueryContext(sc.ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, quoteSQLiteIdent(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schema.ColumnSnapshot
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull int
		var dflt sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}

		col := schema.ColumnSnapshot{
			Name:         name,
			Type:         coltype.Normalize(colType, coltype.SQLite),
			Nullable:     notNull == 0,
			IsPrimaryKey: pk > 0,
		}
		if dflt.Valid {
			v := dflt.String
			col.DefaultValue = &v
		}
		out = append(out, col)
	}
	return out, rows.Err()
}

// foreignKeys reads PRAGMA foreign_key_list(table): (id, seq, table, from,
// to, on_update, on_delete, match). SQLite never names foreign keys, so a
// name is synthesized in the same fk_{table}_{column} form pkg/collections
// emits, keeping a round-tripped schema's foreign keys diff-stable.
func (sc *sqliteCtx) foreignKeys(table string) ([]schema.ForeignKeySnapshot, error) {
	rows, err := sc.db.QueryContext(sc.ctx, fmt.Sprintf(`PRAGMA foreign_key_list(%s)`, quoteSQLiteIdent(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schema.ForeignKeySnapshot
	for rows.Next() {
		var id, seq int
		var refTable, from, to, onUpdate, onDelete, match string
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}

		out = append(out, schema.ForeignKeySnapshot{
			ConstraintName:   fmt.Sprintf("fk_%s_%s", table, from),
			Column:           from,
			ReferencedTable:  refTable,
			ReferencedColumn: to,
			OnDelete:         onDelete,
		})
	}
	return out, rows.Err()
}

// indexes reads PRAGMA index_list(table) for names and uniqueness, then
// PRAGMA index_info(name) per index for its columns. Auto-indexes backing a
// primary key or unique constraint carry an "origin" of 'pk'/'u'; only 'pk'
// auto-indexes are skipped, matching Postgres introspection's exclusion of
// the primary key's backing index and nothing else.
func (sc *sqliteCtx) indexes(table string) ([]schema.IndexSnapshot, error) {
	rows, err := sc.db.QueryContext(sc.ctx, fmt.Sprintf(`PRAGMA index_list(%s)`, quoteSQLiteIdent(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type idxMeta struct {
		name   string
		unique bool
		origin string
	}
	var metas []idxMeta
	for rows.Next() {
		var seq int
		var name, origin string
		var unique, partial int
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return nil, err
		}
		metas = append(metas, idxMeta{name: name, unique: unique != 0, origin: origin})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []schema.IndexSnapshot
	for _, m := range metas {
		if m.origin == "pk" {
			continue
		}

		cols, err := sc.indexColumns(m.name)
		if err != nil {
			return nil, err
		}

		out = append(out, schema.IndexSnapshot{Name: m.name, Columns: cols, Unique: m.unique})
	}
	return out, nil
}

func (sc *sqliteCtx) indexColumns(index string) ([]string, error) {
	rows, err := sc.db.QueryContext(sc.ctx, fmt.Sprintf(`PRAGMA index_info(%s)`, quoteSQLiteIdent(index)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var seqno, cid int
		var name sql.NullString
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, err
		}
		cols = append(cols, name.String)
	}
	return cols, rows.Err()
}

func quoteSQLiteIdent(ident string) string {
	return `"` + ident + `"`
}
