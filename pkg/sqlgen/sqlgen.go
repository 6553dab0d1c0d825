// SPDX-License-Identifier: Apache-2.0

// Package sqlgen emits forward and reverse SQL for each operation
// (pkg/ops), per dialect. Table and column identifiers are always
// double-quoted, following the teacher's use of pq.QuoteIdentifier
// throughout its per-operation SQL builders (op_create_table.go,
// op_add_column.go, op_create_index.go, ...).
package sqlgen

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/momentum-cms/migrate/pkg/coltype"
	"github.com/momentum-cms/migrate/pkg/ops"
)

// Statement is one forward or reverse SQL statement alongside the
// operation it was generated from, for logging/diagnostics.
type Statement struct {
	SQL string
	Op  ops.Operation
}

// quoteIdent quotes a single identifier. Both dialects accept ANSI
// double-quoting, so one quoting function serves both — the teacher uses
// pq.QuoteIdentifier even though it only targets Postgres; SQLite accepts
// the same quoting style.
func quoteIdent(name string) string {
	return pq.QuoteIdentifier(name)
}

func quoteIdents(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = quoteIdent(n)
	}
	return out
}

// ForwardSQL returns the single forward SQL statement for op under dialect.
func ForwardSQL(op ops.Operation, dialect coltype.Dialect) string {
	switch o := op.(type) {
	case ops.CreateTable:
		return createTableSQL(o)
	case ops.DropTable:
		return fmt.Sprintf("DROP TABLE %s", quoteIdent(o.TableName))
	case ops.RenameTable:
		return fmt.Sprintf("ALTER TABLE %s RENAME TO %s", quoteIdent(o.From), quoteIdent(o.To))
	case ops.AddColumn:
		return addColumnSQL(o)
	case ops.DropColumn:
		return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", quoteIdent(o.TableName), quoteIdent(o.Column))
	case ops.RenameColumn:
		return fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s", quoteIdent(o.TableName), quoteIdent(o.From), quoteIdent(o.To))
	case ops.AlterColumnType:
		return alterColumnTypeSQL(o, dialect)
	case ops.AlterColumnNullable:
		return alterColumnNullableSQL(o, dialect)
	case ops.AlterColumnDefault:
		return alterColumnDefaultSQL(o.TableName, o.Column, o.DefaultValue)
	case ops.AddForeignKey:
		return addForeignKeySQL(o)
	case ops.DropForeignKey:
		return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", quoteIdent(o.TableName), quoteIdent(o.ConstraintName))
	case ops.CreateIndex:
		return createIndexSQL(o)
	case ops.DropIndex:
		return fmt.Sprintf("DROP INDEX %s", quoteIdent(o.IndexName))
	case ops.RawSQL:
		return o.UpSQL
	default:
		panic(fmt.Sprintf("sqlgen: unhandled operation kind %T", op))
	}
}

// ReverseSQL returns the single reverse SQL statement for op under dialect.
func ReverseSQL(op ops.Operation, dialect coltype.Dialect) string {
	switch o := op.(type) {
	case ops.CreateTable:
		return fmt.Sprintf("DROP TABLE %s", quoteIdent(o.TableName))
	case ops.DropTable:
		// The full column list to recreate a dropped table isn't known to
		// a single DropTable operation; a complete reverse would require
		// the table's last-known snapshot, which sqlgen is not given.
		// Emit a descriptive comment instead of guessing at a wrong
		// CREATE TABLE.
		return fmt.Sprintf("-- reverse of dropping table %q requires the prior schema snapshot", o.TableName)
	case ops.RenameTable:
		return fmt.Sprintf("ALTER TABLE %s RENAME TO %s", quoteIdent(o.To), quoteIdent(o.From))
	case ops.AddColumn:
		return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", quoteIdent(o.TableName), quoteIdent(o.Column))
	case ops.DropColumn:
		return dropColumnReverseSQL(o)
	case ops.RenameColumn:
		return fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s", quoteIdent(o.TableName), quoteIdent(o.To), quoteIdent(o.From))
	case ops.AlterColumnType:
		reverse := ops.AlterColumnType{TableName: o.TableName, Column: o.Column, FromType: o.ToType, ToType: o.FromType}
		return alterColumnTypeSQL(reverse, dialect)
	case ops.AlterColumnNullable:
		reverse := ops.AlterColumnNullable{TableName: o.TableName, Column: o.Column, Nullable: !o.Nullable}
		return alterColumnNullableSQL(reverse, dialect)
	case ops.AlterColumnDefault:
		return alterColumnDefaultSQL(o.TableName, o.Column, o.PreviousDefault)
	case ops.AddForeignKey:
		return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", quoteIdent(o.TableName), quoteIdent(o.ConstraintName))
	case ops.DropForeignKey:
		// Symmetric to DropTable: the constraint's definition must be
		// supplied by the caller ahead of time; the runner re-synthesizes
		// an AddForeignKey operation from the previously observed
		// snapshot rather than sqlgen guessing at it here.
		return fmt.Sprintf("-- reverse of dropping foreign key %q requires the prior constraint definition", o.ConstraintName)
	case ops.CreateIndex:
		return fmt.Sprintf("DROP INDEX %s", quoteIdent(o.IndexName))
	case ops.DropIndex:
		return fmt.Sprintf("-- reverse of dropping index %q requires the prior index definition", o.IndexName)
	case ops.RawSQL:
		return o.DownSQL
	default:
		panic(fmt.Sprintf("sqlgen: unhandled operation kind %T", op))
	}
}

// OperationsToUpSQL returns the ordered forward statements for ops.
func OperationsToUpSQL(operations []ops.Operation, dialect coltype.Dialect) []string {
	out := make([]string, len(operations))
	for i, op := range operations {
		out[i] = ForwardSQL(op, dialect)
	}
	return out
}

// OperationsToDownSQL returns the reverse statements for ops, in reverse
// operation order.
func OperationsToDownSQL(operations []ops.Operation, dialect coltype.Dialect) []string {
	out := make([]string, len(operations))
	n := len(operations)
	for i, op := range operations {
		out[n-1-i] = ReverseSQL(op, dialect)
	}
	return out
}

func createTableSQL(o ops.CreateTable) string {
	var parts []string
	var pkCols []string
	for _, c := range o.Columns {
		parts = append(parts, columnDefSQL(c))
		if c.PrimaryKey {
			pkCols = append(pkCols, c.Name)
		}
	}
	if len(pkCols) > 0 {
		parts = append(parts, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(quoteIdents(pkCols), ", ")))
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(o.TableName), strings.Join(parts, ", "))
}

func columnDefSQL(c ops.ColumnDef) string {
	sql := fmt.Sprintf("%s %s", quoteIdent(c.Name), c.Type)
	if !c.Nullable {
		sql += " NOT NULL"
	}
	if c.DefaultValue != nil {
		sql += " DEFAULT " + *c.DefaultValue
	}
	return sql
}

func addColumnSQL(o ops.AddColumn) string {
	sql := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", quoteIdent(o.TableName), quoteIdent(o.Column), o.ColumnType)
	if !o.Nullable {
		sql += " NOT NULL"
	}
	if o.DefaultValue != nil {
		sql += " DEFAULT " + *o.DefaultValue
	}
	return sql
}

func dropColumnReverseSQL(o ops.DropColumn) string {
	sql := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", quoteIdent(o.TableName), quoteIdent(o.Column), o.PreviousType)
	if !o.PreviousNullable {
		sql += " NOT NULL"
	}
	return sql
}

func alterColumnTypeSQL(o ops.AlterColumnType, dialect coltype.Dialect) string {
	if dialect == coltype.SQLite {
		return fmt.Sprintf("-- SQLite does not support ALTER COLUMN TYPE (table %q, column %q)", o.TableName, o.Column)
	}
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s", quoteIdent(o.TableName), quoteIdent(o.Column), o.ToType)
}

func alterColumnNullableSQL(o ops.AlterColumnNullable, dialect coltype.Dialect) string {
	if dialect == coltype.SQLite {
		return fmt.Sprintf("-- SQLite does not support ALTER COLUMN SET/DROP NOT NULL (table %q, column %q)", o.TableName, o.Column)
	}
	if o.Nullable {
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL", quoteIdent(o.TableName), quoteIdent(o.Column))
	}
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL", quoteIdent(o.TableName), quoteIdent(o.Column))
}

func alterColumnDefaultSQL(table, column string, value *string) string {
	if value == nil {
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT", quoteIdent(table), quoteIdent(column))
	}
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s", quoteIdent(table), quoteIdent(column), *value)
}

func addForeignKeySQL(o ops.AddForeignKey) string {
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE %s",
		quoteIdent(o.TableName), quoteIdent(o.ConstraintName), quoteIdent(o.Column),
		quoteIdent(o.ReferencedTable), quoteIdent(o.ReferencedColumn), o.OnDelete)
}

func createIndexSQL(o ops.CreateIndex) string {
	unique := ""
	if o.Unique {
		unique = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)", unique, quoteIdent(o.IndexName), quoteIdent(o.TableName), strings.Join(quoteIdents(o.Columns), ", "))
}
