// SPDX-License-Identifier: Apache-2.0

// Package schema models an in-memory, dialect-normalized snapshot of a
// database schema, built from either declarative collection configs
// ("desired") or live-database introspection ("actual"). Snapshots are
// immutable values: every mutator returns a new *DatabaseSchemaSnapshot
// rather than editing in place, so a snapshot taken mid-diff can't be
// accidentally shared and corrupted by a caller.
package schema

import "github.com/momentum-cms/migrate/pkg/coltype"

// ColumnSnapshot is a single column as captured by introspection or
// produced from config.
type ColumnSnapshot struct {
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	Nullable     bool    `json:"nullable"`
	DefaultValue *string `json:"defaultValue"`
	IsPrimaryKey bool    `json:"isPrimaryKey"`
}

// ForeignKeySnapshot is a single foreign key constraint on a table.
type ForeignKeySnapshot struct {
	ConstraintName   string `json:"constraintName"`
	Column           string `json:"column"`
	ReferencedTable  string `json:"referencedTable"`
	ReferencedColumn string `json:"referencedColumn"`
	OnDelete         string `json:"onDelete"`
}

// Foreign-key ON DELETE actions.
const (
	OnDeleteCascade  = "CASCADE"
	OnDeleteSetNull  = "SET NULL"
	OnDeleteRestrict = "RESTRICT"
	OnDeleteNoAction = "NO ACTION"
)

// IndexSnapshot is a single index on a table. PK-backing indexes and
// FK-auto indexes are never represented here — they're implied by
// ColumnSnapshot.IsPrimaryKey and ForeignKeySnapshot respectively.
type IndexSnapshot struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
}

// TableSnapshot is a single table: its columns, foreign keys and indexes.
type TableSnapshot struct {
	Name        string               `json:"name"`
	Columns     []ColumnSnapshot     `json:"columns"`
	ForeignKeys []ForeignKeySnapshot `json:"foreignKeys"`
	Indexes     []IndexSnapshot      `json:"indexes"`
}

// GetColumn returns the column with the given name, or nil.
func (t *TableSnapshot) GetColumn(name string) *ColumnSnapshot {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// DatabaseSchemaSnapshot is the top-level value type of this package: a
// complete, dialect-tagged, checksummed schema.
type DatabaseSchemaSnapshot struct {
	Dialect    coltype.Dialect  `json:"dialect"`
	Tables     []TableSnapshot  `json:"tables"`
	CapturedAt string           `json:"capturedAt"`
	Checksum   string           `json:"checksum"`
}

// InternalTables are excluded from every snapshot and diff, regardless of
// source.
var InternalTables = map[string]bool{
	"_momentum_migrations": true,
	"_momentum_seeds":      true,
	"_globals":             true,
}

// GetTable returns the table with the given name, or nil.
func (s *DatabaseSchemaSnapshot) GetTable(name string) *TableSnapshot {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// TableNames returns the snapshot's table names, excluding internal
// tables, in the order they were added.
func (s *DatabaseSchemaSnapshot) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for _, t := range s.Tables {
		if InternalTables[t.Name] {
			continue
		}
		names = append(names, t.Name)
	}
	return names
}
