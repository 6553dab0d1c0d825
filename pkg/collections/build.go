// SPDX-License-Identifier: Apache-2.0

package collections

import (
	"fmt"
	"strings"

	"github.com/momentum-cms/migrate/pkg/coltype"
	"github.com/momentum-cms/migrate/pkg/schema"
)

// defaultDraftStatus is the `_status` column's default for both the base
// table (when versions.drafts) and the versions table.
const defaultDraftStatus = "'draft'"

// Build lowers a collection list into a desired DatabaseSchemaSnapshot.
//
// Relationship fields hold a reference to their target collection by slug,
// which can form a cycle when two collections reference each other
// (spec.md §9). Rather than modeling that as pointers — which a cyclic
// graph in Go would need a lazy thunk or a post-construction fixup for —
// this builds a nameBySlug lookup first, then resolves every relationship
// field's foreign key against it in a second pass. No step here mutates a
// collection or holds a pointer into another collection's data; foreign
// keys carry table/column names, never references.
func Build(cols []Collection, dialect coltype.Dialect, capturedAt string) *schema.DatabaseSchemaSnapshot {
	nameBySlug := make(map[string]string, len(cols))
	for _, c := range cols {
		nameBySlug[c.Slug] = c.TableName()
	}

	var tables []schema.TableSnapshot
	for _, c := range cols {
		tables = append(tables, buildTable(c, nameBySlug, dialect))
		if c.Versions.Enabled {
			tables = append(tables, buildVersionsTable(c, dialect))
		}
	}

	return schema.New(dialect, tables, capturedAt)
}

func buildTable(c Collection, nameBySlug map[string]string, dialect coltype.Dialect) schema.TableSnapshot {
	table := c.TableName()

	columns := autoColumns(c, dialect)

	for _, f := range Flatten(c.Fields) {
		columns = append(columns, fieldColumn(f, dialect))
	}

	t := schema.TableSnapshot{Name: table, Columns: columns}

	for _, f := range Flatten(c.Fields) {
		if f.Kind != KindRelationship || f.Relationship == nil {
			continue
		}
		fk, ok := relationshipForeignKey(table, f, nameBySlug)
		if ok {
			t.ForeignKeys = append(t.ForeignKeys, fk)
		}
	}

	if c.SoftDelete.Enabled {
		sdField := c.softDeleteField()
		t.Indexes = append(t.Indexes, schema.IndexSnapshot{
			Name:    fmt.Sprintf("idx_%s_%s", table, sdField),
			Columns: []string{sdField},
			Unique:  false,
		})
	}

	for _, idx := range c.Indexes {
		name := idx.Name
		if name == "" {
			name = fmt.Sprintf("idx_%s_%s", table, strings.Join(idx.Columns, "_"))
		}
		t.Indexes = append(t.Indexes, schema.IndexSnapshot{Name: name, Columns: idx.Columns, Unique: idx.Unique})
	}

	return t
}

func autoColumns(c Collection, dialect coltype.Dialect) []schema.ColumnSnapshot {
	columns := []schema.ColumnSnapshot{
		{Name: "id", Type: coltype.IDType(dialect), Nullable: false, IsPrimaryKey: true},
	}

	if !c.DisableTimestamps {
		columns = append(columns,
			schema.ColumnSnapshot{Name: "createdAt", Type: coltype.TimestampType(dialect), Nullable: false},
			schema.ColumnSnapshot{Name: "updatedAt", Type: coltype.TimestampType(dialect), Nullable: false},
		)
	}

	if c.Versions.Enabled && c.Versions.Drafts {
		def := defaultDraftStatus
		columns = append(columns, schema.ColumnSnapshot{
			Name: "_status", Type: coltype.StatusType(dialect), Nullable: false, DefaultValue: &def,
		})
	}

	if c.SoftDelete.Enabled {
		columns = append(columns, schema.ColumnSnapshot{
			Name: c.softDeleteField(), Type: coltype.TimestampType(dialect), Nullable: true,
		})
	}

	return columns
}

func fieldColumn(f Field, dialect coltype.Dialect) schema.ColumnSnapshot {
	return schema.ColumnSnapshot{
		Name:     f.Name,
		Type:     coltype.SQLType(coltype.FieldType(f.Kind), dialect),
		Nullable: !f.Required,
	}
}

// relationshipForeignKey implements spec.md §4.4's foreign-key emission
// rule: single-valued, non-polymorphic relationship fields that resolve to
// a known collection get a foreign key; everything else (to-many,
// polymorphic, or an unresolvable target) gets only the plain column
// fieldColumn already emitted, with no referential integrity (spec.md §9
// "Open question — polymorphic relationships", confirmed).
func relationshipForeignKey(table string, f Field, nameBySlug map[string]string) (schema.ForeignKeySnapshot, bool) {
	r := f.Relationship
	if r.HasMany || r.Polymorphic {
		return schema.ForeignKeySnapshot{}, false
	}

	refTable, ok := nameBySlug[r.RelationTo]
	if !ok {
		return schema.ForeignKeySnapshot{}, false
	}

	return schema.ForeignKeySnapshot{
		ConstraintName:   fmt.Sprintf("fk_%s_%s", table, f.Name),
		Column:           f.Name,
		ReferencedTable:  refTable,
		ReferencedColumn: "id",
		OnDelete:         onDeleteFor(f.Required, r.OnDelete),
	}, true
}

func onDeleteFor(required bool, explicit string) string {
	switch strings.ToLower(explicit) {
	case "cascade":
		return schema.OnDeleteCascade
	case "restrict":
		return schema.OnDeleteRestrict
	case "":
		if required {
			return schema.OnDeleteRestrict
		}
		return schema.OnDeleteSetNull
	default:
		return schema.OnDeleteSetNull
	}
}
