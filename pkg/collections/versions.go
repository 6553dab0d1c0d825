// SPDX-License-Identifier: Apache-2.0

package collections

import (
	"fmt"

	"github.com/momentum-cms/migrate/pkg/coltype"
	"github.com/momentum-cms/migrate/pkg/schema"
)

// buildVersionsTable builds the `{table}_versions` side table for a
// versioned collection (spec.md §4.4). Per the confirmed Open Question
// (DESIGN.md), it carries only version metadata — parent, version label,
// draft/published status, autosave flag, publish timestamp and its own
// timestamps — and never the flattened base-table columns: a version row
// references its content through `version`, not through a copy of every
// field's column.
func buildVersionsTable(c Collection, dialect coltype.Dialect) schema.TableSnapshot {
	table := c.TableName() + "_versions"
	parentTable := c.TableName()

	falseDefault := "false"
	draftDefault := defaultDraftStatus

	columns := []schema.ColumnSnapshot{
		{Name: "id", Type: coltype.IDType(dialect), Nullable: false, IsPrimaryKey: true},
		{Name: "parent", Type: coltype.IDType(dialect), Nullable: false},
		{Name: "version", Type: coltype.VersionType(dialect), Nullable: false},
		{Name: "_status", Type: coltype.StatusType(dialect), Nullable: false, DefaultValue: &draftDefault},
		{Name: "autosave", Type: coltype.BoolType(dialect), Nullable: false, DefaultValue: &falseDefault},
		{Name: "publishedAt", Type: coltype.TimestampType(dialect), Nullable: true},
		{Name: "createdAt", Type: coltype.TimestampType(dialect), Nullable: false},
		{Name: "updatedAt", Type: coltype.TimestampType(dialect), Nullable: false},
	}

	foreignKeys := []schema.ForeignKeySnapshot{
		{
			ConstraintName:   fmt.Sprintf("fk_%s_parent", table),
			Column:           "parent",
			ReferencedTable:  parentTable,
			ReferencedColumn: "id",
			OnDelete:         schema.OnDeleteCascade,
		},
	}

	indexes := []schema.IndexSnapshot{
		{Name: fmt.Sprintf("idx_%s_parent", table), Columns: []string{"parent"}, Unique: false},
		{Name: fmt.Sprintf("idx_%s_status", table), Columns: []string{"_status"}, Unique: false},
		{Name: fmt.Sprintf("idx_%s_createdAt", table), Columns: []string{"createdAt"}, Unique: false},
	}

	return schema.TableSnapshot{Name: table, Columns: columns, ForeignKeys: foreignKeys, Indexes: indexes}
}
