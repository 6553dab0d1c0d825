// SPDX-License-Identifier: Apache-2.0

package diff

import (
	"fmt"
	"sort"

	"github.com/momentum-cms/migrate/pkg/ops"
	"github.com/momentum-cms/migrate/pkg/schema"
)

// diffForeignKeys implements spec.md §4.5's FK diff: keyed by
// constraintName, any difference in column/referencedTable/
// referencedColumn/onDelete is a drop+add (no in-place alter — Postgres
// and SQLite both require this for foreign keys).
func diffForeignKeys(result *Result, table string, at, dt schema.TableSnapshot) {
	actualFKs := make(map[string]schema.ForeignKeySnapshot, len(at.ForeignKeys))
	for _, fk := range at.ForeignKeys {
		actualFKs[fk.ConstraintName] = fk
	}
	desiredFKs := make(map[string]schema.ForeignKeySnapshot, len(dt.ForeignKeys))
	for _, fk := range dt.ForeignKeys {
		desiredFKs[fk.ConstraintName] = fk
	}

	for _, fk := range dt.ForeignKeys {
		if _, ok := actualFKs[fk.ConstraintName]; !ok {
			result.add(ops.AddForeignKey{
				TableName:        table,
				ConstraintName:   fk.ConstraintName,
				Column:           fk.Column,
				ReferencedTable:  fk.ReferencedTable,
				ReferencedColumn: fk.ReferencedColumn,
				OnDelete:         fk.OnDelete,
			}, fmt.Sprintf("Add foreign key %q on %q", fk.ConstraintName, table))
		}
	}

	for _, fk := range at.ForeignKeys {
		if _, ok := desiredFKs[fk.ConstraintName]; !ok {
			result.add(ops.DropForeignKey{TableName: table, ConstraintName: fk.ConstraintName},
				fmt.Sprintf("Drop foreign key %q on %q", fk.ConstraintName, table))
		}
	}

	names := make([]string, 0, len(actualFKs))
	for name := range actualFKs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		af := actualFKs[name]
		df, ok := desiredFKs[name]
		if !ok {
			continue
		}
		if af.Column != df.Column || af.ReferencedTable != df.ReferencedTable ||
			af.ReferencedColumn != df.ReferencedColumn || af.OnDelete != df.OnDelete {
			result.add(ops.DropForeignKey{TableName: table, ConstraintName: name},
				fmt.Sprintf("Drop foreign key %q on %q", name, table))
			result.add(ops.AddForeignKey{
				TableName:        table,
				ConstraintName:   df.ConstraintName,
				Column:           df.Column,
				ReferencedTable:  df.ReferencedTable,
				ReferencedColumn: df.ReferencedColumn,
				OnDelete:         df.OnDelete,
			}, fmt.Sprintf("Add foreign key %q on %q", name, table))
		}
	}
}
