// SPDX-License-Identifier: Apache-2.0

package diff

import (
	"fmt"
	"sort"

	"github.com/momentum-cms/migrate/pkg/coltype"
	"github.com/momentum-cms/migrate/pkg/ops"
	"github.com/momentum-cms/migrate/pkg/schema"
)

// diffColumns implements spec.md §4.5's column diff: rename detection
// first (if enabled), then add/drop for what's left, then in-place alters
// for columns present on both sides.
func diffColumns(result *Result, table string, at, dt schema.TableSnapshot, dialect coltype.Dialect, opt Options) {
	actualCols := make(map[string]schema.ColumnSnapshot, len(at.Columns))
	for _, c := range at.Columns {
		actualCols[c.Name] = c
	}
	desiredCols := make(map[string]schema.ColumnSnapshot, len(dt.Columns))
	for _, c := range dt.Columns {
		desiredCols[c.Name] = c
	}

	var onlyDesired []schema.ColumnSnapshot
	for _, c := range dt.Columns {
		if _, ok := actualCols[c.Name]; !ok {
			onlyDesired = append(onlyDesired, c)
		}
	}
	var onlyActual []schema.ColumnSnapshot
	for _, c := range at.Columns {
		if _, ok := desiredCols[c.Name]; !ok {
			onlyActual = append(onlyActual, c)
		}
	}

	renamed := make(map[string]bool)  // desired column names consumed by a rename
	consumed := make(map[string]bool) // actual column names consumed by a rename

	if opt.DetectRenames {
		for _, newCol := range onlyDesired {
			for _, oldCol := range onlyActual {
				if consumed[oldCol.Name] {
					continue
				}
				if !coltype.AreTypesCompatible(oldCol.Type, newCol.Type, dialect) {
					continue
				}
				result.add(ops.RenameColumn{TableName: table, From: oldCol.Name, To: newCol.Name},
					fmt.Sprintf("Rename column %q to %q on %q", oldCol.Name, newCol.Name, table))
				consumed[oldCol.Name] = true
				renamed[newCol.Name] = true
				break
			}
		}
	}

	for _, c := range onlyDesired {
		if renamed[c.Name] {
			continue
		}
		result.add(ops.AddColumn{
			TableName:    table,
			Column:       c.Name,
			ColumnType:   c.Type,
			Nullable:     c.Nullable,
			DefaultValue: c.DefaultValue,
		}, fmt.Sprintf("Add column %q to %q", c.Name, table))
	}

	for _, c := range onlyActual {
		if consumed[c.Name] {
			continue
		}
		result.add(ops.DropColumn{
			TableName:        table,
			Column:           c.Name,
			PreviousType:     c.Type,
			PreviousNullable: c.Nullable,
		}, fmt.Sprintf("Drop column %q from %q", c.Name, table))
	}

	for _, name := range sortedColumnNames(desiredCols) {
		dc, ok1 := desiredCols[name]
		ac, ok2 := actualCols[name]
		if !ok1 || !ok2 {
			continue
		}

		if !coltype.AreTypesCompatible(ac.Type, dc.Type, dialect) {
			result.add(ops.AlterColumnType{
				TableName: table,
				Column:    name,
				FromType:  ac.Type,
				ToType:    dc.Type,
			}, fmt.Sprintf("Alter column %q on %q to type %s", name, table, dc.Type))
		}

		if ac.Nullable != dc.Nullable {
			result.add(ops.AlterColumnNullable{
				TableName: table,
				Column:    name,
				Nullable:  dc.Nullable,
			}, fmt.Sprintf("Alter column %q on %q nullable=%v", name, table, dc.Nullable))
		}

		if !defaultsEqual(ac.DefaultValue, dc.DefaultValue) {
			result.add(ops.AlterColumnDefault{
				TableName:       table,
				Column:          name,
				DefaultValue:    normalizeDefault(dc.DefaultValue),
				PreviousDefault: normalizeDefault(ac.DefaultValue),
			}, fmt.Sprintf("Alter column %q on %q default", name, table))
		}
	}
}

func sortedColumnNames(m map[string]schema.ColumnSnapshot) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	// Stable, deterministic operation ordering for columns present on both
	// sides; desired-order (as declared) would require threading the
	// original slice through, which isn't needed since these are
	// independent alters, not renames.
	sort.Strings(names)
	return names
}
