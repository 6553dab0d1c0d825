// SPDX-License-Identifier: Apache-2.0

package diff

import (
	"fmt"
	"sort"

	"github.com/momentum-cms/migrate/pkg/ops"
	"github.com/momentum-cms/migrate/pkg/schema"
)

// diffIndexes implements spec.md §4.5's index diff: keyed by name, any
// difference in uniqueness or an order-sensitive column-list mismatch is a
// drop+create.
func diffIndexes(result *Result, table string, at, dt schema.TableSnapshot) {
	actualIdx := make(map[string]schema.IndexSnapshot, len(at.Indexes))
	for _, idx := range at.Indexes {
		actualIdx[idx.Name] = idx
	}
	desiredIdx := make(map[string]schema.IndexSnapshot, len(dt.Indexes))
	for _, idx := range dt.Indexes {
		desiredIdx[idx.Name] = idx
	}

	for _, idx := range dt.Indexes {
		if _, ok := actualIdx[idx.Name]; !ok {
			result.add(ops.CreateIndex{TableName: table, IndexName: idx.Name, Columns: idx.Columns, Unique: idx.Unique},
				fmt.Sprintf("Create index %q on %q", idx.Name, table))
		}
	}

	for _, idx := range at.Indexes {
		if _, ok := desiredIdx[idx.Name]; !ok {
			result.add(ops.DropIndex{TableName: table, IndexName: idx.Name},
				fmt.Sprintf("Drop index %q on %q", idx.Name, table))
		}
	}

	names := make([]string, 0, len(actualIdx))
	for name := range actualIdx {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ai := actualIdx[name]
		di, ok := desiredIdx[name]
		if !ok {
			continue
		}
		if ai.Unique != di.Unique || !columnsEqual(ai.Columns, di.Columns) {
			result.add(ops.DropIndex{TableName: table, IndexName: name},
				fmt.Sprintf("Drop index %q on %q", name, table))
			result.add(ops.CreateIndex{TableName: table, IndexName: di.Name, Columns: di.Columns, Unique: di.Unique},
				fmt.Sprintf("Create index %q on %q", name, table))
		}
	}
}

func columnsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
