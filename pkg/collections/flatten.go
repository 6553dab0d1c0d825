// SPDX-License-Identifier: Apache-2.0

package collections

// Flatten walks a field tree and returns the leaf fields that own storage,
// in declaration order. Layout fields (tabs, collapsible, row, and unnamed
// tabs — the latter modeled as a nameless layout-kind Field nested under a
// Tabs field) are skipped and their children hoisted in their place. Named
// tabs are modeled as a Field with Kind == KindGroup, so they're returned
// as a single JSON-storage leaf rather than recursed into (spec.md §4.4,
// §9 design note).
func Flatten(fields []Field) []Field {
	var out []Field
	for _, f := range fields {
		if f.isLayout() {
			out = append(out, Flatten(f.Fields)...)
			continue
		}
		out = append(out, f)
	}
	return out
}
