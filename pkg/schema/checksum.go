// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/momentum-cms/migrate/pkg/coltype"
)

// New builds a snapshot from an unordered table list, computing its
// checksum. capturedAt is an ISO-8601 timestamp supplied by the caller
// (this package never reads the clock, so construction stays deterministic
// and testable).
func New(dialect coltype.Dialect, tables []TableSnapshot, capturedAt string) *DatabaseSchemaSnapshot {
	s := &DatabaseSchemaSnapshot{
		Dialect:    dialect,
		Tables:     tables,
		CapturedAt: capturedAt,
	}
	s.Checksum = computeChecksum(s)
	return s
}

// Recompute recalculates and updates the checksum in place, for callers
// that build a snapshot incrementally.
func (s *DatabaseSchemaSnapshot) Recompute() {
	s.Checksum = computeChecksum(s)
}

// computeChecksum is SHA-256 over a canonicalized JSON representation:
// tables sorted by name, and within each table, columns/FKs/indexes sorted
// by name. capturedAt is never part of the hashed representation, so two
// snapshots captured at different times but with identical tables hash
// identically (invariant 1, spec.md §8).
func computeChecksum(s *DatabaseSchemaSnapshot) string {
	canon := canonicalize(s.Tables)
	b, err := json.Marshal(canon)
	if err != nil {
		// Marshaling a canonicalTable slice of plain value types cannot
		// fail; a panic here would indicate a programming error in this
		// package, not bad input.
		panic("schema: failed to marshal canonical representation: " + err.Error())
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// canonicalTable/Column/etc. mirror the public types but with deterministic
// field ordering guaranteed by slice sorting rather than relying on
// encoding/json's (stable, but irrelevant) struct field order.
type canonicalTable struct {
	Name        string               `json:"name"`
	Columns     []ColumnSnapshot     `json:"columns"`
	ForeignKeys []ForeignKeySnapshot `json:"foreignKeys"`
	Indexes     []IndexSnapshot      `json:"indexes"`
}

func canonicalize(tables []TableSnapshot) []canonicalTable {
	out := make([]canonicalTable, 0, len(tables))
	for _, t := range tables {
		if InternalTables[t.Name] {
			continue
		}

		cols := append([]ColumnSnapshot(nil), t.Columns...)
		sort.Slice(cols, func(i, j int) bool { return cols[i].Name < cols[j].Name })

		fks := append([]ForeignKeySnapshot(nil), t.ForeignKeys...)
		sort.Slice(fks, func(i, j int) bool { return fks[i].ConstraintName < fks[j].ConstraintName })

		idxs := append([]IndexSnapshot(nil), t.Indexes...)
		sort.Slice(idxs, func(i, j int) bool { return idxs[i].Name < idxs[j].Name })

		out = append(out, canonicalTable{
			Name:        t.Name,
			Columns:     cols,
			ForeignKeys: fks,
			Indexes:     idxs,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
