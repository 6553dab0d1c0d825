// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"encoding/json"

	"github.com/momentum-cms/migrate/pkg/coltype"
)

// Serialize produces the canonical, human-readable (tab-indented) JSON
// representation of a snapshot, suitable for writing to `.snapshot.json`.
func Serialize(s *DatabaseSchemaSnapshot) ([]byte, error) {
	return json.MarshalIndent(s, "", "\t")
}

// rawSnapshot mirrors DatabaseSchemaSnapshot but with a raw dialect string,
// so Parse can give a precise InvalidSnapshotError instead of the opaque
// error encoding/json would produce for an invalid Dialect value.
type rawSnapshot struct {
	Dialect    string          `json:"dialect"`
	Tables     []TableSnapshot `json:"tables"`
	CapturedAt string          `json:"capturedAt"`
	Checksum   string          `json:"checksum"`
}

// Parse decodes and validates snapshot JSON, returning InvalidSnapshotError
// when required fields are missing or the dialect is unknown.
func Parse(data []byte) (*DatabaseSchemaSnapshot, error) {
	var raw rawSnapshot
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, InvalidSnapshotError{Reason: err.Error()}
	}

	if raw.Dialect == "" {
		return nil, InvalidSnapshotError{Reason: "missing dialect"}
	}
	dialect, err := coltype.ParseDialect(raw.Dialect)
	if err != nil {
		return nil, InvalidSnapshotError{Reason: err.Error()}
	}

	if raw.CapturedAt == "" {
		return nil, InvalidSnapshotError{Reason: "missing capturedAt"}
	}

	if raw.Checksum == "" {
		return nil, InvalidSnapshotError{Reason: "missing checksum"}
	}

	for _, t := range raw.Tables {
		if t.Name == "" {
			return nil, InvalidSnapshotError{Reason: "table with empty name"}
		}
	}

	return &DatabaseSchemaSnapshot{
		Dialect:    dialect,
		Tables:     raw.Tables,
		CapturedAt: raw.CapturedAt,
		Checksum:   raw.Checksum,
	}, nil
}

// VerifyChecksum recomputes the checksum over s's tables and reports
// whether it matches s.Checksum. Drift detection (migrate.CheckDrift) does
// not call it; it compares the recorded checksum with a fresh
// introspection's instead.
func VerifyChecksum(s *DatabaseSchemaSnapshot) bool {
	return computeChecksum(s) == s.Checksum
}
