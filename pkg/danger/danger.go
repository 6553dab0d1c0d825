// SPDX-License-Identifier: Apache-2.0

// Package danger classifies operation lists by risk and gates execution.
// No single teacher operation maps one-to-one to this package (pgroll's
// expand/contract model sidesteps several of these risks structurally —
// e.g. its OpAddColumn always backfills via a trigger before a NOT NULL
// constraint is validated) but the conditions themselves are grounded in
// what the teacher's own Validate() methods already guard against.
package danger

import (
	"fmt"
	"sort"

	"github.com/momentum-cms/migrate/pkg/coltype"
	"github.com/momentum-cms/migrate/pkg/ops"
)

// Severity ranks a DangerWarning. Lower values sort first.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// Warning describes a single classified risk attached to an operation.
type Warning struct {
	Severity       Severity
	Operation      ops.Operation
	OperationIndex int
	Message        string
	Suggestion     string
}

// Report is the result of classifying an operation list.
type Report struct {
	Warnings  []Warning
	HasErrors bool
}

// Detect classifies every operation in operations and returns a Report
// sorted by severity (error < warning < info), per spec.md §4.7.
func Detect(operations []ops.Operation, dialect coltype.Dialect) *Report {
	report := &Report{}

	for i, op := range operations {
		for _, w := range classify(op, i, dialect) {
			report.Warnings = append(report.Warnings, w)
			if w.Severity == SeverityError {
				report.HasErrors = true
			}
		}
	}

	sort.SliceStable(report.Warnings, func(i, j int) bool {
		return report.Warnings[i].Severity < report.Warnings[j].Severity
	})

	return report
}

func classify(op ops.Operation, index int, dialect coltype.Dialect) []Warning {
	switch o := op.(type) {
	case ops.DropTable:
		return []Warning{{
			Severity: SeverityError, Operation: op, OperationIndex: index,
			Message:    fmt.Sprintf("dropping table %q is irrecoverable data loss", o.TableName),
			Suggestion: "export or archive the table's data before running this migration",
		}}

	case ops.DropColumn:
		return []Warning{{
			Severity: SeverityWarning, Operation: op, OperationIndex: index,
			Message:    fmt.Sprintf("dropping column %q on %q discards its data", o.Column, o.TableName),
			Suggestion: "back up the column's data before running this migration",
		}}

	case ops.AddColumn:
		if !o.Nullable && o.DefaultValue == nil {
			return []Warning{{
				Severity: SeverityError, Operation: op, OperationIndex: index,
				Message:    fmt.Sprintf("adding NOT NULL column %q to %q without a default fails on a non-empty table", o.Column, o.TableName),
				Suggestion: "add a DEFAULT, or backfill the column before adding the NOT NULL constraint",
			}}
		}
		return nil

	case ops.AlterColumnNullable:
		if !o.Nullable {
			return []Warning{{
				Severity: SeverityWarning, Operation: op, OperationIndex: index,
				Message:    fmt.Sprintf("making %q on %q NOT NULL fails if any row currently has a NULL there", o.Column, o.TableName),
				Suggestion: "backfill NULL values in the column before running this migration",
			}}
		}
		return nil

	case ops.AlterColumnType:
		return classifyAlterColumnType(o, index, dialect)

	case ops.RenameColumn:
		return []Warning{{
			Severity: SeverityWarning, Operation: op, OperationIndex: index,
			Message:    fmt.Sprintf("renaming column %q to %q on %q may break existing callers", o.From, o.To, o.TableName),
			Suggestion: "update application code and in-flight queries to use the new column name",
		}}

	case ops.RenameTable:
		return []Warning{{
			Severity: SeverityWarning, Operation: op, OperationIndex: index,
			Message:    fmt.Sprintf("renaming table %q to %q may break existing callers", o.From, o.To),
			Suggestion: "update application code and in-flight queries to use the new table name",
		}}

	case ops.AddForeignKey:
		if dialect == coltype.Postgres {
			return []Warning{{
				Severity: SeverityInfo, Operation: op, OperationIndex: index,
				Message:    fmt.Sprintf("adding foreign key %q on %q takes an ACCESS EXCLUSIVE lock while validating", o.ConstraintName, o.TableName),
				Suggestion: "add the constraint NOT VALID and VALIDATE it separately to avoid a long-held lock",
			}}
		}
		return nil

	case ops.CreateIndex:
		if dialect == coltype.Postgres {
			return []Warning{{
				Severity: SeverityInfo, Operation: op, OperationIndex: index,
				Message:    fmt.Sprintf("creating index %q on %q holds a write lock on the table for the duration of the build", o.IndexName, o.TableName),
				Suggestion: "use CREATE INDEX CONCURRENTLY outside of this migration's transaction for large tables",
			}}
		}
		return nil

	default:
		return nil
	}
}

func classifyAlterColumnType(o ops.AlterColumnType, index int, dialect coltype.Dialect) []Warning {
	if dialect == coltype.SQLite {
		return []Warning{{
			Severity: SeverityError, Operation: o, OperationIndex: index,
			Message:    fmt.Sprintf("SQLite does not support altering the type of column %q on %q", o.Column, o.TableName),
			Suggestion: "use the add-copy-drop column helper instead of an in-place type change",
		}}
	}

	if coltype.IsLossyConversion(o.FromType, o.ToType, dialect) {
		return []Warning{{
			Severity: SeverityWarning, Operation: o, OperationIndex: index,
			Message:    fmt.Sprintf("converting %q on %q from %s to %s may lose or truncate data", o.Column, o.TableName, o.FromType, o.ToType),
			Suggestion: "verify existing values fit the new type before running this migration",
		}}
	}

	if !coltype.SameFamily(o.FromType, o.ToType, dialect) {
		return []Warning{{
			Severity: SeverityInfo, Operation: o, OperationIndex: index,
			Message:    fmt.Sprintf("changing %q on %q from %s to %s rewrites the table", o.Column, o.TableName, o.FromType, o.ToType),
			Suggestion: "expect this to be slow on large tables; consider running during low traffic",
		}}
	}

	return nil
}
