// SPDX-License-Identifier: Apache-2.0

package coltype

// FieldType is the tagged variant of a declarative collection field, as
// produced by the collection-config layer (external to this module). Only
// the storage-relevant variants are enumerated here; presentation-only
// layout fields (tabs, collapsible, row) never reach this map because
// pkg/collections flattens them away before columns are built.
type FieldType string

const (
	FieldText         FieldType = "text"
	FieldTextarea     FieldType = "textarea"
	FieldRichText     FieldType = "richText"
	FieldEmail        FieldType = "email"
	FieldSlug         FieldType = "slug"
	FieldSelect       FieldType = "select"
	FieldNumber       FieldType = "number"
	FieldCheckbox     FieldType = "checkbox"
	FieldDate         FieldType = "date"
	FieldRelationship FieldType = "relationship"
	FieldUpload       FieldType = "upload"
	FieldArray        FieldType = "array"
	FieldGroup        FieldType = "group"
	FieldBlocks       FieldType = "blocks"
	FieldJSON         FieldType = "json"
)

// sqlType is the mapping table of SPEC_FULL.md §4.1, keyed by field type
// then dialect.
var sqlType = map[FieldType]map[Dialect]string{
	FieldText:         {Postgres: "TEXT", SQLite: "TEXT"},
	FieldTextarea:     {Postgres: "TEXT", SQLite: "TEXT"},
	FieldRichText:     {Postgres: "TEXT", SQLite: "TEXT"},
	FieldEmail:        {Postgres: "VARCHAR(255)", SQLite: "TEXT"},
	FieldSlug:         {Postgres: "VARCHAR(255)", SQLite: "TEXT"},
	FieldSelect:       {Postgres: "VARCHAR(255)", SQLite: "TEXT"},
	FieldNumber:       {Postgres: "NUMERIC", SQLite: "REAL"},
	FieldCheckbox:     {Postgres: "BOOLEAN", SQLite: "INTEGER"},
	FieldDate:         {Postgres: "TIMESTAMPTZ", SQLite: "TEXT"},
	FieldRelationship: {Postgres: "VARCHAR(36)", SQLite: "TEXT"},
	FieldUpload:       {Postgres: "VARCHAR(36)", SQLite: "TEXT"},
	FieldArray:        {Postgres: "JSONB", SQLite: "TEXT"},
	FieldGroup:        {Postgres: "JSONB", SQLite: "TEXT"},
	FieldBlocks:       {Postgres: "JSONB", SQLite: "TEXT"},
	FieldJSON:         {Postgres: "JSONB", SQLite: "TEXT"},
}

// SQLType returns the raw column type for a field type under the given
// dialect. Unknown field types fall back to the dialect's generic text type,
// matching the teacher's permissive handling of unrecognized column
// definitions rather than panicking deep inside schema construction.
func SQLType(ft FieldType, d Dialect) string {
	if byDialect, ok := sqlType[ft]; ok {
		if t, ok := byDialect[d]; ok {
			return t
		}
	}
	if d == Postgres {
		return "TEXT"
	}
	return "TEXT"
}

// IDType is the type of the auto-generated id/foreign-key columns.
func IDType(d Dialect) string {
	if d == Postgres {
		return "VARCHAR(36)"
	}
	return "TEXT"
}

// TimestampType is the type used for createdAt/updatedAt/publishedAt/
// soft-delete columns.
func TimestampType(d Dialect) string {
	if d == Postgres {
		return "TIMESTAMPTZ"
	}
	return "TEXT"
}

// StatusType is the type used for the `_status` draft/published column.
func StatusType(d Dialect) string {
	if d == Postgres {
		return "VARCHAR(20)"
	}
	return "TEXT"
}

// VersionType is the type used for the versions table's `version` column.
func VersionType(d Dialect) string {
	return "TEXT"
}

// BoolType is the type used for boolean flags such as `autosave`.
func BoolType(d Dialect) string {
	if d == Postgres {
		return "BOOLEAN"
	}
	return "INTEGER"
}
