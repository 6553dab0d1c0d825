// SPDX-License-Identifier: Apache-2.0

// Package collections builds a desired DatabaseSchemaSnapshot from
// declarative collection configs — the external, higher-level data model
// that this module's callers author their data shape in. There is no
// direct teacher analogue (xataio/pgroll has no notion of a "collection";
// migrations are authored as operations directly) so this package is
// grounded on pkg/coltype for field->column type mapping and on
// pkg/schema's value types for its output shape, per DESIGN.md.
package collections

// FieldKind tags a field's storage behavior. Layout kinds (tabs,
// collapsible, row, unnamed tabs) carry nested fields but never own
// storage themselves — Flatten hoists their children up to the table
// level instead of emitting a column for the layout field itself.
type FieldKind string

const (
	KindText         FieldKind = "text"
	KindTextarea     FieldKind = "textarea"
	KindRichText     FieldKind = "richText"
	KindEmail        FieldKind = "email"
	KindSlug         FieldKind = "slug"
	KindSelect       FieldKind = "select"
	KindNumber       FieldKind = "number"
	KindCheckbox     FieldKind = "checkbox"
	KindDate         FieldKind = "date"
	KindRelationship FieldKind = "relationship"
	KindUpload       FieldKind = "upload"
	KindArray        FieldKind = "array"
	KindGroup        FieldKind = "group"
	KindBlocks       FieldKind = "blocks"
	KindJSON         FieldKind = "json"

	// Layout kinds — presentation-only containers.
	KindTabs        FieldKind = "tabs"
	KindCollapsible FieldKind = "collapsible"
	KindRow         FieldKind = "row"
)

// layoutKinds are flattened away by Flatten rather than producing a
// column of their own.
var layoutKinds = map[FieldKind]bool{
	KindTabs:        true,
	KindCollapsible: true,
	KindRow:         true,
}

// RelationshipInfo carries the attributes of a `relationship` field that
// matter for schema construction: whether it can hold many targets,
// whether it's polymorphic (points at a set of possible collections rather
// than one named collection), which collection it targets when it isn't,
// and the on-delete behavior hints from the config.
type RelationshipInfo struct {
	// HasMany marks a to-many relationship; single-valued relationships
	// (HasMany == false) are the only ones eligible for a foreign key
	// per spec.md §4.4(a).
	HasMany bool `yaml:"hasMany,omitempty"`

	// Polymorphic marks a field whose `relationTo` names a set of
	// possible collections rather than one — spec.md §9's "Open question
	// — polymorphic relationships": such fields never get a foreign key,
	// only a plain string column, since a single FK can't reference more
	// than one target table.
	Polymorphic bool `yaml:"polymorphic,omitempty"`

	// RelationTo is the target collection's slug when not polymorphic.
	RelationTo string `yaml:"relationTo,omitempty"`

	// OnDelete is the config-declared on-delete hint: "", "cascade" or
	// "restrict". An empty string with Required == false means the
	// default SET NULL behavior of spec.md §4.4.
	OnDelete string `yaml:"onDelete,omitempty"`
}

// Field is one node of a collection's (possibly nested) field tree.
// Tagged for gopkg.in/yaml.v3, matching Collection.
type Field struct {
	Name     string    `yaml:"name"`
	Kind     FieldKind `yaml:"type"`
	Required bool      `yaml:"required,omitempty"`

	// Fields holds children for layout kinds (Tabs/Collapsible/Row) and
	// for an unnamed tab within a Tabs field. Named tabs are themselves
	// represented as a Field with Kind == KindGroup (spec.md §4.4: "Named
	// tabs are treated as a group (JSON storage)").
	Fields []Field `yaml:"fields,omitempty"`

	// Relationship is populated when Kind == KindRelationship.
	Relationship *RelationshipInfo `yaml:"relationship,omitempty"`
}

// isLayout reports whether f is a presentation-only container that
// contributes no column of its own.
func (f Field) isLayout() bool {
	return layoutKinds[f.Kind]
}
