// SPDX-License-Identifier: Apache-2.0

package collections

// IndexConfig is an explicit, collection-level index declaration.
type IndexConfig struct {
	Name    string `yaml:"name,omitempty"` // defaults to idx_{table}_{cols joined by _} when empty
	Columns []string `yaml:"columns"`
	Unique  bool     `yaml:"unique,omitempty"`
}

// VersionsConfig enables the `{table}_versions` side table of spec.md
// §4.4. Drafts is versions.drafts: emitting the `_status` column on the
// base table.
type VersionsConfig struct {
	Enabled bool `yaml:"enabled,omitempty"`
	Drafts  bool `yaml:"drafts,omitempty"`
}

// SoftDeleteConfig enables a nullable soft-delete timestamp column plus
// its supporting index.
type SoftDeleteConfig struct {
	Enabled bool `yaml:"enabled,omitempty"`
	// Field defaults to "deletedAt" when empty.
	Field string `yaml:"field,omitempty"`
}

// Collection is one declarative collection config: the external,
// higher-level shape this package lowers into a DatabaseSchemaSnapshot
// table (plus, when versioned, a second `_versions` table). Tagged for
// gopkg.in/yaml.v3 so pkg/collections.Load can read it directly from the
// collections config file passed to the generate command's --collections
// flag.
type Collection struct {
	Slug   string `yaml:"slug"`
	DBName string `yaml:"dbName,omitempty"` // table name override; falls back to Slug when empty

	Fields []Field `yaml:"fields"`

	DisableTimestamps bool             `yaml:"disableTimestamps,omitempty"` // suppresses createdAt/updatedAt when true
	Versions          VersionsConfig   `yaml:"versions,omitempty"`
	SoftDelete        SoftDeleteConfig `yaml:"softDelete,omitempty"`
	Indexes           []IndexConfig    `yaml:"indexes,omitempty"`
}

// TableName is dbName if set, otherwise slug, per spec.md §4.4.
func (c Collection) TableName() string {
	if c.DBName != "" {
		return c.DBName
	}
	return c.Slug
}

func (c Collection) softDeleteField() string {
	if c.SoftDelete.Field != "" {
		return c.SoftDelete.Field
	}
	return "deletedAt"
}
