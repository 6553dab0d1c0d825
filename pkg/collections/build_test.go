// SPDX-License-Identifier: Apache-2.0

package collections

import (
	"testing"

	"github.com/momentum-cms/migrate/pkg/coltype"
	"github.com/momentum-cms/migrate/pkg/schema"
)

func TestBuildAutoColumnsOrder(t *testing.T) {
	cols := []Collection{{Slug: "posts", Fields: []Field{{Name: "title", Kind: KindText, Required: true}}}}

	snap := Build(cols, coltype.Postgres, "2026-01-01T00:00:00Z")
	table := snap.GetTable("posts")
	if table == nil {
		t.Fatal("expected posts table")
	}

	want := []string{"id", "createdAt", "updatedAt", "title"}
	if len(table.Columns) != len(want) {
		t.Fatalf("expected %d columns, got %d: %+v", len(want), len(table.Columns), table.Columns)
	}
	for i, name := range want {
		if table.Columns[i].Name != name {
			t.Fatalf("column %d: expected %q, got %q", i, name, table.Columns[i].Name)
		}
	}
	if !table.Columns[0].IsPrimaryKey {
		t.Fatal("expected id to be primary key")
	}
}

func TestBuildDisableTimestamps(t *testing.T) {
	cols := []Collection{{Slug: "logs", DisableTimestamps: true, Fields: []Field{{Name: "line", Kind: KindText}}}}
	table := Build(cols, coltype.Postgres, "2026-01-01T00:00:00Z").GetTable("logs")
	for _, c := range table.Columns {
		if c.Name == "createdAt" || c.Name == "updatedAt" {
			t.Fatalf("expected timestamps suppressed, found %q", c.Name)
		}
	}
}

func TestBuildRelationshipForeignKeyRequired(t *testing.T) {
	cols := []Collection{
		{Slug: "authors", Fields: []Field{{Name: "name", Kind: KindText}}},
		{
			Slug: "posts",
			Fields: []Field{
				{Name: "author", Kind: KindRelationship, Required: true, Relationship: &RelationshipInfo{RelationTo: "authors"}},
			},
		},
	}

	table := Build(cols, coltype.Postgres, "2026-01-01T00:00:00Z").GetTable("posts")
	if len(table.ForeignKeys) != 1 {
		t.Fatalf("expected 1 foreign key, got %d", len(table.ForeignKeys))
	}
	fk := table.ForeignKeys[0]
	if fk.ConstraintName != "fk_posts_author" || fk.ReferencedTable != "authors" || fk.ReferencedColumn != "id" {
		t.Fatalf("unexpected foreign key: %+v", fk)
	}
	if fk.OnDelete != schema.OnDeleteRestrict {
		t.Fatalf("expected RESTRICT for required relationship with default on-delete, got %q", fk.OnDelete)
	}
}

func TestBuildRelationshipOnDeleteMapping(t *testing.T) {
	cases := []struct {
		name     string
		required bool
		explicit string
		want     string
	}{
		{"required default", true, "", schema.OnDeleteRestrict},
		{"optional default", false, "", schema.OnDeleteSetNull},
		{"explicit cascade", false, "cascade", schema.OnDeleteCascade},
		{"explicit restrict", false, "restrict", schema.OnDeleteRestrict},
		{"required cascade", true, "cascade", schema.OnDeleteCascade},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := onDeleteFor(tc.required, tc.explicit)
			if got != tc.want {
				t.Fatalf("onDeleteFor(%v, %q) = %q, want %q", tc.required, tc.explicit, got, tc.want)
			}
		})
	}
}

func TestBuildPolymorphicRelationshipHasNoForeignKey(t *testing.T) {
	cols := []Collection{
		{Slug: "posts", Fields: []Field{{Name: "title", Kind: KindText}}},
		{Slug: "pages", Fields: []Field{{Name: "title", Kind: KindText}}},
		{
			Slug: "comments",
			Fields: []Field{
				{Name: "parent", Kind: KindRelationship, Relationship: &RelationshipInfo{Polymorphic: true, RelationTo: "posts"}},
			},
		},
	}

	table := Build(cols, coltype.Postgres, "2026-01-01T00:00:00Z").GetTable("comments")
	if len(table.ForeignKeys) != 0 {
		t.Fatalf("expected no foreign keys for polymorphic relationship, got %+v", table.ForeignKeys)
	}
	if table.GetColumn("parent") == nil {
		t.Fatal("expected plain parent column to still be emitted")
	}
}

func TestBuildHasManyRelationshipHasNoForeignKey(t *testing.T) {
	cols := []Collection{
		{Slug: "tags", Fields: []Field{{Name: "name", Kind: KindText}}},
		{
			Slug: "posts",
			Fields: []Field{
				{Name: "tags", Kind: KindRelationship, Relationship: &RelationshipInfo{HasMany: true, RelationTo: "tags"}},
			},
		},
	}

	table := Build(cols, coltype.Postgres, "2026-01-01T00:00:00Z").GetTable("posts")
	if len(table.ForeignKeys) != 0 {
		t.Fatalf("expected no foreign key for to-many relationship, got %+v", table.ForeignKeys)
	}
}

func TestBuildFlattensLayoutFields(t *testing.T) {
	cols := []Collection{
		{
			Slug: "posts",
			Fields: []Field{
				{
					Name: "", Kind: KindTabs,
					Fields: []Field{
						{Name: "", Kind: KindRow, Fields: []Field{
							{Name: "title", Kind: KindText, Required: true},
							{Name: "subtitle", Kind: KindText},
						}},
						{Name: "seo", Kind: KindGroup},
					},
				},
			},
		},
	}

	table := Build(cols, coltype.Postgres, "2026-01-01T00:00:00Z").GetTable("posts")
	for _, name := range []string{"title", "subtitle", "seo"} {
		if table.GetColumn(name) == nil {
			t.Fatalf("expected flattened column %q", name)
		}
	}
	if table.GetColumn("seo").Type != "JSONB" {
		t.Fatalf("expected named group to be stored as JSONB leaf, got %q", table.GetColumn("seo").Type)
	}
}

func TestBuildSoftDeleteIndex(t *testing.T) {
	cols := []Collection{
		{Slug: "posts", SoftDelete: SoftDeleteConfig{Enabled: true}, Fields: []Field{{Name: "title", Kind: KindText}}},
	}
	table := Build(cols, coltype.Postgres, "2026-01-01T00:00:00Z").GetTable("posts")
	if table.GetColumn("deletedAt") == nil {
		t.Fatal("expected default deletedAt column")
	}
	found := false
	for _, idx := range table.Indexes {
		if idx.Name == "idx_posts_deletedAt" {
			found = true
			if idx.Unique {
				t.Fatal("expected soft-delete index to be non-unique")
			}
		}
	}
	if !found {
		t.Fatal("expected soft-delete index to be emitted")
	}
}

func TestBuildExplicitIndexDefaultName(t *testing.T) {
	cols := []Collection{
		{
			Slug:    "posts",
			Fields:  []Field{{Name: "slug", Kind: KindSlug}, {Name: "author", Kind: KindText}},
			Indexes: []IndexConfig{{Columns: []string{"slug", "author"}, Unique: true}},
		},
	}
	table := Build(cols, coltype.Postgres, "2026-01-01T00:00:00Z").GetTable("posts")
	found := false
	for _, idx := range table.Indexes {
		if idx.Name == "idx_posts_slug_author" {
			found = true
			if !idx.Unique {
				t.Fatal("expected explicit index to preserve Unique: true")
			}
		}
	}
	if !found {
		t.Fatal("expected default-named explicit index")
	}
}

func TestBuildVersionsTableOmitsBaseColumns(t *testing.T) {
	cols := []Collection{
		{
			Slug:     "posts",
			Fields:   []Field{{Name: "title", Kind: KindText, Required: true}, {Name: "body", Kind: KindRichText}},
			Versions: VersionsConfig{Enabled: true, Drafts: true},
		},
	}

	snap := Build(cols, coltype.Postgres, "2026-01-01T00:00:00Z")

	base := snap.GetTable("posts")
	if base.GetColumn("_status") == nil {
		t.Fatal("expected _status column on base table when versions.drafts")
	}

	versions := snap.GetTable("posts_versions")
	if versions == nil {
		t.Fatal("expected posts_versions table")
	}
	for _, forbidden := range []string{"title", "body"} {
		if versions.GetColumn(forbidden) != nil {
			t.Fatalf("versions table must not carry flattened base column %q", forbidden)
		}
	}
	for _, want := range []string{"id", "parent", "version", "_status", "autosave", "publishedAt", "createdAt", "updatedAt"} {
		if versions.GetColumn(want) == nil {
			t.Fatalf("expected versions table column %q", want)
		}
	}

	if len(versions.ForeignKeys) != 1 || versions.ForeignKeys[0].ReferencedTable != "posts" {
		t.Fatalf("expected parent foreign key to posts, got %+v", versions.ForeignKeys)
	}
	if versions.ForeignKeys[0].OnDelete != schema.OnDeleteCascade {
		t.Fatalf("expected CASCADE on parent foreign key, got %q", versions.ForeignKeys[0].OnDelete)
	}

	wantIndexes := map[string]bool{
		"idx_posts_versions_parent":    false,
		"idx_posts_versions_status":    false,
		"idx_posts_versions_createdAt": false,
	}
	for _, idx := range versions.Indexes {
		if _, ok := wantIndexes[idx.Name]; ok {
			wantIndexes[idx.Name] = true
		}
	}
	for name, ok := range wantIndexes {
		if !ok {
			t.Fatalf("expected index %q", name)
		}
	}
}

func TestBuildUnresolvableRelationshipTargetHasNoForeignKey(t *testing.T) {
	cols := []Collection{
		{
			Slug: "posts",
			Fields: []Field{
				{Name: "author", Kind: KindRelationship, Relationship: &RelationshipInfo{RelationTo: "ghost-collection"}},
			},
		},
	}
	table := Build(cols, coltype.Postgres, "2026-01-01T00:00:00Z").GetTable("posts")
	if len(table.ForeignKeys) != 0 {
		t.Fatalf("expected no foreign key for unresolvable target, got %+v", table.ForeignKeys)
	}
}

func TestBuildDBNameOverride(t *testing.T) {
	cols := []Collection{{Slug: "posts", DBName: "cms_posts", Fields: []Field{{Name: "title", Kind: KindText}}}}
	snap := Build(cols, coltype.Postgres, "2026-01-01T00:00:00Z")
	if snap.GetTable("cms_posts") == nil {
		t.Fatal("expected table to use dbName override")
	}
	if snap.GetTable("posts") != nil {
		t.Fatal("did not expect a table under the slug when dbName is set")
	}
}
