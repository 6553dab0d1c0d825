// SPDX-License-Identifier: Apache-2.0

package collections

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCollectionsConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "collections.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadParsesCollectionsAndFields(t *testing.T) {
	path := writeCollectionsConfig(t, `
collections:
  - slug: posts
    fields:
      - name: title
        type: text
        required: true
      - name: author
        type: relationship
        relationship:
          relationTo: users
          hasMany: false
  - slug: users
    disableTimestamps: true
`)

	cols, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cols) != 2 {
		t.Fatalf("expected 2 collections, got %d", len(cols))
	}
	if cols[0].Slug != "posts" || len(cols[0].Fields) != 2 {
		t.Fatalf("expected posts with 2 fields, got %+v", cols[0])
	}
	if cols[0].Fields[1].Relationship == nil || cols[0].Fields[1].Relationship.RelationTo != "users" {
		t.Fatalf("expected the author field's relationship to target users, got %+v", cols[0].Fields[1])
	}
	if !cols[1].DisableTimestamps {
		t.Fatalf("expected users to have timestamps disabled, got %+v", cols[1])
	}
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}
