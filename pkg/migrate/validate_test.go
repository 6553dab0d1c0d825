// SPDX-License-Identifier: Apache-2.0

package migrate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/momentum-cms/migrate/pkg/coltype"
	"github.com/momentum-cms/migrate/pkg/loader"
	"github.com/momentum-cms/migrate/pkg/ops"
)

func writeEmptyMigrationFile(t *testing.T, dir, name string) {
	t.Helper()
	path := filepath.Join(dir, name+".go")
	if err := os.WriteFile(path, []byte("package migrations\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestValidateMigrationsDirCleanWhenNoDangerousOperations(t *testing.T) {
	dir := t.TempDir()
	name := "20260101000000_safe_validate"
	loader.Register(name, fakeMigration{
		meta: loader.Meta{
			Name:       name,
			Operations: []ops.Operation{ops.CreateTable{TableName: "widgets"}},
		},
	})
	writeEmptyMigrationFile(t, dir, name)

	result, err := ValidateMigrationsDir(dir, coltype.Postgres)
	if err != nil {
		t.Fatal(err)
	}
	if result.Danger != nil && result.Danger.HasErrors {
		t.Fatalf("expected a clean validation, got %+v", result.Danger)
	}
}

func TestValidateMigrationsDirFlagsDangerousOperations(t *testing.T) {
	dir := t.TempDir()
	name := "20260101000001_dangerous_validate"
	loader.Register(name, fakeMigration{
		meta: loader.Meta{
			Name:       name,
			Operations: []ops.Operation{ops.DropTable{TableName: "widgets"}},
		},
	})
	writeEmptyMigrationFile(t, dir, name)

	result, err := ValidateMigrationsDir(dir, coltype.Postgres)
	if err != nil {
		t.Fatal(err)
	}
	if result.Danger == nil || !result.Danger.HasErrors {
		t.Fatalf("expected dropping a table to be flagged as an error, got %+v", result)
	}
}

func TestValidateMigrationsDirOnEmptyDirectory(t *testing.T) {
	result, err := ValidateMigrationsDir(t.TempDir(), coltype.Postgres)
	if err != nil {
		t.Fatal(err)
	}
	if result.Danger != nil {
		t.Fatalf("expected no danger report for an empty directory, got %+v", result.Danger)
	}
}
