// SPDX-License-Identifier: Apache-2.0

// Package loader discovers migration files on disk, matches them against
// a compiled-in registry of implementations, and reads/writes the schema
// snapshot file. Grounded on the teacher's pkg/migrations/migrations.go
// (RawMigration/Migration load-and-validate shape), adapted for a compiled
// language: Go has no dynamic module loading, so migrations are ordinary
// Go source files that self-register into a package-level registry via
// init(), the same indirection database/sql itself uses for drivers. Load
// then cross-checks that registry against the migrations directory's
// filenames, rather than loading code from the filesystem directly.
package loader

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"sort"

	"github.com/momentum-cms/migrate/pkg/ops"
)

// filenamePattern matches spec.md §6's migration filename format: a
// 14-digit timestamp prefix (sorts lexicographically into chronological
// order) followed by a descriptive name.
var filenamePattern = regexp.MustCompile(`^\d{14}_[a-zA-Z0-9_]+\.go$`)

// Meta is a migration's declared identity. Operations is optional — only
// migrations generated by the `generate` command (SPEC_FULL §12) populate
// it; hand-written migrations may leave it nil, in which case the danger
// detector has nothing to classify for that migration.
type Meta struct {
	Name        string
	Description string
	Operations  []ops.Operation
}

// Migration is implemented by every migration file's registered value.
type Migration interface {
	Meta() Meta
	Up(ctx context.Context, mc *MigrationContext) error
	Down(ctx context.Context, mc *MigrationContext) error
}

var registry = map[string]Migration{}

// Register adds a migration to the package-level registry, keyed by its
// source file's base name without extension (e.g.
// "20260101120000_create_posts"). Called from that file's init().
func Register(name string, m Migration) {
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("loader: migration %q registered twice", name))
	}
	registry[name] = m
}

// LoadedMigration pairs a migration's file-derived name with its
// registered implementation, in the order Load returned it.
type LoadedMigration struct {
	Name      string
	Migration Migration
}

// Load scans dir for files matching filenamePattern and resolves each
// against the registry, returning them in filename-sorted (i.e.
// chronological) order. A missing directory yields an empty list, not an
// error — a project with no migrations yet is valid. A file with no
// matching registration is an *InvalidMigrationError: the binary wasn't
// built with that file compiled in.
func Load(dir string) ([]LoadedMigration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("loader: reading %q: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if filenamePattern.MatchString(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	loaded := make([]LoadedMigration, 0, len(names))
	for _, fname := range names {
		name := fname[:len(fname)-len(".go")]
		m, ok := registry[name]
		if !ok {
			return nil, &InvalidMigrationError{File: fname}
		}
		loaded = append(loaded, LoadedMigration{Name: name, Migration: m})
	}
	return loaded, nil
}

// InvalidMigrationError reports a migration file on disk with no
// corresponding registered implementation.
type InvalidMigrationError struct {
	File string
}

func (e *InvalidMigrationError) Error() string {
	return fmt.Sprintf("loader: %q has no registered migration", e.File)
}
