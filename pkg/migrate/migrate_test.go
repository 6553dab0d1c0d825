// SPDX-License-Identifier: Apache-2.0

package migrate

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/momentum-cms/migrate/pkg/coltype"
	"github.com/momentum-cms/migrate/pkg/db"
	"github.com/momentum-cms/migrate/pkg/loader"
	"github.com/momentum-cms/migrate/pkg/ops"
)

type fakeMigration struct {
	meta loader.Meta
	up   func(ctx context.Context, mc *loader.MigrationContext) error
	down func(ctx context.Context, mc *loader.MigrationContext) error
}

func (f fakeMigration) Meta() loader.Meta { return f.meta }
func (f fakeMigration) Up(ctx context.Context, mc *loader.MigrationContext) error {
	if f.up == nil {
		return nil
	}
	return f.up(ctx, mc)
}
func (f fakeMigration) Down(ctx context.Context, mc *loader.MigrationContext) error {
	if f.down == nil {
		return nil
	}
	return f.down(ctx, mc)
}

func openTestRunner(t *testing.T) (*Runner, db.DB) {
	t.Helper()
	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	rdb := db.New(conn, coltype.SQLite)
	return NewRunner(rdb, loader.NewNoopLogger()), rdb
}

func createPostsMigration(name string) loader.LoadedMigration {
	return loader.LoadedMigration{
		Name: name,
		Migration: fakeMigration{
			meta: loader.Meta{Name: name, Description: "create posts"},
			up: func(ctx context.Context, mc *loader.MigrationContext) error {
				return mc.SQL(ctx, `CREATE TABLE posts (id TEXT PRIMARY KEY)`)
			},
			down: func(ctx context.Context, mc *loader.MigrationContext) error {
				return mc.SQL(ctx, `DROP TABLE posts`)
			},
		},
	}
}

func TestRunAppliesPendingMigrationsInOrder(t *testing.T) {
	ctx := context.Background()
	runner, conn := openTestRunner(t)

	migrations := []loader.LoadedMigration{
		createPostsMigration("20260101000000_create_posts"),
		{
			Name: "20260102000000_create_comments",
			Migration: fakeMigration{
				meta: loader.Meta{Name: "20260102000000_create_comments"},
				up: func(ctx context.Context, mc *loader.MigrationContext) error {
					return mc.SQL(ctx, `CREATE TABLE comments (id TEXT PRIMARY KEY)`)
				},
			},
		},
	}

	result, err := runner.Run(ctx, migrations, RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if result.SuccessCount != 2 || result.FailCount != 0 {
		t.Fatalf("expected 2 successes, got %+v", result)
	}

	applied, err := runner.tracker.GetAppliedMigrations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(applied) != 2 || applied[0].Batch != 1 || applied[1].Batch != 1 {
		t.Fatalf("expected both migrations recorded in batch 1, got %+v", applied)
	}

	if _, err := conn.ExecContext(ctx, `SELECT 1 FROM posts`); err != nil {
		t.Fatalf("expected posts table to exist: %v", err)
	}

	second, err := runner.Run(ctx, migrations, RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if second.SuccessCount != 0 || second.FailCount != 0 {
		t.Fatalf("expected a no-op re-run, got %+v", second)
	}
}

func TestRunStopsOnFirstFailure(t *testing.T) {
	ctx := context.Background()
	runner, _ := openTestRunner(t)

	boom := errors.New("boom")
	migrations := []loader.LoadedMigration{
		createPostsMigration("20260101000000_create_posts"),
		{
			Name: "20260102000000_broken",
			Migration: fakeMigration{
				meta: loader.Meta{Name: "20260102000000_broken"},
				up: func(ctx context.Context, mc *loader.MigrationContext) error {
					return boom
				},
			},
		},
		{
			Name: "20260103000000_never_runs",
			Migration: fakeMigration{
				meta: loader.Meta{Name: "20260103000000_never_runs"},
				up: func(ctx context.Context, mc *loader.MigrationContext) error {
					t.Fatal("this migration should never run")
					return nil
				},
			},
		},
	}

	result, err := runner.Run(ctx, migrations, RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if result.SuccessCount != 1 || result.FailCount != 1 {
		t.Fatalf("expected 1 success and 1 failure, got %+v", result)
	}
	if len(result.Results) != 2 {
		t.Fatalf("expected exactly 2 results (the third never ran), got %+v", result.Results)
	}
	if result.Results[1].Error != "boom" {
		t.Fatalf("expected the failing migration's error message, got %q", result.Results[1].Error)
	}
}

func TestRunBlockedByDangerDetector(t *testing.T) {
	ctx := context.Background()
	runner, _ := openTestRunner(t)

	migrations := []loader.LoadedMigration{
		{
			Name: "20260101000000_add_required_field",
			Migration: fakeMigration{
				meta: loader.Meta{
					Name: "20260101000000_add_required_field",
					Operations: []ops.Operation{
						ops.AddColumn{TableName: "posts", Column: "required_field", ColumnType: "TEXT", Nullable: false},
					},
				},
				up: func(ctx context.Context, mc *loader.MigrationContext) error {
					t.Fatal("a danger-blocked migration must not run")
					return nil
				},
			},
		},
	}

	result, err := runner.Run(ctx, migrations, RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if result.SuccessCount != 0 || result.Danger == nil || !result.Danger.HasErrors {
		t.Fatalf("expected a danger-blocked result, got %+v", result)
	}

	applied, err := runner.tracker.GetAppliedMigrations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(applied) != 0 {
		t.Fatalf("expected no tracker rows written, got %+v", applied)
	}
}

func TestRunSkipDangerCheckBypassesGate(t *testing.T) {
	ctx := context.Background()
	runner, _ := openTestRunner(t)

	migrations := []loader.LoadedMigration{
		{
			Name: "20260101000000_drop_table",
			Migration: fakeMigration{
				meta: loader.Meta{
					Name:       "20260101000000_drop_table",
					Operations: []ops.Operation{ops.DropTable{TableName: "posts"}},
				},
				up: func(ctx context.Context, mc *loader.MigrationContext) error { return nil },
			},
		},
	}

	result, err := runner.Run(ctx, migrations, RunOptions{SkipDangerCheck: true})
	if err != nil {
		t.Fatal(err)
	}
	if result.SuccessCount != 1 {
		t.Fatalf("expected the danger gate to be bypassed, got %+v", result)
	}
}

func TestRollbackRevertsLatestBatchInDescendingOrder(t *testing.T) {
	ctx := context.Background()
	runner, conn := openTestRunner(t)

	migrations := []loader.LoadedMigration{
		createPostsMigration("20260101000000_create_posts"),
		{
			Name: "20260102000000_create_comments",
			Migration: fakeMigration{
				meta: loader.Meta{Name: "20260102000000_create_comments"},
				up: func(ctx context.Context, mc *loader.MigrationContext) error {
					return mc.SQL(ctx, `CREATE TABLE comments (id TEXT PRIMARY KEY)`)
				},
				down: func(ctx context.Context, mc *loader.MigrationContext) error {
					return mc.SQL(ctx, `DROP TABLE comments`)
				},
			},
		},
	}

	if _, err := runner.Run(ctx, migrations, RunOptions{}); err != nil {
		t.Fatal(err)
	}

	result, err := runner.Rollback(ctx, migrations)
	if err != nil {
		t.Fatal(err)
	}
	if result.SuccessCount != 2 {
		t.Fatalf("expected both migrations rolled back, got %+v", result)
	}
	if result.Results[0].Name != "20260102000000_create_comments" || result.Results[1].Name != "20260101000000_create_posts" {
		t.Fatalf("expected descending-name rollback order, got %+v", result.Results)
	}

	applied, err := runner.tracker.GetAppliedMigrations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(applied) != 0 {
		t.Fatalf("expected an empty tracker after rollback, got %+v", applied)
	}

	if _, err := conn.ExecContext(ctx, `SELECT 1 FROM posts`); err == nil {
		t.Fatal("expected posts table to be dropped")
	}

	noop, err := runner.Rollback(ctx, migrations)
	if err != nil {
		t.Fatal(err)
	}
	if noop.SuccessCount != 0 || noop.FailCount != 0 {
		t.Fatalf("expected rollback on an empty tracker to be a no-op, got %+v", noop)
	}
}

func TestRollbackStopsOnMissingFile(t *testing.T) {
	ctx := context.Background()
	runner, _ := openTestRunner(t)

	migrations := []loader.LoadedMigration{createPostsMigration("20260101000000_create_posts")}
	if _, err := runner.Run(ctx, migrations, RunOptions{}); err != nil {
		t.Fatal(err)
	}

	result, err := runner.Rollback(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.SuccessCount != 0 || result.FailCount != 1 {
		t.Fatalf("expected a single missing-file failure, got %+v", result)
	}
}

func TestStatusMergesLoadedMigrationsWithTracker(t *testing.T) {
	ctx := context.Background()
	runner, _ := openTestRunner(t)

	applied := createPostsMigration("20260101000000_create_posts")
	pending := loader.LoadedMigration{
		Name: "20260102000000_still_pending",
		Migration: fakeMigration{meta: loader.Meta{Name: "20260102000000_still_pending"}},
	}

	if _, err := runner.Run(ctx, []loader.LoadedMigration{applied}, RunOptions{}); err != nil {
		t.Fatal(err)
	}

	entries, err := runner.Status(ctx, []loader.LoadedMigration{applied, pending})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 status entries, got %+v", entries)
	}
	if entries[0].Status != StatusApplied || entries[0].Batch != 1 || entries[0].AppliedAt == "" {
		t.Fatalf("expected the first entry applied with a batch and timestamp, got %+v", entries[0])
	}
	if entries[1].Status != StatusPending {
		t.Fatalf("expected the second entry pending, got %+v", entries[1])
	}
}
