// SPDX-License-Identifier: Apache-2.0

package clonetest

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/momentum-cms/migrate/pkg/coltype"
	"github.com/momentum-cms/migrate/pkg/db"
	"github.com/momentum-cms/migrate/pkg/loader"
)

// fakeCloner hands out a fresh in-memory sqlite database for every clone
// request, and records whether DropClone was ever called.
type fakeCloner struct {
	dropped     []string
	failClone   bool
	failDrop    bool
	openedConns []db.DB
}

func (f *fakeCloner) CloneDatabase(ctx context.Context, requestedName string) (db.DB, string, error) {
	if f.failClone {
		return nil, "", errors.New("clone backend unavailable")
	}
	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, "", err
	}
	rdb := db.New(conn, coltype.SQLite)
	f.openedConns = append(f.openedConns, rdb)
	return rdb, requestedName, nil
}

func (f *fakeCloner) DropClone(ctx context.Context, finalName string) error {
	if f.failDrop {
		return errors.New("drop backend unavailable")
	}
	f.dropped = append(f.dropped, finalName)
	return nil
}

type fakeMigration struct {
	meta loader.Meta
	up   func(ctx context.Context, mc *loader.MigrationContext) error
}

func (f fakeMigration) Meta() loader.Meta                                         { return f.meta }
func (f fakeMigration) Up(ctx context.Context, mc *loader.MigrationContext) error  { return f.up(ctx, mc) }
func (f fakeMigration) Down(ctx context.Context, mc *loader.MigrationContext) error { return nil }

func openRealDB(t *testing.T) db.DB {
	t.Helper()
	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return db.New(conn, coltype.SQLite)
}

func createPostsMigration() loader.LoadedMigration {
	return loader.LoadedMigration{
		Name: "20260101000000_create_posts",
		Migration: fakeMigration{
			meta: loader.Meta{Name: "create_posts"},
			up: func(ctx context.Context, mc *loader.MigrationContext) error {
				return mc.SQL(ctx, `CREATE TABLE posts (id TEXT PRIMARY KEY)`)
			},
		},
	}
}

func TestPipelineCompletesWhenCloneAndApplyBothSucceed(t *testing.T) {
	ctx := context.Background()
	realConn := openRealDB(t)
	cloner := &fakeCloner{}
	pipeline := NewPipeline(realConn, cloner, loader.NewNoopLogger())

	result := pipeline.Run(ctx, []loader.LoadedMigration{createPostsMigration()}, false)

	if result.Phase != PhaseComplete {
		t.Fatalf("expected phase complete, got %+v", result)
	}
	if result.CloneResult.SuccessCount != 1 || result.ApplyResult.SuccessCount != 1 {
		t.Fatalf("expected both the clone and the real DB to be migrated, got %+v", result)
	}
	if !result.CloneCleanedUp || len(cloner.dropped) != 1 {
		t.Fatalf("expected the clone to be cleaned up, got %+v / %v", result, cloner.dropped)
	}

	if _, err := realConn.ExecContext(ctx, `SELECT 1 FROM posts`); err != nil {
		t.Fatalf("expected the real database to have the posts table: %v", err)
	}
}

func TestPipelineSkipsApplyWhenTestOnly(t *testing.T) {
	ctx := context.Background()
	realConn := openRealDB(t)
	cloner := &fakeCloner{}
	pipeline := NewPipeline(realConn, cloner, loader.NewNoopLogger())

	result := pipeline.Run(ctx, []loader.LoadedMigration{createPostsMigration()}, true)

	if result.Phase != PhaseSkipped {
		t.Fatalf("expected phase skipped, got %+v", result)
	}
	if result.ApplyResult != nil {
		t.Fatalf("expected no apply result for a test-only run, got %+v", result.ApplyResult)
	}
	if !result.CloneCleanedUp {
		t.Fatal("expected the clone to still be cleaned up")
	}

	if _, err := realConn.ExecContext(ctx, `SELECT 1 FROM posts`); err == nil {
		t.Fatal("expected the real database to be untouched by a test-only run")
	}
}

func TestPipelineStopsAtCloneOnCloneFailure(t *testing.T) {
	ctx := context.Background()
	realConn := openRealDB(t)
	cloner := &fakeCloner{failClone: true}
	pipeline := NewPipeline(realConn, cloner, loader.NewNoopLogger())

	result := pipeline.Run(ctx, []loader.LoadedMigration{createPostsMigration()}, false)

	if result.Phase != PhaseClone || result.Error == nil {
		t.Fatalf("expected phase clone with an error, got %+v", result)
	}
	if result.CloneCleanedUp {
		t.Fatal("expected no cleanup to be attempted when nothing was created")
	}
}

func TestPipelineReportsSuggestionOnTestFailure(t *testing.T) {
	ctx := context.Background()
	realConn := openRealDB(t)
	cloner := &fakeCloner{}
	pipeline := NewPipeline(realConn, cloner, loader.NewNoopLogger())

	broken := loader.LoadedMigration{
		Name: "20260101000000_broken",
		Migration: fakeMigration{
			meta: loader.Meta{Name: "broken"},
			up: func(ctx context.Context, mc *loader.MigrationContext) error {
				return mc.SQL(ctx, `CREATE TABLE posts (id TEXT PRIMARY KEY NOT NULL)`)
			},
		},
	}
	// running it twice triggers a real "table already exists" failure on
	// the clone, giving the fallback substring matcher a genuine driver
	// error to classify.
	dup := loader.LoadedMigration{
		Name: "20260101000001_duplicate_table",
		Migration: fakeMigration{
			meta: loader.Meta{Name: "duplicate_table"},
			up: func(ctx context.Context, mc *loader.MigrationContext) error {
				return mc.SQL(ctx, `CREATE TABLE posts (id TEXT PRIMARY KEY)`)
			},
		},
	}

	result := pipeline.Run(ctx, []loader.LoadedMigration{broken, dup}, false)

	if result.Phase != PhaseTest {
		t.Fatalf("expected phase test, got %+v", result)
	}
	if len(result.Suggestions) == 0 {
		t.Fatal("expected at least one suggestion for the failed clone migration")
	}
	if result.ApplyResult != nil {
		t.Fatal("expected the real database to never be touched after a clone-test failure")
	}
	if !result.CloneCleanedUp {
		t.Fatal("expected the failed clone to still be dropped")
	}

	if _, err := realConn.ExecContext(ctx, `SELECT 1 FROM posts`); err == nil {
		t.Fatal("expected the real database to be untouched")
	}
}

func TestPipelineLogsButDoesNotFailOnDropCloneError(t *testing.T) {
	ctx := context.Background()
	realConn := openRealDB(t)
	cloner := &fakeCloner{failDrop: true}
	pipeline := NewPipeline(realConn, cloner, loader.NewNoopLogger())

	result := pipeline.Run(ctx, []loader.LoadedMigration{createPostsMigration()}, false)

	if result.Phase != PhaseComplete {
		t.Fatalf("expected a drop failure to not override an otherwise-successful result, got %+v", result)
	}
	if result.CloneCleanedUp {
		t.Fatal("expected CloneCleanedUp to be false when DropClone itself failed")
	}
}

func TestSuggestionsForPrefersSQLSTATEOverMessage(t *testing.T) {
	got := suggestionsFor("23505", "pq: duplicate key value violates unique constraint")
	if len(got) != 1 {
		t.Fatalf("expected exactly one suggestion from the SQLSTATE table, got %v", got)
	}
}

func TestSuggestionsForFallsBackToMessageMatching(t *testing.T) {
	got := suggestionsFor("", "table posts already exists")
	if len(got) != 1 {
		t.Fatalf("expected one fallback suggestion, got %v", got)
	}
}
