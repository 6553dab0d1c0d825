// SPDX-License-Identifier: Apache-2.0

package datahelpers_test

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/momentum-cms/migrate/pkg/coltype"
	"github.com/momentum-cms/migrate/pkg/datahelpers"
	"github.com/momentum-cms/migrate/pkg/db"
)

func openTestDB(t *testing.T) db.DB {
	t.Helper()
	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return db.New(conn, coltype.SQLite)
}

func exec(t *testing.T, conn db.DB, stmt string) {
	t.Helper()
	if _, err := conn.ExecContext(context.Background(), stmt); err != nil {
		t.Fatal(err)
	}
}

func scanString(t *testing.T, conn db.DB, query string) string {
	t.Helper()
	var v string
	if err := conn.QueryRowContext(context.Background(), query).Scan(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

func TestBackfillUpdatesEveryRowInBatches(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)

	exec(t, conn, `CREATE TABLE widgets (id TEXT PRIMARY KEY, status TEXT)`)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		exec(t, conn, `INSERT INTO widgets (id, status) VALUES ('`+id+`', NULL)`)
	}

	var calls []int64
	opts := datahelpers.NewOptions(
		datahelpers.WithBatchSize(2),
		datahelpers.WithCallbacks(func(done, total int64) { calls = append(calls, done) }),
	)

	n, err := datahelpers.Backfill(ctx, conn, "widgets", "status", "new", opts)
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Fatalf("expected Backfill to report 5 rows affected, got %d", n)
	}

	var count int
	if err := conn.QueryRowContext(ctx, `SELECT count(*) FROM widgets WHERE status = 'new'`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 5 {
		t.Fatalf("expected all 5 rows backfilled, got %d", count)
	}
	if len(calls) < 3 {
		t.Fatalf("expected progress callbacks across multiple batches, got %v", calls)
	}
}

func TestBackfillRespectsWhere(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)

	exec(t, conn, `CREATE TABLE widgets (id TEXT PRIMARY KEY, kind TEXT, status TEXT)`)
	exec(t, conn, `INSERT INTO widgets (id, kind, status) VALUES ('1', 'a', NULL), ('2', 'b', NULL)`)

	opts := datahelpers.NewOptions(datahelpers.WithWhere(`"kind" = 'a'`))
	if _, err := datahelpers.Backfill(ctx, conn, "widgets", "status", "new", opts); err != nil {
		t.Fatal(err)
	}

	if got := scanString(t, conn, `SELECT status FROM widgets WHERE id = '1'`); got != "new" {
		t.Fatalf("expected matching row to be backfilled, got %q", got)
	}
	var untouched sql.NullString
	if err := conn.QueryRowContext(ctx, `SELECT status FROM widgets WHERE id = '2'`).Scan(&untouched); err != nil {
		t.Fatal(err)
	}
	if untouched.Valid {
		t.Fatalf("expected non-matching row to be left NULL, got %q", untouched.String)
	}
}

func TestTransformUnbatchedByDefault(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)

	exec(t, conn, `CREATE TABLE widgets (id TEXT PRIMARY KEY, name TEXT)`)
	exec(t, conn, `INSERT INTO widgets (id, name) VALUES ('1', 'ada'), ('2', 'grace')`)

	n, err := datahelpers.Transform(ctx, conn, "widgets", "name", `upper("name")`, nil)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected Transform to report 2 rows affected, got %d", n)
	}

	if got := scanString(t, conn, `SELECT name FROM widgets WHERE id = '1'`); got != "ADA" {
		t.Fatalf("expected name to be upper-cased, got %q", got)
	}
}

func TestRenameColumnCopiesValues(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)

	exec(t, conn, `CREATE TABLE users (id TEXT PRIMARY KEY, full_name TEXT, display_name TEXT)`)
	exec(t, conn, `INSERT INTO users (id, full_name) VALUES ('1', 'Ada Lovelace')`)

	if err := datahelpers.RenameColumn(ctx, conn, "users", "full_name", "display_name", nil); err != nil {
		t.Fatal(err)
	}

	got := scanString(t, conn, `SELECT display_name FROM users WHERE id = '1'`)
	if got != "Ada Lovelace" {
		t.Fatalf("expected display_name to be copied, got %q", got)
	}
}

func TestSplitColumnRunsFnPerRow(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)

	exec(t, conn, `CREATE TABLE people (id TEXT PRIMARY KEY, full_name TEXT, first_name TEXT, last_name TEXT)`)
	exec(t, conn, `INSERT INTO people (id, full_name) VALUES ('1', 'Ada Lovelace')`)

	split := func(value string) (string, string) {
		for i := 0; i < len(value); i++ {
			if value[i] == ' ' {
				return value[:i], value[i+1:]
			}
		}
		return value, ""
	}

	if err := datahelpers.SplitColumn(ctx, conn, "people", "full_name", "first_name", "last_name", "id", split, nil); err != nil {
		t.Fatal(err)
	}

	if got := scanString(t, conn, `SELECT first_name FROM people WHERE id = '1'`); got != "Ada" {
		t.Fatalf("expected first_name 'Ada', got %q", got)
	}
	if got := scanString(t, conn, `SELECT last_name FROM people WHERE id = '1'`); got != "Lovelace" {
		t.Fatalf("expected last_name 'Lovelace', got %q", got)
	}
}

func TestMergeColumnsRunsFnPerRow(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)

	exec(t, conn, `CREATE TABLE people (id TEXT PRIMARY KEY, first_name TEXT, last_name TEXT, full_name TEXT)`)
	exec(t, conn, `INSERT INTO people (id, first_name, last_name) VALUES ('1', 'Ada', 'Lovelace')`)

	merge := func(values []string) string {
		return values[0] + " " + values[1]
	}

	if err := datahelpers.MergeColumns(ctx, conn, "people", []string{"first_name", "last_name"}, "full_name", "id", merge, nil); err != nil {
		t.Fatal(err)
	}

	if got := scanString(t, conn, `SELECT full_name FROM people WHERE id = '1'`); got != "Ada Lovelace" {
		t.Fatalf("expected full_name 'Ada Lovelace', got %q", got)
	}
}

func TestCopyDataMovesRowsBetweenTables(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)

	exec(t, conn, `CREATE TABLE legacy_posts (id TEXT PRIMARY KEY, title TEXT)`)
	exec(t, conn, `CREATE TABLE posts (id TEXT PRIMARY KEY, headline TEXT)`)
	exec(t, conn, `INSERT INTO legacy_posts (id, title) VALUES ('1', 'Hello'), ('2', 'World')`)

	if err := datahelpers.CopyData(ctx, conn, "legacy_posts", "posts", map[string]string{"id": "id", "headline": "title"}, "id", nil); err != nil {
		t.Fatal(err)
	}

	var count int
	if err := conn.QueryRowContext(ctx, `SELECT count(*) FROM posts`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("expected 2 rows copied, got %d", count)
	}
	if got := scanString(t, conn, `SELECT headline FROM posts WHERE id = '1'`); got != "Hello" {
		t.Fatalf("expected headline 'Hello', got %q", got)
	}
}

func TestCopyDataSupportsExpressionOverrides(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)

	exec(t, conn, `CREATE TABLE legacy_posts (id TEXT PRIMARY KEY, title TEXT)`)
	exec(t, conn, `CREATE TABLE posts (id TEXT PRIMARY KEY, headline TEXT)`)
	exec(t, conn, `INSERT INTO legacy_posts (id, title) VALUES ('1', 'hello')`)

	mapping := map[string]string{"id": "id", "headline": `upper("title")`}
	if err := datahelpers.CopyData(ctx, conn, "legacy_posts", "posts", mapping, "id", nil); err != nil {
		t.Fatal(err)
	}

	if got := scanString(t, conn, `SELECT headline FROM posts WHERE id = '1'`); got != "HELLO" {
		t.Fatalf("expected headline to be upper-cased via the expression override, got %q", got)
	}
}

func TestColumnToJSONAndBack(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)

	exec(t, conn, `CREATE TABLE widgets (id TEXT PRIMARY KEY, color TEXT, metadata TEXT, color_again TEXT)`)
	exec(t, conn, `INSERT INTO widgets (id, color) VALUES ('1', 'red')`)

	if err := datahelpers.ColumnToJSON(ctx, conn, "widgets", "color", "metadata", "color", nil); err != nil {
		t.Fatal(err)
	}
	if got := scanString(t, conn, `SELECT metadata FROM widgets WHERE id = '1'`); got != `{"color":"red"}` {
		t.Fatalf("expected metadata to be wrapped JSON, got %q", got)
	}

	if err := datahelpers.JSONToColumn(ctx, conn, "widgets", "metadata", "color_again", "color", nil); err != nil {
		t.Fatal(err)
	}
	if got := scanString(t, conn, `SELECT color_again FROM widgets WHERE id = '1'`); got != "red" {
		t.Fatalf("expected color_again 'red', got %q", got)
	}
}

func TestDedupKeepsOneRowPerGroup(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)

	exec(t, conn, `CREATE TABLE emails (id TEXT PRIMARY KEY, address TEXT)`)
	exec(t, conn, `INSERT INTO emails (id, address) VALUES ('1', 'a@example.com'), ('2', 'a@example.com'), ('3', 'b@example.com')`)

	if err := datahelpers.Dedup(ctx, conn, "emails", []string{"address"}, datahelpers.DedupFirst, ""); err != nil {
		t.Fatal(err)
	}

	var count int
	if err := conn.QueryRowContext(ctx, `SELECT count(*) FROM emails`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("expected dedup to leave 2 rows, got %d", count)
	}

	if got := scanString(t, conn, `SELECT id FROM emails WHERE address = 'a@example.com'`); got != "1" {
		t.Fatalf("expected the lowest id to survive, got %q", got)
	}
}

func TestDedupLatestKeepsMostRecentByCreatedAt(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)

	exec(t, conn, `CREATE TABLE emails (id TEXT PRIMARY KEY, address TEXT, created_at TEXT)`)
	exec(t, conn, `INSERT INTO emails (id, address, created_at) VALUES
		('1', 'a@example.com', '2026-01-01'),
		('2', 'a@example.com', '2026-06-01'),
		('3', 'b@example.com', '2026-01-01')`)

	if err := datahelpers.Dedup(ctx, conn, "emails", []string{"address"}, datahelpers.DedupLatest, "created_at"); err != nil {
		t.Fatal(err)
	}

	if got := scanString(t, conn, `SELECT id FROM emails WHERE address = 'a@example.com'`); got != "2" {
		t.Fatalf("expected the row with the latest created_at to survive, got %q", got)
	}
}
