// SPDX-License-Identifier: Apache-2.0

package tracker_test

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/momentum-cms/migrate/pkg/coltype"
	"github.com/momentum-cms/migrate/pkg/db"
	"github.com/momentum-cms/migrate/pkg/tracker"
)

func newTestTracker(t *testing.T) *tracker.Tracker {
	t.Helper()
	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })

	tr := tracker.New(db.New(conn, coltype.SQLite))
	if err := tr.EnsureTrackingTable(context.Background()); err != nil {
		t.Fatal(err)
	}
	return tr
}

func TestEnsureTrackingTableIsIdempotent(t *testing.T) {
	tr := newTestTracker(t)
	if err := tr.EnsureTrackingTable(context.Background()); err != nil {
		t.Fatalf("expected EnsureTrackingTable to be safe to call twice: %v", err)
	}
}

func TestRecordAndListAppliedMigrations(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker(t)

	batch, err := tr.GetNextBatchNumber(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if batch != 1 {
		t.Fatalf("expected first batch number 1, got %d", batch)
	}

	for _, name := range []string{"20260101000000_create_posts", "20260101000001_add_index"} {
		if err := tr.RecordMigration(ctx, tracker.Record{
			Name:        name,
			Batch:       batch,
			Checksum:    "deadbeef",
			ExecutionMs: 12,
		}); err != nil {
			t.Fatal(err)
		}
	}

	applied, err := tr.GetAppliedMigrations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(applied) != 2 {
		t.Fatalf("expected 2 applied migrations, got %d", len(applied))
	}
	if applied[0].Name != "20260101000000_create_posts" || applied[1].Name != "20260101000001_add_index" {
		t.Fatalf("expected migrations ordered by name within batch, got %+v", applied)
	}
	for _, r := range applied {
		if r.ID == "" {
			t.Fatal("expected RecordMigration to generate an ID")
		}
		if r.AppliedAt == "" {
			t.Fatal("expected RecordMigration to default AppliedAt")
		}
	}

	isApplied, err := tr.IsMigrationApplied(ctx, "20260101000000_create_posts")
	if err != nil {
		t.Fatal(err)
	}
	if !isApplied {
		t.Fatal("expected migration to be applied")
	}

	isApplied, err = tr.IsMigrationApplied(ctx, "nonexistent")
	if err != nil {
		t.Fatal(err)
	}
	if isApplied {
		t.Fatal("expected nonexistent migration to be unapplied")
	}
}

func TestBatchNumbersAdvance(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker(t)

	if err := tr.RecordMigration(ctx, tracker.Record{Name: "m1", Batch: 1, Checksum: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := tr.RecordMigration(ctx, tracker.Record{Name: "m2", Batch: 1, Checksum: "b"}); err != nil {
		t.Fatal(err)
	}

	latest, err := tr.GetLatestBatchNumber(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if latest != 1 {
		t.Fatalf("expected latest batch 1, got %d", latest)
	}

	next, err := tr.GetNextBatchNumber(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if next != 2 {
		t.Fatalf("expected next batch 2, got %d", next)
	}

	if err := tr.RecordMigration(ctx, tracker.Record{Name: "m3", Batch: 2, Checksum: "c"}); err != nil {
		t.Fatal(err)
	}

	byBatch, err := tr.GetMigrationsByBatch(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(byBatch) != 2 {
		t.Fatalf("expected 2 migrations in batch 1, got %d", len(byBatch))
	}
	if byBatch[0].Name != "m2" || byBatch[1].Name != "m1" {
		t.Fatalf("expected batch 1 in descending name order, got %+v", byBatch)
	}
}

func TestRemoveMigrationRecord(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker(t)

	if err := tr.RecordMigration(ctx, tracker.Record{Name: "m1", Batch: 1, Checksum: "a"}); err != nil {
		t.Fatal(err)
	}

	removed, err := tr.RemoveMigrationRecord(ctx, "m1")
	if err != nil {
		t.Fatal(err)
	}
	if !removed {
		t.Fatal("expected m1 to be removed")
	}

	removed, err = tr.RemoveMigrationRecord(ctx, "m1")
	if err != nil {
		t.Fatal(err)
	}
	if removed {
		t.Fatal("expected second removal of m1 to be a no-op")
	}

	applied, err := tr.GetAppliedMigrations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(applied) != 0 {
		t.Fatalf("expected no applied migrations after removal, got %+v", applied)
	}
}
