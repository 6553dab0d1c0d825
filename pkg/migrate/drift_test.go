// SPDX-License-Identifier: Apache-2.0

package migrate

import (
	"context"
	"testing"

	"github.com/momentum-cms/migrate/pkg/coltype"
	"github.com/momentum-cms/migrate/pkg/loader"
	"github.com/momentum-cms/migrate/pkg/schema"
)

type fakeSnapshotter struct {
	snap *schema.DatabaseSchemaSnapshot
	err  error
}

func (f fakeSnapshotter) Snapshot(ctx context.Context, capturedAt string) (*schema.DatabaseSchemaSnapshot, error) {
	return f.snap, f.err
}

func widgetsTable() []schema.TableSnapshot {
	return []schema.TableSnapshot{{
		Name:    "widgets",
		Columns: []schema.ColumnSnapshot{{Name: "id", Type: "TEXT", IsPrimaryKey: true}},
	}}
}

func TestCheckDriftReturnsNilWhenNoSnapshotRecorded(t *testing.T) {
	dir := t.TempDir()

	drift, err := CheckDrift(context.Background(), dir, fakeSnapshotter{})
	if err != nil {
		t.Fatal(err)
	}
	if drift != nil {
		t.Fatalf("expected no drift error for a missing snapshot file, got %+v", drift)
	}
}

func TestCheckDriftReturnsNilWhenChecksumsMatch(t *testing.T) {
	dir := t.TempDir()
	recorded := schema.New(coltype.Postgres, widgetsTable(), "2026-01-01T00:00:00Z")
	if err := loader.WriteSnapshot(dir, recorded); err != nil {
		t.Fatal(err)
	}

	actual := schema.New(coltype.Postgres, widgetsTable(), "2026-02-01T00:00:00Z")
	drift, err := CheckDrift(context.Background(), dir, fakeSnapshotter{snap: actual})
	if err != nil {
		t.Fatal(err)
	}
	if drift != nil {
		t.Fatalf("expected matching table shapes to report no drift, got %+v", drift)
	}
}

func TestCheckDriftReportsMismatchedChecksums(t *testing.T) {
	dir := t.TempDir()
	recorded := schema.New(coltype.Postgres, widgetsTable(), "2026-01-01T00:00:00Z")
	if err := loader.WriteSnapshot(dir, recorded); err != nil {
		t.Fatal(err)
	}

	driftedTables := append(widgetsTable(), schema.TableSnapshot{Name: "gadgets"})
	actual := schema.New(coltype.Postgres, driftedTables, "2026-02-01T00:00:00Z")

	drift, err := CheckDrift(context.Background(), dir, fakeSnapshotter{snap: actual})
	if err != nil {
		t.Fatal(err)
	}
	if drift == nil {
		t.Fatal("expected a drift error when a table was added outside of a migration")
	}
	if drift.RecordedChecksum != recorded.Checksum || drift.ActualChecksum != actual.Checksum {
		t.Fatalf("expected the mismatched checksums to be carried in the error, got %+v", drift)
	}
}
