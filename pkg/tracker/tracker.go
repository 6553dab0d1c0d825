// SPDX-License-Identifier: Apache-2.0

// Package tracker maintains the `_momentum_migrations` ledger: which
// migrations have been applied, in which batch, and with what checksum.
// Grounded on the teacher's pkg/state.State, scaled down from pgroll's
// schema-versioning ledger (parent/done/resulting_schema columns, a
// linear-history constraint, a read_schema() stored function) to a flat
// batch/name ledger, since this module's schema history lives in
// .snapshot.json rather than in the database itself.
package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/momentum-cms/migrate/pkg/coltype"
	"github.com/momentum-cms/migrate/pkg/db"
)

// TableName is the ledger table's name, excluded from every schema
// snapshot and diff via schema.InternalTables.
const TableName = "_momentum_migrations"

// Record is one applied migration. AppliedAt is an RFC 3339 timestamp
// string rather than time.Time, matching schema.DatabaseSchemaSnapshot's
// CapturedAt — SQLite has no native timestamp type, so timestamps are
// carried as text end to end rather than relying on a driver to parse
// them back out of a TEXT column.
type Record struct {
	ID          string
	Name        string
	Batch       int
	Checksum    string
	AppliedAt   string
	ExecutionMs int64
}

// Tracker reads and writes the ledger table over a single connection.
type Tracker struct {
	conn db.DB
}

// New builds a Tracker over conn. EnsureTrackingTable must be called
// before any other method the first time a database is migrated.
func New(conn db.DB) *Tracker {
	return &Tracker{conn: conn}
}

// EnsureTrackingTable creates the ledger table if it doesn't already
// exist, using per-dialect column types.
func (t *Tracker) EnsureTrackingTable(ctx context.Context) error {
	idType := coltype.IDType(t.conn.Dialect())
	tsType := coltype.TimestampType(t.conn.Dialect())

	stmt := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id %s PRIMARY KEY,
			name %s NOT NULL UNIQUE,
			batch INTEGER NOT NULL,
			checksum %s NOT NULL,
			appliedAt %s NOT NULL,
			executionMs INTEGER NOT NULL
		)`, pq.QuoteIdentifier(TableName), idType, idType, idType, tsType)

	_, err := t.conn.ExecContext(ctx, stmt)
	if err != nil {
		return fmt.Errorf("tracker: ensuring tracking table: %w", err)
	}
	return nil
}

// GetAppliedMigrations returns every applied migration, ordered by batch
// then name, matching the order migrations were (or would be) run in.
func (t *Tracker) GetAppliedMigrations(ctx context.Context) ([]Record, error) {
	rows, err := t.conn.QueryContext(ctx, fmt.Sprintf(
		"SELECT id, name, batch, checksum, appliedAt, executionMs FROM %s ORDER BY batch ASC, name ASC",
		pq.QuoteIdentifier(TableName)))
	if err != nil {
		return nil, fmt.Errorf("tracker: listing applied migrations: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// GetMigrationsByBatch returns every migration applied in the given batch,
// in descending name order — the order migrations in a batch are rolled
// back in.
func (t *Tracker) GetMigrationsByBatch(ctx context.Context, batch int) ([]Record, error) {
	rows, err := t.conn.QueryContext(ctx, fmt.Sprintf(
		"SELECT id, name, batch, checksum, appliedAt, executionMs FROM %s WHERE batch = $1 ORDER BY name DESC",
		pq.QuoteIdentifier(TableName)), batch)
	if err != nil {
		return nil, fmt.Errorf("tracker: listing batch %d: %w", batch, err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Name, &r.Batch, &r.Checksum, &r.AppliedAt, &r.ExecutionMs); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// GetLatestBatchNumber returns the highest batch number recorded, or 0 if
// the ledger is empty.
func (t *Tracker) GetLatestBatchNumber(ctx context.Context) (int, error) {
	var batch sql.NullInt64
	err := t.conn.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT MAX(batch) FROM %s", pq.QuoteIdentifier(TableName))).Scan(&batch)
	if err != nil {
		return 0, fmt.Errorf("tracker: reading latest batch: %w", err)
	}
	if !batch.Valid {
		return 0, nil
	}
	return int(batch.Int64), nil
}

// GetNextBatchNumber returns GetLatestBatchNumber()+1, or 1 for an empty
// ledger.
func (t *Tracker) GetNextBatchNumber(ctx context.Context) (int, error) {
	latest, err := t.GetLatestBatchNumber(ctx)
	if err != nil {
		return 0, err
	}
	return latest + 1, nil
}

// IsMigrationApplied reports whether name has a ledger row.
func (t *Tracker) IsMigrationApplied(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := t.conn.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT EXISTS (SELECT 1 FROM %s WHERE name = $1)", pq.QuoteIdentifier(TableName)),
		name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("tracker: checking %q: %w", name, err)
	}
	return exists, nil
}

// RecordMigration inserts a new ledger row, generating its ID.
// AppliedAt is defaulted to now if the caller left it zero.
func (t *Tracker) RecordMigration(ctx context.Context, r Record) error {
	r.ID = uuid.NewString()
	if r.AppliedAt == "" {
		r.AppliedAt = time.Now().UTC().Format(time.RFC3339)
	}

	_, err := t.conn.ExecContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (id, name, batch, checksum, appliedAt, executionMs) VALUES ($1, $2, $3, $4, $5, $6)",
		pq.QuoteIdentifier(TableName)),
		r.ID, r.Name, r.Batch, r.Checksum, r.AppliedAt, r.ExecutionMs)
	if err != nil {
		return fmt.Errorf("tracker: recording %q: %w", r.Name, err)
	}
	return nil
}

// RemoveMigrationRecord deletes the ledger row for name, reporting whether
// a row actually matched.
func (t *Tracker) RemoveMigrationRecord(ctx context.Context, name string) (bool, error) {
	res, err := t.conn.ExecContext(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE name = $1", pq.QuoteIdentifier(TableName)), name)
	if err != nil {
		return false, fmt.Errorf("tracker: removing %q: %w", name, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
