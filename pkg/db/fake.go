// SPDX-License-Identifier: Apache-2.0

package db

import (
	"context"
	"database/sql"

	"github.com/momentum-cms/migrate/pkg/coltype"
)

// FakeDB is a fake implementation of DB. All methods are no-ops, for tests
// that exercise a caller's control flow without a real connection.
type FakeDB struct {
	DialectValue coltype.Dialect
}

func (db *FakeDB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, nil
}

func (db *FakeDB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, nil
}

func (db *FakeDB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

func (db *FakeDB) WithTransaction(ctx context.Context, f func(context.Context, *sql.Tx) error) error {
	return nil
}

func (db *FakeDB) Dialect() coltype.Dialect {
	return db.DialectValue
}

func (db *FakeDB) Close() error {
	return nil
}
