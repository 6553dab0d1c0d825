// SPDX-License-Identifier: Apache-2.0

package clonetest

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	"github.com/lib/pq"

	"github.com/momentum-cms/migrate/pkg/coltype"
	"github.com/momentum-cms/migrate/pkg/db"
)

// PostgresCloner implements Cloner using `CREATE DATABASE ... TEMPLATE`,
// the same primitive internal/testutils uses to hand each test its own
// database within a shared container. adminDSN must point at a database
// other than sourceDB (conventionally "postgres") — Postgres refuses to
// run CREATE DATABASE/DROP DATABASE against the database a connection is
// currently inside.
type PostgresCloner struct {
	adminDSN string
	sourceDB string
}

// NewPostgresCloner builds a PostgresCloner. adminDSN is a connection
// string to the server's maintenance database; sourceDB is the database
// being migrated, used as the CREATE DATABASE template.
func NewPostgresCloner(adminDSN, sourceDB string) *PostgresCloner {
	return &PostgresCloner{adminDSN: adminDSN, sourceDB: sourceDB}
}

// CloneDatabase creates a new database using sourceDB as its template and
// returns a connection to it. TEMPLATE requires no other session to be
// connected to sourceDB at the moment of creation; callers running this
// against a live, in-use database should expect an occasional failure here
// and are free to retry.
func (c *PostgresCloner) CloneDatabase(ctx context.Context, requestedName string) (db.DB, string, error) {
	admin, err := sql.Open("postgres", c.adminDSN)
	if err != nil {
		return nil, "", fmt.Errorf("clonetest: opening admin connection: %w", err)
	}
	defer admin.Close()

	stmt := fmt.Sprintf("CREATE DATABASE %s TEMPLATE %s",
		pq.QuoteIdentifier(requestedName), pq.QuoteIdentifier(c.sourceDB))
	if _, err := admin.ExecContext(ctx, stmt); err != nil {
		return nil, "", fmt.Errorf("clonetest: creating clone %q: %w", requestedName, err)
	}

	cloneDSN, err := c.dsnFor(requestedName)
	if err != nil {
		return nil, "", err
	}

	conn, err := sql.Open("postgres", cloneDSN)
	if err != nil {
		return nil, "", fmt.Errorf("clonetest: opening clone %q: %w", requestedName, err)
	}
	return db.New(conn, coltype.Postgres), requestedName, nil
}

// DropClone drops the clone database. It opens its own admin connection
// rather than reusing one from CloneDatabase, since the pipeline calls
// this from a deferred cleanup well after that connection has gone out of
// scope.
func (c *PostgresCloner) DropClone(ctx context.Context, finalName string) error {
	admin, err := sql.Open("postgres", c.adminDSN)
	if err != nil {
		return fmt.Errorf("clonetest: opening admin connection: %w", err)
	}
	defer admin.Close()

	stmt := fmt.Sprintf("DROP DATABASE IF EXISTS %s", pq.QuoteIdentifier(finalName))
	if _, err := admin.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("clonetest: dropping clone %q: %w", finalName, err)
	}
	return nil
}

// dsnFor rewrites adminDSN's path to point at dbName.
func (c *PostgresCloner) dsnFor(dbName string) (string, error) {
	u, err := url.Parse(c.adminDSN)
	if err != nil {
		return "", fmt.Errorf("clonetest: parsing admin DSN: %w", err)
	}
	u.Path = "/" + dbName
	return u.String(), nil
}
