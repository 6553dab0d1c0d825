// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/momentum-cms/migrate/internal/config"
	"github.com/momentum-cms/migrate/pkg/coltype"
	"github.com/momentum-cms/migrate/pkg/db"
	"github.com/momentum-cms/migrate/pkg/introspect"
)

// driverName maps a dialect onto the database/sql driver registered for
// it by this file's blank imports.
func driverName(d coltype.Dialect) string {
	if d == coltype.Postgres {
		return "postgres"
	}
	return "sqlite"
}

// loadConfig reads the engine configuration for a command invocation, per
// SPEC_FULL §6 "each command takes a config path".
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}

// connection bundles the dialect-tagged db.DB every package in this
// module depends on with the raw *sql.DB pkg/introspect needs for catalog
// queries, so a command only has to open one connection per invocation.
type connection struct {
	conn    db.DB
	raw     *sql.DB
	dialect coltype.Dialect
}

func openConnection(cfg *config.Config) (*connection, error) {
	dialect, err := coltype.ParseDialect(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	raw, err := sql.Open(driverName(dialect), cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("cmd: opening %s connection: %w", dialect, err)
	}

	return &connection{conn: db.New(raw, dialect), raw: raw, dialect: dialect}, nil
}

func (c *connection) Close() error {
	return c.raw.Close()
}

// Snapshotter builds the introspector for this connection's dialect, used
// by the generate command's live-diff path and the doctor command's
// drift check.
func (c *connection) Snapshotter() introspect.Snapshotter {
	if c.dialect == coltype.Postgres {
		return introspect.NewPostgres(c.raw)
	}
	return introspect.NewSQLite(c.raw)
}

// postgresAdminDSNAndSourceDB derives the admin (maintenance-database)
// connection string and the source database name from a Postgres
// databaseURL, for clonetest.NewPostgresCloner — CREATE DATABASE/DROP
// DATABASE must run from a connection to some database other than the
// one being cloned or dropped (pkg/clonetest's PostgresCloner doc
// comment), conventionally Postgres's own "postgres" maintenance
// database.
func postgresAdminDSNAndSourceDB(databaseURL string) (adminDSN, sourceDB string, err error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", "", fmt.Errorf("cmd: parsing database URL: %w", err)
	}

	sourceDB = strings.TrimPrefix(u.Path, "/")
	if sourceDB == "" {
		return "", "", fmt.Errorf("cmd: database URL %q has no database name", databaseURL)
	}

	admin := *u
	admin.Path = "/postgres"
	return admin.String(), sourceDB, nil
}
