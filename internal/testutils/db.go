// SPDX-License-Identifier: Apache-2.0

// Package testutils provides the shared Postgres test-container harness
// used by integration tests across the module, plus a few PostgreSQL
// error condition-name constants (error_codes.go). Grounded directly on
// the teacher's pkg/testutils (util.go,
// db.go).
package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math/rand"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// defaultPostgresVersion is used when POSTGRES_VERSION is unset.
const defaultPostgresVersion = "15.3"

// tConnStr holds the connection string to the container created in
// SharedTestMain, shared by every test in the package that calls it.
var tConnStr string

// SharedTestMain starts one postgres container for an entire test binary.
// Each test then calls WithConnectionToContainer to get its own database
// within that container, so tests can run in parallel without racing over
// shared tables.
func SharedTestMain(m *testing.M) {
	ctx := context.Background()

	pgVersion := os.Getenv("POSTGRES_VERSION")
	if pgVersion == "" {
		pgVersion = defaultPostgresVersion
	}

	ctr, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:"+pgVersion),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		os.Exit(1)
	}

	tConnStr, err = ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		os.Exit(1)
	}

	exitCode := m.Run()

	if err := ctr.Terminate(ctx); err != nil {
		log.Printf("failed to terminate container: %v", err)
	}

	os.Exit(exitCode)
}

// AdminConnectionString returns the connection string to the shared
// container's default maintenance database, for tests that need a second
// connection outside the per-test database WithConnectionToContainer
// hands back — e.g. pkg/clonetest's PostgresCloner, which must issue
// CREATE DATABASE/DROP DATABASE from a connection to some database other
// than the one being cloned or dropped.
func AdminConnectionString() string {
	return tConnStr
}

// WithConnectionToContainer creates a fresh database in the shared
// container and hands fn a connection to it. Afterward the connections are
// closed; the database itself is not dropped.
func WithConnectionToContainer(t *testing.T, fn func(db *sql.DB, connStr string)) {
	t.Helper()

	db, connStr, _ := setupTestDatabase(t)

	fn(db, connStr)
}

func setupTestDatabase(t *testing.T) (*sql.DB, string, string) {
	t.Helper()
	ctx := context.Background()

	tDB, err := sql.Open("postgres", tConnStr)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := tDB.Close(); err != nil {
			t.Fatalf("failed to close database connection: %v", err)
		}
	})

	dbName := randomDBName()

	_, err = tDB.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE %s", pq.QuoteIdentifier(dbName)))
	if err != nil {
		t.Fatal(err)
	}

	u, err := url.Parse(tConnStr)
	if err != nil {
		t.Fatal(err)
	}
	u.Path = "/" + dbName
	connStr := u.String()

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Fatalf("failed to close database connection: %v", err)
		}
	})

	return db, connStr, dbName
}

func randomDBName() string {
	const length = 15
	const charset = "abcdefghijklmnopqrstuvwxyz"

	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))] // #nosec G404
	}

	return "testdb_" + string(b)
}
