// SPDX-License-Identifier: Apache-2.0

package clonetest_test

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/lib/pq"

	"github.com/momentum-cms/migrate/internal/testutils"
	"github.com/momentum-cms/migrate/pkg/clonetest"
)

func TestMain(m *testing.M) {
	testutils.SharedTestMain(m)
}

func TestPostgresClonerRoundTrip(t *testing.T) {
	t.Parallel()

	testutils.WithConnectionToContainer(t, func(conn *sql.DB, connStr string) {
		ctx := context.Background()

		if _, err := conn.ExecContext(ctx, "CREATE TABLE widgets (id serial primary key, name text)"); err != nil {
			t.Fatal(err)
		}
		if _, err := conn.ExecContext(ctx, "INSERT INTO widgets (name) VALUES ('gear')"); err != nil {
			t.Fatal(err)
		}

		sourceDB := dbNameFromConnStr(t, connStr)
		cloner := clonetest.NewPostgresCloner(testutils.AdminConnectionString(), sourceDB)

		cloneConn, finalName, err := cloner.CloneDatabase(ctx, "_mig_clone_roundtrip_test")
		if err != nil {
			t.Fatalf("CloneDatabase: %v", err)
		}
		if finalName != "_mig_clone_roundtrip_test" {
			t.Fatalf("expected the requested name to be used verbatim, got %q", finalName)
		}

		var name string
		row := cloneConn.QueryRowContext(ctx, "SELECT name FROM widgets WHERE id = 1")
		if err := row.Scan(&name); err != nil {
			t.Fatalf("expected the clone to carry over the template's data: %v", err)
		}
		if name != "gear" {
			t.Fatalf("expected name %q, got %q", "gear", name)
		}

		if err := cloneConn.Close(); err != nil {
			t.Fatal(err)
		}
		if err := cloner.DropClone(ctx, finalName); err != nil {
			t.Fatalf("DropClone: %v", err)
		}
	})
}

func dbNameFromConnStr(t *testing.T, connStr string) string {
	t.Helper()
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var name string
	if err := db.QueryRowContext(context.Background(), "SELECT current_database()").Scan(&name); err != nil {
		t.Fatal(err)
	}
	return name
}
