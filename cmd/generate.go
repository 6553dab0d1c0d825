// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/momentum-cms/migrate/internal/config"
	"github.com/momentum-cms/migrate/pkg/codegen"
	"github.com/momentum-cms/migrate/pkg/collections"
	"github.com/momentum-cms/migrate/pkg/coltype"
	"github.com/momentum-cms/migrate/pkg/diff"
	"github.com/momentum-cms/migrate/pkg/loader"
	"github.com/momentum-cms/migrate/pkg/schema"
)

// generateCmd diffs a collections config (the "desired" schema) against
// the actual one and writes a new timestamped migration file containing
// the result, letting the operator inspect and hand-edit before running
// it (SPEC_FULL §12, grounded in the teacher's cmd/create.go scaffold,
// simplified to non-interactive generation since operations here come
// from a diff rather than prompts).
func generateCmd() *cobra.Command {
	var name string
	var collectionsPath string
	var fromSnapshot bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a migration file from the difference between the desired and actual schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if name == "" {
				return fmt.Errorf("generate: --name is required")
			}
			if collectionsPath == "" {
				return fmt.Errorf("generate: --collections is required")
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			dialect, err := coltype.ParseDialect(cfg.Dialect)
			if err != nil {
				return err
			}

			cols, err := collections.Load(collectionsPath)
			if err != nil {
				return err
			}

			capturedAt := time.Now().UTC().Format(time.RFC3339)
			desired := collections.Build(cols, dialect, capturedAt)

			actual, err := resolveActualSchema(cmd.Context(), cfg, dialect, fromSnapshot, capturedAt)
			if err != nil {
				return err
			}

			result := diff.Diff(actual, desired, dialect, diff.DefaultOptions())
			if !result.HasChanges {
				pterm.Info.Println("No changes detected; nothing to generate")
				return nil
			}

			fileName := fmt.Sprintf("%s_%s", time.Now().UTC().Format("20060102150405"), name)
			migration := codegen.Migration{Name: fileName, Description: name, Operations: result.Operations}

			src, err := codegen.Render(migration)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(cfg.MigrationsDir, 0o755); err != nil {
				return fmt.Errorf("generate: creating %q: %w", cfg.MigrationsDir, err)
			}

			path := filepath.Join(cfg.MigrationsDir, fileName+".go")
			if err := os.WriteFile(path, src, 0o644); err != nil {
				return fmt.Errorf("generate: writing %q: %w", path, err)
			}

			newSnapshot := schema.New(dialect, desired.Tables, capturedAt)
			if err := loader.WriteSnapshot(cfg.SnapshotPath, newSnapshot); err != nil {
				return err
			}

			pterm.Success.Printf("Wrote %s (%d operation(s)):\n", path, len(result.Operations))
			for _, summary := range result.Summary {
				fmt.Println("  - " + summary)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Descriptive name for the generated migration file")
	cmd.Flags().StringVar(&collectionsPath, "collections", "", "Path to the collections config file (the desired schema)")
	cmd.Flags().BoolVar(&fromSnapshot, "from-snapshot", false, "Diff against the last-written snapshot instead of introspecting a live database")

	return cmd
}

// resolveActualSchema is the diff's actual side: a live introspection by
// default, or the last-written snapshot when --from-snapshot is set (for
// generating against a schema with no reachable database, e.g. in CI).
func resolveActualSchema(ctx context.Context, cfg *config.Config, dialect coltype.Dialect, fromSnapshot bool, capturedAt string) (*schema.DatabaseSchemaSnapshot, error) {
	if fromSnapshot {
		snap, err := loader.ReadSnapshot(cfg.SnapshotPath)
		if err != nil {
			return nil, err
		}
		if snap == nil {
			return schema.New(dialect, nil, capturedAt), nil
		}
		return snap, nil
	}

	conn, err := openConnection(cfg)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	return conn.Snapshotter().Snapshot(ctx, capturedAt)
}
