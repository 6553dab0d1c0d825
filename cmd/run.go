// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/momentum-cms/migrate/pkg/clonetest"
	"github.com/momentum-cms/migrate/pkg/coltype"
	"github.com/momentum-cms/migrate/pkg/loader"
	"github.com/momentum-cms/migrate/pkg/migrate"
)

// runCmd applies pending migrations, per spec.md §6's four flags:
// --dry-run runs the static validate path instead of touching a database;
// --test-only runs the clone-test-apply pipeline but stops after the
// clone proves out, never touching the real connection; --skip-clone-test
// bypasses the pipeline and applies directly.
func runCmd() *cobra.Command {
	var dryRun bool
	var testOnly bool
	var skipCloneTest bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			migrations, err := loader.Load(cfg.MigrationsDir)
			if err != nil {
				return err
			}
			if len(migrations) == 0 {
				pterm.Info.Println("No migration files found")
				return nil
			}

			dialect, err := coltype.ParseDialect(cfg.Dialect)
			if err != nil {
				return err
			}

			if dryRun {
				result, err := migrate.ValidateMigrationsDir(cfg.MigrationsDir, dialect)
				if err != nil {
					return err
				}
				return printDangerReport(result.Danger)
			}

			conn, err := openConnection(cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			log := loader.NewLogger()

			if skipCloneTest {
				sp, _ := pterm.DefaultSpinner.WithText("Applying migrations...").Start()
				runner := migrate.NewRunner(conn.conn, log)
				result, err := runner.Run(cmd.Context(), migrations, migrate.RunOptions{})
				if err != nil {
					sp.Fail(err.Error())
					return err
				}
				return reportRunResult(sp, result)
			}

			if dialect != coltype.Postgres {
				return fmt.Errorf("run: clone-test-apply is only available for postgresql; pass --skip-clone-test for sqlite")
			}

			adminDSN, sourceDB, err := postgresAdminDSNAndSourceDB(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			cloner := clonetest.NewPostgresCloner(adminDSN, sourceDB)
			pipeline := clonetest.NewPipeline(conn.conn, cloner, log)

			sp, _ := pterm.DefaultSpinner.WithText("Running clone-test-apply pipeline...").Start()
			result := pipeline.Run(cmd.Context(), migrations, testOnly)
			return reportPipelineResult(sp, result)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Check migrations for dangerous operations without applying them")
	cmd.Flags().BoolVar(&testOnly, "test-only", false, "Run migrations against a disposable clone only, never the real database")
	cmd.Flags().BoolVar(&skipCloneTest, "skip-clone-test", false, "Apply directly, skipping the clone-test-apply pipeline")

	return cmd
}

func reportRunResult(sp *pterm.SpinnerPrinter, result *migrate.MigrateResult) error {
	if result.Danger != nil && result.Danger.HasErrors {
		sp.Fail("Blocked by dangerous operations")
		return printDangerReport(result.Danger)
	}
	if result.FailCount > 0 {
		failing := result.Results[len(result.Results)-1]
		sp.Fail(fmt.Sprintf("Applied %d migration(s), failed on %q: %s", result.SuccessCount, failing.Name, failing.Error))
		return fmt.Errorf("run: %d migration(s) failed", result.FailCount)
	}
	if result.SuccessCount == 0 {
		sp.Success("Already up to date")
		return nil
	}
	sp.Success(fmt.Sprintf("Applied %d migration(s)", result.SuccessCount))
	return nil
}

func reportPipelineResult(sp *pterm.SpinnerPrinter, result *clonetest.Result) error {
	switch result.Phase {
	case clonetest.PhaseClone:
		sp.Fail(fmt.Sprintf("Failed to create clone: %s", result.Error))
		return result.Error
	case clonetest.PhaseTest:
		if result.Error != nil {
			sp.Fail(fmt.Sprintf("Failed running migrations against clone: %s", result.Error))
			return result.Error
		}
		sp.Fail("Migrations failed against the clone")
		for _, s := range result.Suggestions {
			fmt.Println("  - " + s)
		}
		return fmt.Errorf("run: clone test failed")
	case clonetest.PhaseSkipped:
		sp.Success("Clone test passed (--test-only: real database left untouched)")
		return nil
	case clonetest.PhaseApply:
		if result.Error != nil {
			sp.Fail(fmt.Sprintf("Clone passed but applying to the real database failed: %s", result.Error))
			return result.Error
		}
		sp.Fail("Clone passed but applying to the real database failed")
		for _, s := range result.Suggestions {
			fmt.Println("  - " + s)
		}
		return fmt.Errorf("run: apply failed after a successful clone test")
	case clonetest.PhaseComplete:
		sp.Success(fmt.Sprintf("Applied %d migration(s) (clone-verified)", result.ApplyResult.SuccessCount))
		return nil
	default:
		sp.Fail(fmt.Sprintf("Unexpected pipeline phase %q", result.Phase))
		return fmt.Errorf("run: unexpected pipeline phase %q", result.Phase)
	}
}
