// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/momentum-cms/migrate/pkg/coltype"
	"github.com/momentum-cms/migrate/pkg/danger"
	"github.com/momentum-cms/migrate/pkg/migrate"
)

// validateCmd wraps migrate.ValidateMigrationsDir: a static check over
// declared operations with no database connection (SPEC_FULL §12). `run
// --dry-run` calls the same function rather than duplicating this logic.
func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check migration files for dangerous operations without touching a database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			dialect, err := coltype.ParseDialect(cfg.Dialect)
			if err != nil {
				return err
			}

			result, err := migrate.ValidateMigrationsDir(cfg.MigrationsDir, dialect)
			if err != nil {
				return err
			}

			return printDangerReport(result.Danger)
		},
	}
}

// printDangerReport renders a danger.Report as a pterm table and returns
// a non-zero-exit error when it contains any error-severity warning
// (spec.md §6's exit-code convention: "blocked by dangers" is a failure).
// A nil or empty report prints a "No dangerous operations found" success
// line and returns nil.
func printDangerReport(report *danger.Report) error {
	if report == nil || len(report.Warnings) == 0 {
		pterm.Success.Println("No dangerous operations found")
		return nil
	}

	table := pterm.TableData{{"Severity", "Operation", "Message", "Suggestion"}}
	for _, w := range report.Warnings {
		table = append(table, []string{
			w.Severity.String(),
			fmt.Sprintf("#%d %s", w.OperationIndex, w.Operation.Kind()),
			w.Message,
			w.Suggestion,
		})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(table).Render(); err != nil {
		return err
	}

	if report.HasErrors {
		return fmt.Errorf("validate: blocked by %d dangerous operation(s)", len(report.Warnings))
	}
	return nil
}
