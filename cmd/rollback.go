// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/momentum-cms/migrate/pkg/loader"
	"github.com/momentum-cms/migrate/pkg/migrate"
)

func rollbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback",
		Short: "Roll back the most recently applied batch of migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			migrations, err := loader.Load(cfg.MigrationsDir)
			if err != nil {
				return err
			}

			conn, err := openConnection(cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			sp, _ := pterm.DefaultSpinner.WithText("Rolling back latest batch...").Start()

			runner := migrate.NewRunner(conn.conn, loader.NewLogger())
			result, err := runner.Rollback(cmd.Context(), migrations)
			if err != nil {
				sp.Fail(fmt.Sprintf("Failed to roll back: %s", err))
				return err
			}

			if result.FailCount > 0 {
				failing := result.Results[len(result.Results)-1]
				sp.Fail(fmt.Sprintf("Rolled back %d migration(s), failed on %q: %s",
					result.SuccessCount, failing.Name, failing.Error))
				return fmt.Errorf("rollback: %d migration(s) failed", result.FailCount)
			}

			if result.SuccessCount == 0 {
				sp.Success("No applied migrations to roll back")
				return nil
			}

			sp.Success(fmt.Sprintf("Rolled back %d migration(s)", result.SuccessCount))
			return nil
		},
	}
}
