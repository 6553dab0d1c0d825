// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/momentum-cms/migrate/pkg/loader"
	"github.com/momentum-cms/migrate/pkg/migrate"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
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

			runner := migrate.NewRunner(conn.conn, loader.NewLogger())
			entries, err := runner.Status(cmd.Context(), migrations)
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				pterm.Info.Println("No migration files found")
				return nil
			}

			table := pterm.TableData{{"Name", "Status", "Batch", "Applied At"}}
			for _, e := range entries {
				batch := ""
				if e.Status == migrate.StatusApplied {
					batch = fmt.Sprintf("%d", e.Batch)
				}
				table = append(table, []string{e.Name, e.Status, batch, e.AppliedAt})
			}

			return pterm.DefaultTable.WithHasHeader().WithData(table).Render()
		},
	}
}
