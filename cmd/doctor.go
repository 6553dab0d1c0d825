// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/momentum-cms/migrate/pkg/migrate"
)

// doctorCmd checks the live database's schema against the checksum
// recorded in .snapshot.json, surfacing drift introduced outside of this
// module's migrations (SPEC_FULL §12's Doctor/drift check).
func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the live schema against the recorded snapshot for drift",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			conn, err := openConnection(cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			drift, err := migrate.CheckDrift(cmd.Context(), cfg.SnapshotPath, conn.Snapshotter())
			if err != nil {
				return err
			}

			if drift == nil {
				pterm.Success.Println("No drift detected")
				return nil
			}

			pterm.Warning.Println(drift.Error())
			return fmt.Errorf("doctor: %w", drift)
		},
	}
}
