// SPDX-License-Identifier: Apache-2.0

// Package cmd wires the engine's public API onto a cobra CLI: the four
// commands of spec.md §6 (generate, run, status, rollback) plus the
// validate/doctor paths SPEC_FULL §12 adds around them. Grounded on the
// teacher's cmd/root.go (persistent-flag wiring via viper, one *cobra.
// Command per subcommand, SilenceUsage so a RunE error doesn't also dump
// --help text); generalized from pgroll's flag-only connection config to
// this module's config.BindFlags, since spec.md §6 has every command take
// a config path rather than a handful of postgres-url/schema flags.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/momentum-cms/migrate/internal/config"
)

// Version is overridden at build time via -ldflags.
var Version = "development"

var rootCmd = &cobra.Command{
	Use:          "migrate",
	Short:        "Declarative collection-to-schema migration engine",
	SilenceUsage: true,
	Version:      Version,
}

func init() {
	config.BindFlags(rootCmd)
}

// Execute runs the root command, registering every subcommand first. The
// CLI is glue over the library packages (SPEC_FULL §6): every RunE below
// does nothing a caller embedding this module as a library couldn't do
// itself with pkg/migrate, pkg/clonetest, and pkg/codegen directly.
func Execute() error {
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(rollbackCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(doctorCmd())

	return rootCmd.Execute()
}
