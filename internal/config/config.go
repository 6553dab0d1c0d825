// SPDX-License-Identifier: Apache-2.0

// Package config loads the engine's configuration from a YAML file, CLI
// flags, and environment variables, via github.com/spf13/viper. Grounded
// on the teacher's cmd/flags/flags.go + cmd/root.go wiring
// (viper.SetEnvPrefix/AutomaticEnv, PersistentFlags bound with
// viper.BindPFlag), generalized from pgroll's flag-only configuration
// (pgroll has no config file) into a YAML-file-plus-flags-plus-env layer,
// since this module's config carries fields — a migrations directory,
// a snapshot path, default-allowed danger severities — that don't map
// naturally onto a single-database CLI invocation the way pgroll's
// postgres-url/schema/pgroll-schema trio does.
package config

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/momentum-cms/migrate/pkg/coltype"
	"github.com/momentum-cms/migrate/pkg/danger"
)

// envPrefix matches SPEC_FULL §10.3: environment overrides are read as
// MOMENTUM_<KEY>, the same AutomaticEnv/SetEnvPrefix convention the
// teacher uses with PGROLL_<KEY>.
const envPrefix = "MOMENTUM"

// Config is the engine's resolved configuration, independent of how any
// individual field was supplied (file, flag, or environment variable).
type Config struct {
	DatabaseURL       string   `mapstructure:"database_url"`
	Dialect           string   `mapstructure:"dialect"`
	MigrationsDir     string   `mapstructure:"migrations_dir"`
	SnapshotPath      string   `mapstructure:"snapshot_path"`
	LockTimeoutMs     int      `mapstructure:"lock_timeout_ms"`
	AllowedSeverities []string `mapstructure:"allowed_severities"`
}

// defaults mirror the teacher's flag defaults (postgres-url, lock-timeout)
// adjusted for this module's dialect-agnostic scope.
var defaults = map[string]interface{}{
	"dialect":            string(coltype.Postgres),
	"migrations_dir":     "./migrations",
	"lock_timeout_ms":    500,
	"allowed_severities": []string{"warning", "info"},
}

// BindFlags registers the persistent flags shared by every subcommand and
// binds each to its viper key, the same pattern as the teacher's
// flags.PgConnectionFlags.
func BindFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	cmd.PersistentFlags().String("database-url", "", "Database connection string")
	cmd.PersistentFlags().String("dialect", "", "Database dialect: postgresql or sqlite")
	cmd.PersistentFlags().String("migrations-dir", "", "Directory containing migration files")
	cmd.PersistentFlags().String("snapshot-path", "", "Directory holding the schema snapshot file .snapshot.json (defaults to <migrations-dir>)")
	cmd.PersistentFlags().Int("lock-timeout", 0, "Lock timeout in milliseconds for DDL operations")

	viper.BindPFlag("database_url", cmd.PersistentFlags().Lookup("database-url"))
	viper.BindPFlag("dialect", cmd.PersistentFlags().Lookup("dialect"))
	viper.BindPFlag("migrations_dir", cmd.PersistentFlags().Lookup("migrations-dir"))
	viper.BindPFlag("snapshot_path", cmd.PersistentFlags().Lookup("snapshot-path"))
	viper.BindPFlag("lock_timeout_ms", cmd.PersistentFlags().Lookup("lock-timeout"))
}

// Load reads configuration from configPath (if non-empty), layers in
// environment variable overrides, and returns the resolved Config. An
// empty configPath is valid: flags/env/defaults alone may fully specify
// the configuration.
func Load(configPath string) (*Config, error) {
	v := viper.GetViper()

	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %q: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: parsing configuration: %w", err)
	}

	if cfg.SnapshotPath == "" {
		cfg.SnapshotPath = cfg.MigrationsDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the resolved configuration is usable, per spec.md
// §7's Validation error kind ("invalid config" — fail-fast to caller).
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("config: database_url is required")
	}
	switch coltype.Dialect(c.Dialect) {
	case coltype.Postgres, coltype.SQLite:
	default:
		return fmt.Errorf("config: unsupported dialect %q (want %q or %q)", c.Dialect, coltype.Postgres, coltype.SQLite)
	}
	if c.MigrationsDir == "" {
		return fmt.Errorf("config: migrations_dir is required")
	}
	for _, name := range c.AllowedSeverities {
		if _, err := parseSeverity(name); err != nil {
			return err
		}
	}
	return nil
}

// AllowedSeverityValues parses AllowedSeverities into danger.Severity
// values, for callers deciding whether a danger report's worst severity
// is within the operator's configured tolerance.
func (c *Config) AllowedSeverityValues() ([]danger.Severity, error) {
	out := make([]danger.Severity, 0, len(c.AllowedSeverities))
	for _, name := range c.AllowedSeverities {
		sev, err := parseSeverity(name)
		if err != nil {
			return nil, err
		}
		out = append(out, sev)
	}
	return out, nil
}

func parseSeverity(name string) (danger.Severity, error) {
	switch name {
	case "error":
		return danger.SeverityError, nil
	case "warning":
		return danger.SeverityWarning, nil
	case "info":
		return danger.SeverityInfo, nil
	default:
		return 0, fmt.Errorf("config: unknown danger severity %q", name)
	}
}
