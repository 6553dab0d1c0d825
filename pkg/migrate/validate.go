// SPDX-License-Identifier: Apache-2.0

package migrate

import (
	"github.com/momentum-cms/migrate/pkg/coltype"
	"github.com/momentum-cms/migrate/pkg/danger"
	"github.com/momentum-cms/migrate/pkg/loader"
	"github.com/momentum-cms/migrate/pkg/ops"
)

// ValidateResult is the outcome of ValidateMigrationsDir: a static check
// over declared operations, performed without touching a database.
type ValidateResult struct {
	Danger *danger.Report
}

// ValidateMigrationsDir loads every migration file in dir and runs the
// danger detector over their combined declared operations, without
// applying anything — the `validate` command's path (SPEC_FULL §12),
// useful in CI before a migration ever reaches a real database. A
// directory with no migrations, or migrations that declare no
// operations, validates clean.
func ValidateMigrationsDir(dir string, dialect coltype.Dialect) (*ValidateResult, error) {
	migrations, err := loader.Load(dir)
	if err != nil {
		return nil, err
	}

	var allOps []ops.Operation
	for _, m := range migrations {
		allOps = append(allOps, m.Migration.Meta().Operations...)
	}
	if len(allOps) == 0 {
		return &ValidateResult{}, nil
	}

	return &ValidateResult{Danger: danger.Detect(allOps, dialect)}, nil
}
