// SPDX-License-Identifier: Apache-2.0

package migrate

import (
	"context"
	"fmt"

	"github.com/momentum-cms/migrate/pkg/introspect"
	"github.com/momentum-cms/migrate/pkg/loader"
)

// DriftError reports that the live database's schema no longer matches
// the checksum recorded in .snapshot.json — someone changed the schema
// outside of this module's migrations. Mirrors schema.InvalidSnapshotError's
// shape: a small struct naming what went wrong, not raised past a runner
// boundary (spec.md §7).
type DriftError struct {
	RecordedChecksum string
	ActualChecksum   string
}

func (e *DriftError) Error() string {
	return fmt.Sprintf("schema drift: recorded checksum %s does not match actual checksum %s", e.RecordedChecksum, e.ActualChecksum)
}

// CheckDrift compares the live database's current schema against the
// snapshot recorded in migrationsDir's .snapshot.json (SPEC_FULL §12's
// "Doctor" check). A missing snapshot file is not drift — there's nothing
// recorded yet to have drifted from — so it returns (nil, nil).
func CheckDrift(ctx context.Context, migrationsDir string, snapshotter introspect.Snapshotter) (*DriftError, error) {
	recorded, err := loader.ReadSnapshot(migrationsDir)
	if err != nil {
		return nil, err
	}
	if recorded == nil {
		return nil, nil
	}

	actual, err := snapshotter.Snapshot(ctx, recorded.CapturedAt)
	if err != nil {
		return nil, fmt.Errorf("migrate: introspecting live schema: %w", err)
	}

	if actual.Checksum == recorded.Checksum {
		return nil, nil
	}

	return &DriftError{RecordedChecksum: recorded.Checksum, ActualChecksum: actual.Checksum}, nil
}
