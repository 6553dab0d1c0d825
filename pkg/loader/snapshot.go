// SPDX-License-Identifier: Apache-2.0

package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/momentum-cms/migrate/pkg/schema"
)

// snapshotFileName is the name of the snapshot file within a migrations
// directory, per spec.md §6.
const snapshotFileName = ".snapshot.json"

// ReadSnapshot reads the snapshot file from dir. A missing file returns
// (nil, nil), matching spec.md §4.10's "missing file on read → null".
func ReadSnapshot(dir string) (*schema.DatabaseSchemaSnapshot, error) {
	path := filepath.Join(dir, snapshotFileName)

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("loader: reading %q: %w", path, err)
	}

	var snap schema.DatabaseSchemaSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("loader: parsing %q: %w", path, err)
	}
	return &snap, nil
}

// WriteSnapshot writes snap to dir's snapshot file as tab-indented JSON,
// creating dir if it doesn't already exist.
func WriteSnapshot(dir string, snap *schema.DatabaseSchemaSnapshot) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("loader: creating %q: %w", dir, err)
	}

	b, err := json.MarshalIndent(snap, "", "\t")
	if err != nil {
		return fmt.Errorf("loader: encoding snapshot: %w", err)
	}

	path := filepath.Join(dir, snapshotFileName)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("loader: writing %q: %w", path, err)
	}
	return nil
}
