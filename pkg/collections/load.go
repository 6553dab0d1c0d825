// SPDX-License-Identifier: Apache-2.0

package collections

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// configFile is the on-disk shape of a collections config: a bare list
// under a top-level `collections` key, so a project's config file reads
// naturally alongside its other top-level settings rather than being a
// bare YAML sequence.
type configFile struct {
	Collections []Collection `yaml:"collections"`
}

// Load reads a collections config file (the "desired" side of a diff,
// spec.md §4.4/§4.5) from path.
func Load(path string) ([]Collection, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("collections: reading %q: %w", path, err)
	}

	var cfg configFile
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("collections: parsing %q: %w", path, err)
	}
	return cfg.Collections, nil
}
