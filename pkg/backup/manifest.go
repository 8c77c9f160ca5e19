// SPDX-License-Identifier: Apache-2.0

package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sigs.k8s.io/yaml"
)

// Manifest records what a backup contains and where it came from.
type Manifest struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"createdAt"`
	MigrationsDir string    `json:"migrationsDir"`
	Files         []string  `json:"files"`
	DatabaseDump  string    `json:"databaseDump,omitempty"`
}

func (b *Backup) writeManifest() error {
	yml, err := yaml.Marshal(b.manifest)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	path := filepath.Join(b.dir, ManifestFile)
	if err := os.WriteFile(path, yml, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	return nil
}

func readManifest(path string) (*Manifest, error) {
	yml, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, path)
		}
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(yml, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	return &m, nil
}
