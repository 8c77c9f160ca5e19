// SPDX-License-Identifier: Apache-2.0

package squash

import (
	"context"
	"fmt"

	"github.com/flysquash/flysquash/pkg/backup"
)

// RestoreOptions controls how a backup is put back in place.
type RestoreOptions struct {
	// Force overwrites a non-empty migrations directory.
	Force bool

	// WithDatabase also feeds the database dump to psql. The dump is a
	// plain-format full dump and applies cleanly to an empty database.
	WithDatabase bool
}

// Restore undoes a squash from the given backup directory: the old
// migration files are copied back, and optionally the database dump is
// replayed through psql.
func (s *Squash) Restore(ctx context.Context, backupDir string, opts RestoreOptions) error {
	b, err := backup.Open(backupDir)
	if err != nil {
		return err
	}

	if err := b.RestoreFiles(opts.Force); err != nil {
		return err
	}
	s.logger.Info("restored migration files", "count", len(b.Manifest().Files), "dir", b.Manifest().MigrationsDir)

	if !opts.WithDatabase {
		return nil
	}

	if b.Manifest().DatabaseDump == "" {
		return fmt.Errorf("%w: %s", backup.ErrDumpMissing, backupDir)
	}

	if err := s.tools.RestoreFile(ctx, b.DatabaseDumpPath()); err != nil {
		return fmt.Errorf("failed to restore database: %w", err)
	}
	s.logger.Info("restored database", "dump", b.DatabaseDumpPath())

	return nil
}
