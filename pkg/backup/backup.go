// SPDX-License-Identifier: Apache-2.0

// Package backup takes and restores file-level backups of a migrations
// directory. Each backup lives in its own timestamped directory under the
// backup root, together with a manifest and the database dump taken at the
// same time.
package backup

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
)

const (
	// ManifestFile is the name of the manifest within a backup directory.
	ManifestFile = "manifest.yaml"

	// DatabaseDumpFile is the name of the pg_dump output within a backup
	// directory.
	DatabaseDumpFile = "database.sql"

	migrationsSubdir = "migrations"
)

var (
	ErrNoMigrations      = errors.New("migrations directory is missing or empty")
	ErrTargetNotEmpty    = errors.New("migrations directory is not empty; use --force to overwrite")
	ErrManifestNotFound  = errors.New("backup directory has no manifest")
	ErrIncompleteBackup  = errors.New("backup is missing files listed in its manifest")
	ErrDumpMissing       = errors.New("backup has no database dump")
	errBackupDirOccupied = errors.New("backup directory already exists")
)

// Backup is a single backup directory on disk.
type Backup struct {
	dir      string
	manifest Manifest
}

// Create takes a new backup of migrationsDir under backupRoot. All regular
// files in migrationsDir are copied into the backup; an empty or missing
// migrations directory is an error, so a misconfigured path can never
// produce an empty safety net.
func Create(backupRoot, migrationsDir string) (*Backup, error) {
	files, err := listMigrationFiles(migrationsDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMigrations, migrationsDir)
	}

	dir := filepath.Join(backupRoot, newBackupName())
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("%w: %s", errBackupDirOccupied, dir)
	}

	if err := os.MkdirAll(filepath.Join(dir, migrationsSubdir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	for _, f := range files {
		src := filepath.Join(migrationsDir, f)
		dst := filepath.Join(dir, migrationsSubdir, f)
		if err := copyFile(src, dst); err != nil {
			return nil, fmt.Errorf("failed to back up %q: %w", f, err)
		}
	}

	b := &Backup{
		dir: dir,
		manifest: Manifest{
			ID:            uuid.NewString(),
			CreatedAt:     time.Now().UTC(),
			MigrationsDir: migrationsDir,
			Files:         files,
		},
	}

	if err := b.writeManifest(); err != nil {
		return nil, err
	}

	return b, nil
}

// Open loads an existing backup from its directory.
func Open(dir string) (*Backup, error) {
	m, err := readManifest(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}

	return &Backup{dir: dir, manifest: *m}, nil
}

func (b *Backup) Dir() string {
	return b.dir
}

func (b *Backup) Manifest() Manifest {
	return b.manifest
}

// DatabaseDumpPath returns the path at which the database dump belonging to
// this backup is (or should be) stored.
func (b *Backup) DatabaseDumpPath() string {
	return filepath.Join(b.dir, DatabaseDumpFile)
}

// SetDatabaseDump records that the database dump has been taken and
// rewrites the manifest.
func (b *Backup) SetDatabaseDump() error {
	if _, err := os.Stat(b.DatabaseDumpPath()); err != nil {
		return fmt.Errorf("%w: %s", ErrDumpMissing, b.DatabaseDumpPath())
	}

	b.manifest.DatabaseDump = DatabaseDumpFile
	return b.writeManifest()
}

// RemoveOriginals deletes the backed-up migration files from the source
// migrations directory. Only files listed in the manifest are touched.
func (b *Backup) RemoveOriginals() error {
	for _, f := range b.manifest.Files {
		if err := os.Remove(filepath.Join(b.manifest.MigrationsDir, f)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove original migration %q: %w", f, err)
		}
	}
	return nil
}

// RestoreFiles copies the backed-up migration files back into the original
// migrations directory. Unless force is set, a non-empty target directory
// is refused.
func (b *Backup) RestoreFiles(force bool) error {
	if !force {
		existing, err := listMigrationFiles(b.manifest.MigrationsDir)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if len(existing) > 0 {
			return fmt.Errorf("%w: %s", ErrTargetNotEmpty, b.manifest.MigrationsDir)
		}
	}

	if err := os.MkdirAll(b.manifest.MigrationsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create migrations directory: %w", err)
	}

	for _, f := range b.manifest.Files {
		src := filepath.Join(b.dir, migrationsSubdir, f)
		if _, err := os.Stat(src); err != nil {
			return fmt.Errorf("%w: %s", ErrIncompleteBackup, f)
		}

		dst := filepath.Join(b.manifest.MigrationsDir, f)
		if err := copyFile(src, dst); err != nil {
			return fmt.Errorf("failed to restore %q: %w", f, err)
		}
	}

	return nil
}

func newBackupName() string {
	// Timestamp for humans, a short unique suffix for safety when two
	// backups land within the same second.
	return fmt.Sprintf("%s_%s", time.Now().UTC().Format("20060102T150405"), uuid.NewString()[:8])
}

func listMigrationFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)

	return files, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		return errors.Join(err, out.Close())
	}

	return out.Close()
}
