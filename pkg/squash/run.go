// SPDX-License-Identifier: Apache-2.0

package squash

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/flysquash/flysquash/pkg/backup"
)

var (
	// ErrNothingToSquash is returned when the history table is empty and no
	// explicit baseline version was configured.
	ErrNothingToSquash = errors.New("migration history is empty; nothing to squash")

	// ErrVerifyFailed is returned when the post-squash verification finds
	// the database in an unexpected state.
	ErrVerifyFailed = errors.New("verification failed")
)

// stagingBaselineFile is the name of the exported schema within the backup
// directory before it is installed into the migrations directory.
const stagingBaselineFile = "baseline.sql"

// Result summarizes a completed squash.
type Result struct {
	Version      string `json:"version"`
	BaselineFile string `json:"baseline_file"`
	BackupDir    string `json:"backup_dir"`
	RowsCleared  int64  `json:"rows_cleared"`
}

// Backup copies the migration files into a new backup directory and takes a
// full pg_dump of the database alongside them.
func (s *Squash) Backup(ctx context.Context) (*backup.Backup, error) {
	s.logger.LogStepStart(StepBackup, "migrations_dir", s.cfg.MigrationsDir)

	b, err := backup.Create(s.cfg.BackupDir, s.cfg.MigrationsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to back up migration files: %w", err)
	}

	if err := s.tools.DumpAll(ctx, b.DatabaseDumpPath()); err != nil {
		return nil, fmt.Errorf("failed to back up database: %w", err)
	}

	if err := b.SetDatabaseDump(); err != nil {
		return nil, err
	}

	s.logger.LogStepComplete(StepBackup, "backup_dir", b.Dir())

	return b, nil
}

// ExportBaseline dumps the current schema (without the history table) to
// outFile and checks that the result parses as PostgreSQL.
func (s *Squash) ExportBaseline(ctx context.Context, outFile string) error {
	s.logger.LogStepStart(StepExport, "file", outFile)

	if err := s.tools.DumpSchema(ctx, outFile, s.qualifiedHistoryTable()); err != nil {
		return fmt.Errorf("failed to export schema: %w", err)
	}

	if err := ValidateBaselineSQL(outFile); err != nil {
		return err
	}

	s.logger.LogStepComplete(StepExport, "file", outFile)

	return nil
}

// ClearHistory deletes every row from the history table and returns the
// number of rows removed.
func (s *Squash) ClearHistory(ctx context.Context) (int64, error) {
	s.logger.LogStepStart(StepClear, "table", s.qualifiedHistoryTable())

	st, err := s.store(ctx)
	if err != nil {
		return 0, err
	}

	deleted, err := st.ClearHistory(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to clear migration history: %w", err)
	}

	s.logger.LogStepComplete(StepClear, "rows_deleted", deleted)

	return deleted, nil
}

// InstallBaseline removes the old migration files (already saved in the
// backup), writes the exported baseline as the sole migration, and records
// the baseline in the history table via flyway. It returns the path of the
// installed baseline file.
func (s *Squash) InstallBaseline(ctx context.Context, b *backup.Backup, exportFile, version string) (string, error) {
	s.logger.LogStepStart(StepInstall, "version", version)

	if err := b.RemoveOriginals(); err != nil {
		return "", err
	}

	target := filepath.Join(s.cfg.MigrationsDir, BaselineFileName(version, s.cfg.BaselineDescription))
	if err := copyFile(exportFile, target); err != nil {
		return "", fmt.Errorf("failed to install baseline migration: %w", err)
	}

	if err := s.flyway.Baseline(ctx, version, s.cfg.BaselineDescription); err != nil {
		return "", fmt.Errorf("failed to create flyway baseline: %w", err)
	}

	s.logger.LogStepComplete(StepInstall, "file", target)

	return target, nil
}

// Repair realigns the history table checksums with the baseline file.
func (s *Squash) Repair(ctx context.Context) error {
	s.logger.LogStepStart(StepRepair)

	if err := s.flyway.Repair(ctx); err != nil {
		return fmt.Errorf("failed to repair checksums: %w", err)
	}

	s.logger.LogStepComplete(StepRepair)

	return nil
}

// Verify checks the squash result from three angles: flyway validate must
// pass, the history table must hold exactly the baseline row, and the row
// counts reported by flyway and psql must agree with the one read over SQL.
func (s *Squash) Verify(ctx context.Context) error {
	s.logger.LogStepStart(StepVerify)

	if err := s.flyway.Validate(ctx); err != nil {
		return fmt.Errorf("%w: %s", ErrVerifyFailed, err)
	}

	st, err := s.store(ctx)
	if err != nil {
		return err
	}

	baselineOnly, err := st.BaselineOnly(ctx)
	if err != nil {
		return fmt.Errorf("failed to inspect history table: %w", err)
	}
	if !baselineOnly {
		return fmt.Errorf("%w: history table does not contain exactly the baseline row", ErrVerifyFailed)
	}

	flywayCount, err := s.flyway.AppliedCount(ctx)
	if err != nil {
		return fmt.Errorf("failed to read applied count from flyway: %w", err)
	}
	if flywayCount != 1 {
		return fmt.Errorf("%w: flyway reports %d applied migrations, want 1", ErrVerifyFailed, flywayCount)
	}

	rawCount, err := s.tools.SelectValue(ctx,
		fmt.Sprintf("SELECT count(*) FROM %s", s.qualifiedHistoryTable()))
	if err != nil {
		return fmt.Errorf("failed to count history rows via psql: %w", err)
	}
	psqlCount, err := strconv.Atoi(rawCount)
	if err != nil {
		return fmt.Errorf("%w: could not parse row count %q from psql output", ErrVerifyFailed, rawCount)
	}
	if psqlCount != 1 {
		return fmt.Errorf("%w: psql reports %d history rows, want 1", ErrVerifyFailed, psqlCount)
	}

	s.logger.LogStepComplete(StepVerify)

	return nil
}

// Run executes the full squash sequence. Steps run in a fixed order and the
// first failure stops the run; nothing destructive happens before both the
// file and database backups have succeeded.
func (s *Squash) Run(ctx context.Context) (*Result, error) {
	version, err := s.resolveBaselineVersion(ctx)
	if err != nil {
		return nil, err
	}

	report, err := s.Check(ctx)
	if err != nil {
		return nil, err
	}
	if err := report.Err(); err != nil {
		return nil, err
	}

	b, err := s.Backup(ctx)
	if err != nil {
		return nil, err
	}

	exportFile := filepath.Join(b.Dir(), stagingBaselineFile)
	if err := s.ExportBaseline(ctx, exportFile); err != nil {
		return nil, err
	}

	deleted, err := s.ClearHistory(ctx)
	if err != nil {
		return nil, err
	}

	baselineFile, err := s.InstallBaseline(ctx, b, exportFile, version)
	if err != nil {
		return nil, err
	}

	if err := s.Repair(ctx); err != nil {
		return nil, err
	}

	if err := s.Verify(ctx); err != nil {
		return nil, err
	}

	return &Result{
		Version:      version,
		BaselineFile: baselineFile,
		BackupDir:    b.Dir(),
		RowsCleared:  deleted,
	}, nil
}

// resolveBaselineVersion returns the configured baseline version, falling
// back to the latest applied version in the history table.
func (s *Squash) resolveBaselineVersion(ctx context.Context) (string, error) {
	if s.cfg.BaselineVersion != "" {
		return s.cfg.BaselineVersion, nil
	}

	st, err := s.store(ctx)
	if err != nil {
		return "", err
	}

	latest, err := st.LatestVersion(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to determine latest version: %w", err)
	}
	if latest == nil {
		return "", ErrNothingToSquash
	}

	return *latest, nil
}

// BaselineFileName returns the Flyway file name for a baseline migration.
func BaselineFileName(version, description string) string {
	return fmt.Sprintf("V%s__%s.sql", version, description)
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
