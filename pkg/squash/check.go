// SPDX-License-Identifier: Apache-2.0

package squash

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/flysquash/flysquash/pkg/flyway"
	"github.com/flysquash/flysquash/pkg/pgtool"
)

// ErrCheckFailed is returned when the environment check finds problems.
var ErrCheckFailed = errors.New("environment check failed")

// CheckReport is the outcome of validating the environment before a squash.
type CheckReport struct {
	Binaries          map[string]string `json:"binaries"`
	FlywayVersion     string            `json:"flyway_version,omitempty"`
	DatabaseReachable bool              `json:"database_reachable"`
	HistoryTable      bool              `json:"history_table_exists"`
	MigrationFiles    int               `json:"migration_files"`
	Problems          []string          `json:"problems,omitempty"`
}

// Ok reports whether the environment passed every check.
func (r *CheckReport) Ok() bool {
	return len(r.Problems) == 0
}

// Err returns ErrCheckFailed annotated with the problems found, or nil when
// the report is clean.
func (r *CheckReport) Err() error {
	if r.Ok() {
		return nil
	}

	errs := make([]error, 0, len(r.Problems)+1)
	errs = append(errs, ErrCheckFailed)
	for _, p := range r.Problems {
		errs = append(errs, errors.New(p))
	}
	return errors.Join(errs...)
}

// Check validates the environment: the external binaries resolve, the
// Flyway version is supported, the database is reachable, the history table
// exists, and there are migration files to squash.
func (s *Squash) Check(ctx context.Context) (*CheckReport, error) {
	s.logger.LogStepStart(StepCheck)

	report := &CheckReport{Binaries: map[string]string{}}

	flywayFound := s.checkBinary(report, binaryOrDefault(s.cfg.FlywayBin, flyway.DefaultBin))
	s.checkBinary(report, binaryOrDefault(s.cfg.PSQLBin, pgtool.DefaultPSQLBin))
	s.checkBinary(report, binaryOrDefault(s.cfg.PGDumpBin, pgtool.DefaultPGDumpBin))

	if flywayFound {
		version, err := s.flyway.Version(ctx)
		if err != nil {
			report.Problems = append(report.Problems, fmt.Sprintf("could not determine flyway version: %s", err))
		} else {
			report.FlywayVersion = version
			if err := flyway.CheckMinVersion(version); err != nil {
				report.Problems = append(report.Problems, err.Error())
			}
		}
	}

	st, err := s.store(ctx)
	if err == nil {
		err = st.Ping(ctx)
	}
	if err != nil {
		report.Problems = append(report.Problems, fmt.Sprintf("database is not reachable: %s", err))
	} else {
		report.DatabaseReachable = true

		exists, err := st.HistoryTableExists(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to check for history table: %w", err)
		}
		report.HistoryTable = exists
		if !exists {
			report.Problems = append(report.Problems,
				fmt.Sprintf("history table %s does not exist", s.qualifiedHistoryTable()))
		}
	}

	report.MigrationFiles = countMigrationFiles(s.cfg.MigrationsDir)
	if report.MigrationFiles == 0 {
		report.Problems = append(report.Problems,
			fmt.Sprintf("migrations directory %q is missing or empty", s.cfg.MigrationsDir))
	}

	s.logger.LogStepComplete(StepCheck, "problems", len(report.Problems))

	return report, nil
}

func (s *Squash) checkBinary(report *CheckReport, bin string) bool {
	path, err := s.runner.LookPath(bin)
	if err != nil {
		report.Binaries[bin] = ""
		report.Problems = append(report.Problems, fmt.Sprintf("binary %q not found", bin))
		return false
	}

	report.Binaries[bin] = path
	return true
}

func binaryOrDefault(bin, def string) string {
	if bin == "" {
		return def
	}
	return bin
}

func countMigrationFiles(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}

	count := 0
	for _, e := range entries {
		if !e.IsDir() {
			count++
		}
	}
	return count
}
