// SPDX-License-Identifier: Apache-2.0

package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/flysquash/flysquash/pkg/db"
)

// DefaultHistoryTable is the name Flyway gives its schema history table
// unless configured otherwise.
const DefaultHistoryTable = "flyway_schema_history"

// baselineType is the value Flyway writes to the history table's "type"
// column for a baseline record.
const baselineType = "BASELINE"

// State provides read and write access to the Flyway schema history table
// of a single database.
type State struct {
	pgConn db.DB
	schema string
	table  string
}

// HistoryRow is a single record of the Flyway schema history table.
type HistoryRow struct {
	InstalledRank int       `json:"installed_rank"`
	Version       *string   `json:"version"`
	Description   string    `json:"description"`
	Type          string    `json:"type"`
	Script        string    `json:"script"`
	InstalledOn   time.Time `json:"installed_on"`
	Success       bool      `json:"success"`
}

// Summary describes the current shape of the migration history, as shown by
// the `status` command.
type Summary struct {
	Schema        string  `json:"schema"`
	Table         string  `json:"table"`
	Applied       int     `json:"applied"`
	LatestVersion *string `json:"latest_version"`
	BaselineOnly  bool    `json:"baseline_only"`
}

func New(ctx context.Context, pgURL, schema, table string, lockTimeoutMs int) (*State, error) {
	dsn, err := pq.ParseURL(pgURL)
	if err != nil {
		dsn = pgURL
	}

	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := conn.PingContext(ctx); err != nil {
		return nil, err
	}

	if lockTimeoutMs > 0 {
		_, err = conn.ExecContext(ctx, fmt.Sprintf("SET lock_timeout to '%dms'", lockTimeoutMs))
		if err != nil {
			return nil, fmt.Errorf("unable to set lock_timeout: %w", err)
		}
	}

	if table == "" {
		table = DefaultHistoryTable
	}

	return &State{
		pgConn: &db.RDB{DB: conn},
		schema: schema,
		table:  table,
	}, nil
}

func (s *State) Schema() string {
	return s.schema
}

func (s *State) Table() string {
	return s.table
}

func (s *State) Close() error {
	return s.pgConn.Close()
}

// Ping checks that the database is reachable.
func (s *State) Ping(ctx context.Context) error {
	rows, err := s.pgConn.QueryContext(ctx, "SELECT 1")
	if err != nil {
		return err
	}
	return rows.Close()
}

// HistoryTableExists reports whether the Flyway history table is present in
// the configured schema.
func (s *State) HistoryTableExists(ctx context.Context) (bool, error) {
	rows, err := s.pgConn.QueryContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = $1 AND table_name = $2
		)`, s.schema, s.table)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	var exists bool
	err = db.ScanFirstValue(rows, &exists)
	return exists, err
}

// AppliedCount returns the number of successfully applied migrations
// recorded in the history table.
func (s *State) AppliedCount(ctx context.Context) (int, error) {
	rows, err := s.pgConn.QueryContext(ctx,
		fmt.Sprintf("SELECT count(*) FROM %s WHERE success", s.qualifiedTable()))
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var count int
	err = db.ScanFirstValue(rows, &count)
	return count, err
}

// LatestVersion returns the version of the most recently installed migration,
// or nil if the history is empty. Versionless (repeatable) migrations are
// skipped.
func (s *State) LatestVersion(ctx context.Context) (*string, error) {
	rows, err := s.pgConn.QueryContext(ctx,
		fmt.Sprintf(`SELECT version FROM %s
			WHERE version IS NOT NULL
			ORDER BY installed_rank DESC LIMIT 1`, s.qualifiedTable()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var version sql.NullString
	if err := db.ScanFirstValue(rows, &version); err != nil {
		return nil, err
	}
	if !version.Valid {
		return nil, nil
	}
	return &version.String, nil
}

// History returns all rows of the history table in installation order.
func (s *State) History(ctx context.Context) ([]HistoryRow, error) {
	rows, err := s.pgConn.QueryContext(ctx,
		fmt.Sprintf(`SELECT installed_rank, version, description, type, script, installed_on, success
			FROM %s ORDER BY installed_rank`, s.qualifiedTable()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []HistoryRow
	for rows.Next() {
		var row HistoryRow
		var version sql.NullString

		if err := rows.Scan(&row.InstalledRank, &version, &row.Description, &row.Type,
			&row.Script, &row.InstalledOn, &row.Success); err != nil {
			return nil, fmt.Errorf("row scan: %w", err)
		}
		if version.Valid {
			row.Version = &version.String
		}

		history = append(history, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return history, nil
}

// ClearHistory deletes all rows from the history table and returns the
// number of rows removed. The delete runs in a transaction so a failure
// leaves the history intact.
func (s *State) ClearHistory(ctx context.Context) (int64, error) {
	var deleted int64

	err := s.pgConn.WithRetryableTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", s.qualifiedTable()))
		if err != nil {
			return err
		}

		deleted, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}

	return deleted, nil
}

// BaselineOnly reports whether the history consists of exactly one baseline
// record, the expected state after a successful squash.
func (s *State) BaselineOnly(ctx context.Context) (bool, error) {
	history, err := s.History(ctx)
	if err != nil {
		return false, err
	}

	return len(history) == 1 && history[0].Type == baselineType && history[0].Success, nil
}

// Summarize reads the history table into a Summary.
func (s *State) Summarize(ctx context.Context) (*Summary, error) {
	applied, err := s.AppliedCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count applied migrations: %w", err)
	}

	latest, err := s.LatestVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to determine latest version: %w", err)
	}

	baselineOnly, err := s.BaselineOnly(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect history: %w", err)
	}

	return &Summary{
		Schema:        s.schema,
		Table:         s.table,
		Applied:       applied,
		LatestVersion: latest,
		BaselineOnly:  baselineOnly,
	}, nil
}

func (s *State) qualifiedTable() string {
	return pq.QuoteIdentifier(s.schema) + "." + pq.QuoteIdentifier(s.table)
}
