// SPDX-License-Identifier: Apache-2.0

// Package squash collapses a database's accumulated Flyway migration
// history into a single baseline migration. It sequences the external
// tools (psql, pg_dump, flyway) and the history table in a fixed order,
// with file and database backups taken before anything destructive runs.
package squash

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/flysquash/flysquash/internal/connstr"
	"github.com/flysquash/flysquash/internal/xexec"
	"github.com/flysquash/flysquash/pkg/flyway"
	"github.com/flysquash/flysquash/pkg/pgtool"
	"github.com/flysquash/flysquash/pkg/state"
)

// Step names one stage of the squash sequence.
type Step string

const (
	StepCheck   Step = "environment check"
	StepBackup  Step = "backup"
	StepExport  Step = "schema export"
	StepClear   Step = "history clear"
	StepInstall Step = "baseline install"
	StepRepair  Step = "checksum repair"
	StepVerify  Step = "verification"
)

// DefaultBaselineDescription is used for the baseline migration when no
// description is configured.
const DefaultBaselineDescription = "squashed_baseline"

// Config holds everything needed to squash one database.
type Config struct {
	// PostgresURL is the target database connection string in URL format.
	PostgresURL string

	// MigrationsDir is the directory holding the Flyway migration files.
	MigrationsDir string

	// BackupDir is the directory under which backups are created.
	BackupDir string

	// HistorySchema is the schema holding the history table. Defaults to
	// "public".
	HistorySchema string

	// HistoryTable is the name of the Flyway history table. Defaults to
	// state.DefaultHistoryTable.
	HistoryTable string

	// BaselineVersion is the version assigned to the new baseline. When
	// empty, the latest applied version is used.
	BaselineVersion string

	// BaselineDescription is the description of the new baseline
	// migration. Defaults to DefaultBaselineDescription.
	BaselineDescription string

	// LockTimeoutMs is the lock_timeout applied to the history table
	// connection, in milliseconds. Zero leaves the server default.
	LockTimeoutMs int

	// Binary paths, each defaulting to a PATH lookup of the usual name.
	FlywayBin string
	PSQLBin   string
	PGDumpBin string
}

func (c *Config) withDefaults() Config {
	cfg := *c
	if cfg.HistorySchema == "" {
		cfg.HistorySchema = "public"
	}
	if cfg.HistoryTable == "" {
		cfg.HistoryTable = state.DefaultHistoryTable
	}
	if cfg.BaselineDescription == "" {
		cfg.BaselineDescription = DefaultBaselineDescription
	}
	return cfg
}

// HistoryStore is the view of the Flyway history table the squash sequence
// needs. *state.State implements it.
type HistoryStore interface {
	Ping(ctx context.Context) error
	HistoryTableExists(ctx context.Context) (bool, error)
	AppliedCount(ctx context.Context) (int, error)
	LatestVersion(ctx context.Context) (*string, error)
	ClearHistory(ctx context.Context) (int64, error)
	BaselineOnly(ctx context.Context) (bool, error)
	Close() error
}

// Squash owns the connections and tool drivers for one squash run.
type Squash struct {
	cfg     Config
	state   HistoryStore
	connect func(ctx context.Context) (HistoryStore, error)
	flyway  *flyway.Flyway
	tools   *pgtool.Tools
	runner  xexec.Runner
	logger  Logger
}

func New(_ context.Context, cfg Config, opts ...Option) (*Squash, error) {
	options := defaultOptions()
	for _, o := range opts {
		o(options)
	}

	cfg = cfg.withDefaults()

	// The database connection is opened on first use, not here: restoring
	// migration files from a backup must work when the database is down.
	connect := func(ctx context.Context) (HistoryStore, error) {
		connStr, err := connstr.AppendSearchPathOption(cfg.PostgresURL, cfg.HistorySchema)
		if err != nil {
			return nil, err
		}
		return state.New(ctx, connStr, cfg.HistorySchema, cfg.HistoryTable, cfg.LockTimeoutMs)
	}

	fw, err := flyway.New(flyway.Config{
		Bin:           cfg.FlywayBin,
		PostgresURL:   cfg.PostgresURL,
		Schema:        cfg.HistorySchema,
		Table:         cfg.HistoryTable,
		MigrationsDir: cfg.MigrationsDir,
	}, options.runner)
	if err != nil {
		return nil, fmt.Errorf("failed to configure flyway: %w", err)
	}

	tools, err := pgtool.New(pgtool.Config{
		PSQLBin:     cfg.PSQLBin,
		PGDumpBin:   cfg.PGDumpBin,
		PostgresURL: cfg.PostgresURL,
		Schema:      cfg.HistorySchema,
	}, options.runner)
	if err != nil {
		return nil, fmt.Errorf("failed to configure postgres client tools: %w", err)
	}

	return &Squash{
		cfg:     cfg,
		state:   options.store,
		connect: connect,
		flyway:  fw,
		tools:   tools,
		runner:  options.runner,
		logger:  options.logger,
	}, nil
}

// store returns the history table access, connecting on first use.
func (s *Squash) store(ctx context.Context) (HistoryStore, error) {
	if s.state == nil {
		st, err := s.connect(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		s.state = st
	}
	return s.state, nil
}

func (s *Squash) Close() error {
	if s.state == nil {
		return nil
	}
	return s.state.Close()
}

// qualifiedHistoryTable returns the history table name quoted for use in
// SQL and in pg_dump's --exclude-table argument.
func (s *Squash) qualifiedHistoryTable() string {
	return pq.QuoteIdentifier(s.cfg.HistorySchema) + "." + pq.QuoteIdentifier(s.cfg.HistoryTable)
}
