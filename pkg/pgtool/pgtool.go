// SPDX-License-Identifier: Apache-2.0

// Package pgtool drives the libpq command line tools (psql and pg_dump)
// against a single database. Connection details travel through the libpq
// environment variables so that credentials never appear in argument lists.
package pgtool

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/flysquash/flysquash/internal/connstr"
	"github.com/flysquash/flysquash/internal/xexec"
)

const (
	DefaultPSQLBin   = "psql"
	DefaultPGDumpBin = "pg_dump"
)

// Config describes how to reach the client tools and the target database.
type Config struct {
	// PSQLBin is the path to the psql binary. Defaults to DefaultPSQLBin.
	PSQLBin string

	// PGDumpBin is the path to the pg_dump binary. Defaults to DefaultPGDumpBin.
	PGDumpBin string

	// PostgresURL is the database connection string in URL format.
	PostgresURL string

	// Schema restricts schema dumps to a single schema when set.
	Schema string
}

// Tools runs psql and pg_dump.
type Tools struct {
	psqlBin   string
	pgDumpBin string
	conn      *connstr.Components
	schema    string
	runner    xexec.Runner
}

func New(cfg Config, runner xexec.Runner) (*Tools, error) {
	conn, err := connstr.Parse(cfg.PostgresURL)
	if err != nil {
		return nil, err
	}

	psqlBin := cfg.PSQLBin
	if psqlBin == "" {
		psqlBin = DefaultPSQLBin
	}
	pgDumpBin := cfg.PGDumpBin
	if pgDumpBin == "" {
		pgDumpBin = DefaultPGDumpBin
	}

	return &Tools{
		psqlBin:   psqlBin,
		pgDumpBin: pgDumpBin,
		conn:      conn,
		schema:    cfg.Schema,
		runner:    runner,
	}, nil
}

// DumpAll writes a full plain-format dump of the database to outFile. The
// plain format is chosen so the dump can be fed back through psql on restore.
func (t *Tools) DumpAll(ctx context.Context, outFile string) error {
	args := []string{
		"--format=plain",
		"--no-owner",
		"--file=" + outFile,
	}
	_, err := t.run(ctx, t.pgDumpBin, args)
	return err
}

// DumpSchema writes a schema-only dump to outFile, excluding the given
// table (the Flyway history table, which the baseline must not recreate).
func (t *Tools) DumpSchema(ctx context.Context, outFile, excludeTable string) error {
	args := []string{
		"--schema-only",
		"--no-owner",
		"--no-privileges",
	}
	if t.schema != "" {
		args = append(args, "--schema="+pq.QuoteIdentifier(t.schema))
	}
	if excludeTable != "" {
		args = append(args, "--exclude-table="+excludeTable)
	}
	args = append(args, "--file="+outFile)

	_, err := t.run(ctx, t.pgDumpBin, args)
	return err
}

// RestoreFile feeds a plain-format dump file to psql, stopping at the first
// error.
func (t *Tools) RestoreFile(ctx context.Context, dumpFile string) error {
	args := []string{
		"-X",
		"-q",
		"-v", "ON_ERROR_STOP=1",
		"-f", dumpFile,
	}
	_, err := t.run(ctx, t.psqlBin, args)
	return err
}

// SelectValue runs a single-value query through psql and returns the value
// printed in tuples-only, unaligned mode.
func (t *Tools) SelectValue(ctx context.Context, query string) (string, error) {
	args := []string{
		"-X",
		"-A",
		"-t",
		"-c", query,
	}
	out, err := t.run(ctx, t.psqlBin, args)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Ping checks that the database accepts connections from psql.
func (t *Tools) Ping(ctx context.Context) error {
	_, err := t.SelectValue(ctx, "SELECT 1")
	return err
}

func (t *Tools) run(ctx context.Context, bin string, args []string) (string, error) {
	res, err := t.runner.Run(ctx, bin, args, t.conn.Env())
	if err != nil {
		return "", fmt.Errorf("failed to run %s: %w", bin, err)
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("%s exited with status %d: %s",
			bin, res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	return res.Stdout, nil
}
