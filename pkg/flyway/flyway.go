// SPDX-License-Identifier: Apache-2.0

package flyway

import (
	"context"
	"fmt"
	"strings"

	"github.com/flysquash/flysquash/internal/connstr"
	"github.com/flysquash/flysquash/internal/xexec"
)

// DefaultBin is the flyway binary resolved against PATH when no explicit
// path is configured.
const DefaultBin = "flyway"

// Config describes how to reach the Flyway CLI and the target database.
type Config struct {
	// Bin is the path to the flyway binary. Defaults to DefaultBin.
	Bin string

	// PostgresURL is the database connection string in URL format.
	PostgresURL string

	// Schema is the default schema Flyway operates on.
	Schema string

	// Table is the name of the schema history table.
	Table string

	// MigrationsDir is the filesystem location containing migration files.
	MigrationsDir string
}

// Flyway drives the Flyway CLI.
type Flyway struct {
	bin    string
	conn   *connstr.Components
	cfg    Config
	runner xexec.Runner
}

func New(cfg Config, runner xexec.Runner) (*Flyway, error) {
	conn, err := connstr.Parse(cfg.PostgresURL)
	if err != nil {
		return nil, err
	}

	bin := cfg.Bin
	if bin == "" {
		bin = DefaultBin
	}

	return &Flyway{
		bin:    bin,
		conn:   conn,
		cfg:    cfg,
		runner: runner,
	}, nil
}

// Baseline marks the database as baselined at the given version, creating
// the single baseline row in the history table.
func (f *Flyway) Baseline(ctx context.Context, version, description string) error {
	args := append(f.connectionArgs(),
		"-baselineVersion="+version,
		"-baselineDescription="+description,
		"baseline",
	)
	_, err := f.run(ctx, args)
	return err
}

// Repair realigns the checksums and metadata in the history table with the
// migration files on disk.
func (f *Flyway) Repair(ctx context.Context) error {
	_, err := f.run(ctx, append(f.connectionArgs(), "repair"))
	return err
}

// Validate checks the applied migrations against the migration files.
func (f *Flyway) Validate(ctx context.Context) error {
	_, err := f.run(ctx, append(f.connectionArgs(), "validate"))
	return err
}

// Info runs `flyway info` and parses its tabular output.
func (f *Flyway) Info(ctx context.Context) ([]InfoRow, error) {
	out, err := f.run(ctx, append(f.connectionArgs(), "info"))
	if err != nil {
		return nil, err
	}

	return ParseInfo(out)
}

// AppliedCount returns the number of applied migrations reported by
// `flyway info`.
func (f *Flyway) AppliedCount(ctx context.Context) (int, error) {
	rows, err := f.Info(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, row := range rows {
		if row.Applied() {
			count++
		}
	}
	return count, nil
}

// Version runs `flyway -v` and returns the reported version string.
func (f *Flyway) Version(ctx context.Context) (string, error) {
	out, err := f.run(ctx, []string{"-v"})
	if err != nil {
		return "", err
	}

	return ParseVersion(out)
}

func (f *Flyway) run(ctx context.Context, args []string) (string, error) {
	// The password travels via the environment rather than the argument list.
	env := []string{"FLYWAY_PASSWORD=" + f.conn.Password}

	res, err := f.runner.Run(ctx, f.bin, args, env)
	if err != nil {
		return "", fmt.Errorf("failed to run %s: %w", f.bin, err)
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("%s %s exited with status %d: %s",
			f.bin, lastArg(args), res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	return res.Stdout, nil
}

func (f *Flyway) connectionArgs() []string {
	args := []string{
		"-url=" + f.conn.JDBCURL(),
		"-user=" + f.conn.User,
	}
	if f.cfg.Schema != "" {
		args = append(args, "-defaultSchema="+f.cfg.Schema)
	}
	if f.cfg.Table != "" {
		args = append(args, "-table="+f.cfg.Table)
	}
	if f.cfg.MigrationsDir != "" {
		args = append(args, "-locations=filesystem:"+f.cfg.MigrationsDir)
	}
	return args
}

func lastArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[len(args)-1]
}
