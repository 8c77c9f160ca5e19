// SPDX-License-Identifier: Apache-2.0

package squash

import (
	"fmt"
	"os"

	pgq "github.com/xataio/pg_query_go/v6"
)

// ValidateBaselineSQL parses the exported baseline with the Postgres parser.
// A dump that does not parse must never be installed as a migration, so this
// runs before any destructive step.
func ValidateBaselineSQL(path string) error {
	sql, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read baseline file: %w", err)
	}

	if len(sql) == 0 {
		return fmt.Errorf("baseline file %q is empty", path)
	}

	if _, err := pgq.Parse(string(sql)); err != nil {
		return fmt.Errorf("baseline file %q is not valid SQL: %w", path, err)
	}

	return nil
}
