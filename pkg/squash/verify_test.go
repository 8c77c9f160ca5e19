// SPDX-License-Identifier: Apache-2.0

package squash_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flysquash/flysquash/pkg/squash"
)

func writeBaseline(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "baseline.sql")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValidateBaselineSQL(t *testing.T) {
	path := writeBaseline(t, `
CREATE TABLE users (
    id integer PRIMARY KEY,
    name text NOT NULL
);

CREATE INDEX users_name_idx ON users (name);
`)

	assert.NoError(t, squash.ValidateBaselineSQL(path))
}

func TestValidateBaselineSQLRejectsInvalidSQL(t *testing.T) {
	path := writeBaseline(t, "CREATE TABL users (id integer);")

	err := squash.ValidateBaselineSQL(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid SQL")
}

func TestValidateBaselineSQLRejectsEmptyFile(t *testing.T) {
	path := writeBaseline(t, "")

	err := squash.ValidateBaselineSQL(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestValidateBaselineSQLMissingFile(t *testing.T) {
	err := squash.ValidateBaselineSQL(filepath.Join(t.TempDir(), "nope.sql"))
	assert.Error(t, err)
}
