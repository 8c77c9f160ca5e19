// SPDX-License-Identifier: Apache-2.0

package state_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flysquash/flysquash/internal/testutils"
	"github.com/flysquash/flysquash/pkg/state"
)

func TestMain(m *testing.M) {
	testutils.SharedTestMain(m)
}

const createHistoryTable = `CREATE TABLE public.flyway_schema_history (
	installed_rank integer PRIMARY KEY,
	version varchar(50),
	description varchar(200) NOT NULL,
	type varchar(20) NOT NULL,
	script varchar(1000) NOT NULL,
	checksum integer,
	installed_by varchar(100) NOT NULL,
	installed_on timestamp NOT NULL DEFAULT now(),
	execution_time integer NOT NULL,
	success boolean NOT NULL
)`

func insertMigration(t *testing.T, db *sql.DB, rank int, version, description, migType string, success bool) {
	t.Helper()

	var v any
	if version != "" {
		v = version
	}

	_, err := db.Exec(`INSERT INTO public.flyway_schema_history
		(installed_rank, version, description, type, script, installed_by, execution_time, success)
		VALUES ($1, $2, $3, $4, $3 || '.sql', 'test', 10, $5)`,
		rank, v, description, migType, success)
	require.NoError(t, err)
}

func withHistory(t *testing.T, fn func(*state.State, *sql.DB)) {
	t.Helper()

	testutils.WithConnectionToContainer(t, func(db *sql.DB, connStr string) {
		_, err := db.Exec(createHistoryTable)
		require.NoError(t, err)

		st, err := state.New(context.Background(), connStr, "public", state.DefaultHistoryTable, 500)
		require.NoError(t, err)
		t.Cleanup(func() { st.Close() })

		fn(st, db)
	})
}

func TestHistoryTableExists(t *testing.T) {
	t.Parallel()

	testutils.WithConnectionToContainer(t, func(db *sql.DB, connStr string) {
		ctx := context.Background()

		st, err := state.New(ctx, connStr, "public", state.DefaultHistoryTable, 0)
		require.NoError(t, err)
		defer st.Close()

		exists, err := st.HistoryTableExists(ctx)
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = db.Exec(createHistoryTable)
		require.NoError(t, err)

		exists, err = st.HistoryTableExists(ctx)
		require.NoError(t, err)
		assert.True(t, exists)
	})
}

func TestAppliedCountAndLatestVersion(t *testing.T) {
	t.Parallel()

	withHistory(t, func(st *state.State, db *sql.DB) {
		ctx := context.Background()

		count, err := st.AppliedCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		latest, err := st.LatestVersion(ctx)
		require.NoError(t, err)
		assert.Nil(t, latest)

		insertMigration(t, db, 1, "1", "create users", "SQL", true)
		insertMigration(t, db, 2, "2", "create orders", "SQL", true)
		insertMigration(t, db, 3, "", "refresh views", "SQL", true)

		count, err = st.AppliedCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, count)

		latest, err = st.LatestVersion(ctx)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, "2", *latest)
	})
}

func TestClearHistory(t *testing.T) {
	t.Parallel()

	withHistory(t, func(st *state.State, db *sql.DB) {
		ctx := context.Background()

		insertMigration(t, db, 1, "1", "create users", "SQL", true)
		insertMigration(t, db, 2, "2", "create orders", "SQL", true)

		deleted, err := st.ClearHistory(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), deleted)

		count, err := st.AppliedCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}

func TestBaselineOnly(t *testing.T) {
	t.Parallel()

	withHistory(t, func(st *state.State, db *sql.DB) {
		ctx := context.Background()

		baselineOnly, err := st.BaselineOnly(ctx)
		require.NoError(t, err)
		assert.False(t, baselineOnly)

		insertMigration(t, db, 1, "42", "squashed_baseline", "BASELINE", true)

		baselineOnly, err = st.BaselineOnly(ctx)
		require.NoError(t, err)
		assert.True(t, baselineOnly)

		insertMigration(t, db, 2, "43", "create extras", "SQL", true)

		baselineOnly, err = st.BaselineOnly(ctx)
		require.NoError(t, err)
		assert.False(t, baselineOnly)
	})
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	withHistory(t, func(st *state.State, db *sql.DB) {
		ctx := context.Background()

		insertMigration(t, db, 1, "1", "create users", "SQL", true)
		insertMigration(t, db, 2, "2", "create orders", "SQL", true)

		summary, err := st.Summarize(ctx)
		require.NoError(t, err)

		assert.Equal(t, "public", summary.Schema)
		assert.Equal(t, state.DefaultHistoryTable, summary.Table)
		assert.Equal(t, 2, summary.Applied)
		require.NotNil(t, summary.LatestVersion)
		assert.Equal(t, "2", *summary.LatestVersion)
		assert.False(t, summary.BaselineOnly)
	})
}
