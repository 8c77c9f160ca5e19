// SPDX-License-Identifier: Apache-2.0

package db_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flysquash/flysquash/internal/testutils"
	"github.com/flysquash/flysquash/pkg/db"
)

func TestMain(m *testing.M) {
	testutils.SharedTestMain(m)
}

func TestExecAndQueryContext(t *testing.T) {
	t.Parallel()

	testutils.WithConnectionToContainer(t, func(conn *sql.DB, _ string) {
		ctx := context.Background()

		rdb := &db.RDB{DB: conn}

		_, err := rdb.ExecContext(ctx, "CREATE TABLE test(id int)")
		require.NoError(t, err)

		_, err = rdb.ExecContext(ctx, "INSERT INTO test(id) VALUES (1), (2)")
		require.NoError(t, err)

		rows, err := rdb.QueryContext(ctx, "SELECT count(*) FROM test")
		require.NoError(t, err)
		defer rows.Close()

		var count int
		require.NoError(t, db.ScanFirstValue(rows, &count))
		assert.Equal(t, 2, count)
	})
}

func TestWithRetryableTransaction(t *testing.T) {
	t.Parallel()

	testutils.WithConnectionToContainer(t, func(conn *sql.DB, _ string) {
		ctx := context.Background()

		rdb := &db.RDB{DB: conn}

		_, err := rdb.ExecContext(ctx, "CREATE TABLE test(id int)")
		require.NoError(t, err)

		err = rdb.WithRetryableTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, "INSERT INTO test(id) VALUES (1)")
			return err
		})
		require.NoError(t, err)

		rows, err := rdb.QueryContext(ctx, "SELECT count(*) FROM test")
		require.NoError(t, err)
		defer rows.Close()

		var count int
		require.NoError(t, db.ScanFirstValue(rows, &count))
		assert.Equal(t, 1, count)
	})
}
