// SPDX-License-Identifier: Apache-2.0

package state

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flysquash/flysquash/internal/testutils"
	"github.com/flysquash/flysquash/pkg/db"
)

func TestNewAppliesLockTimeout(t *testing.T) {
	t.Parallel()

	testutils.WithConnectionToContainer(t, func(_ *sql.DB, connStr string) {
		ctx := context.Background()

		st, err := New(ctx, connStr, "public", DefaultHistoryTable, 505)
		require.NoError(t, err)
		t.Cleanup(func() { st.Close() })

		require.Equal(t, "505ms", showLockTimeout(t, st))
	})
}

func TestNewLeavesLockTimeoutUnsetWhenZero(t *testing.T) {
	t.Parallel()

	testutils.WithConnectionToContainer(t, func(_ *sql.DB, connStr string) {
		ctx := context.Background()

		st, err := New(ctx, connStr, "public", DefaultHistoryTable, 0)
		require.NoError(t, err)
		t.Cleanup(func() { st.Close() })

		require.Equal(t, "0", showLockTimeout(t, st))
	})
}

func showLockTimeout(t *testing.T, st *State) string {
	t.Helper()

	rows, err := st.pgConn.QueryContext(context.Background(), "SHOW lock_timeout")
	require.NoError(t, err)
	defer rows.Close()

	var timeout string
	require.NoError(t, db.ScanFirstValue(rows, &timeout))

	return timeout
}
