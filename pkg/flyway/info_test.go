// SPDX-License-Identifier: Apache-2.0

package flyway_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flysquash/flysquash/pkg/flyway"
)

const infoOutput = `Flyway Community Edition 9.22.3 by Redgate

Schema version: 3

+-----------+---------+---------------+------+---------------------+----------+----------+
| Category  | Version | Description   | Type | Installed On        | State    | Undoable |
+-----------+---------+---------------+------+---------------------+----------+----------+
| Versioned | 1       | create users  | SQL  | 2024-01-10 09:00:01 | Success  | No       |
| Versioned | 2       | create orders | SQL  | 2024-01-11 10:30:00 | Success  | No       |
| Versioned | 3       | add indexes   | SQL  | 2024-02-01 08:15:42 | Success  | No       |
| Versioned | 4       | drop legacy   | SQL  |                     | Pending  | No       |
+-----------+---------+---------------+------+---------------------+----------+----------+
`

const baselineInfoOutput = `+----------+---------+--------------------+----------+---------------------+----------+
| Category | Version | Description        | Type     | Installed On        | State    |
+----------+---------+--------------------+----------+---------------------+----------+
|          | 3       | squashed_baseline  | BASELINE | 2024-03-01 12:00:00 | Baseline |
+----------+---------+--------------------+----------+---------------------+----------+
`

func TestParseInfo(t *testing.T) {
	rows, err := flyway.ParseInfo(infoOutput)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, flyway.InfoRow{
		Category:    "Versioned",
		Version:     "1",
		Description: "create users",
		Type:        "SQL",
		State:       "Success",
	}, rows[0])

	assert.Equal(t, "Pending", rows[3].State)
	assert.False(t, rows[3].Applied())
}

func TestParseInfoBaselineRow(t *testing.T) {
	rows, err := flyway.ParseInfo(baselineInfoOutput)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "BASELINE", rows[0].Type)
	assert.True(t, rows[0].Applied())
}

func TestParseInfoEmptyHistory(t *testing.T) {
	out := `+----------+---------+-------------+------+--------------+-------+
| Category | Version | Description | Type | Installed On | State |
+----------+---------+-------------+------+--------------+-------+
| No migrations found                                            |
+----------+---------+-------------+------+--------------+-------+
`

	rows, err := flyway.ParseInfo(out)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestParseInfoRejectsUnrecognizableOutput(t *testing.T) {
	tests := []struct {
		Name string
		Out  string
	}{
		{Name: "empty output", Out: ""},
		{Name: "no table at all", Out: "ERROR: Unable to connect to the database\n"},
		{Name: "table without expected columns", Out: "| Name | Value |\n| a | b |\n"},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			_, err := flyway.ParseInfo(tt.Out)
			assert.ErrorIs(t, err, flyway.ErrUnparsableInfo)
		})
	}
}

func TestInfoRowApplied(t *testing.T) {
	tests := []struct {
		State   string
		Applied bool
	}{
		{State: "Success", Applied: true},
		{State: "Baseline", Applied: true},
		{State: "Out of Order", Applied: true},
		{State: "Pending", Applied: false},
		{State: "Missing", Applied: false},
		{State: "Failed", Applied: false},
	}

	for _, tt := range tests {
		t.Run(tt.State, func(t *testing.T) {
			row := flyway.InfoRow{State: tt.State}
			assert.Equal(t, tt.Applied, row.Applied())
		})
	}
}
