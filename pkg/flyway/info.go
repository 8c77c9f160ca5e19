// SPDX-License-Identifier: Apache-2.0

package flyway

import (
	"errors"
	"strings"
)

// ErrUnparsableInfo is returned when `flyway info` output contains no
// migration table. An unparsable table is an error, never a silent zero.
var ErrUnparsableInfo = errors.New("could not find a migration table in flyway info output")

// InfoRow is a single migration as reported by `flyway info`.
type InfoRow struct {
	Category    string
	Version     string
	Description string
	Type        string
	State       string
}

// Applied reports whether the migration has been applied to the database.
func (r InfoRow) Applied() bool {
	switch r.State {
	case "Success", "Baseline", "Out of Order":
		return true
	}
	return false
}

// ParseInfo extracts migration rows from the ASCII table printed by
// `flyway info`. The expected shape is:
//
//	+-----------+---------+---------------+------+--------------+---------+
//	| Category  | Version | Description   | Type | Installed On | State   |
//	+-----------+---------+---------------+------+--------------+---------+
//	| Versioned | 1       | create users  | SQL  | ...          | Success |
//
// An empty history renders a header with no data rows, which parses to an
// empty slice. Output without a recognizable header is an error.
func ParseInfo(out string) ([]InfoRow, error) {
	var (
		rows        []InfoRow
		headerFound bool
		columns     map[string]int
	)

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "|") {
			continue
		}

		fields := splitTableRow(line)

		if !headerFound {
			columns = headerColumns(fields)
			if columns != nil {
				headerFound = true
			}
			continue
		}

		row := InfoRow{
			Category:    fieldAt(fields, columns, "Category"),
			Version:     fieldAt(fields, columns, "Version"),
			Description: fieldAt(fields, columns, "Description"),
			Type:        fieldAt(fields, columns, "Type"),
			State:       fieldAt(fields, columns, "State"),
		}

		// `flyway info` renders "No migrations found" as a single
		// cell spanning the table.
		if row.Version == "" && row.State == "" {
			continue
		}

		rows = append(rows, row)
	}

	if !headerFound {
		return nil, ErrUnparsableInfo
	}

	return rows, nil
}

func splitTableRow(line string) []string {
	parts := strings.Split(strings.Trim(line, "|"), "|")
	fields := make([]string, len(parts))
	for i, p := range parts {
		fields[i] = strings.TrimSpace(p)
	}
	return fields
}

// headerColumns maps column names to their positions, returning nil if the
// fields do not look like the info table header.
func headerColumns(fields []string) map[string]int {
	columns := map[string]int{}
	for i, f := range fields {
		columns[f] = i
	}

	if _, ok := columns["Version"]; !ok {
		return nil
	}
	if _, ok := columns["State"]; !ok {
		return nil
	}
	return columns
}

func fieldAt(fields []string, columns map[string]int, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(fields) {
		return ""
	}
	return fields[i]
}
