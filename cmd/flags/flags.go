// SPDX-License-Identifier: Apache-2.0

package flags

import (
	"github.com/spf13/viper"
)

func PostgresURL() string {
	return viper.GetString("PG_URL")
}

func MigrationsDir() string {
	return viper.GetString("MIGRATIONS_DIR")
}

func BackupDir() string {
	return viper.GetString("BACKUP_DIR")
}

func HistorySchema() string {
	return viper.GetString("HISTORY_SCHEMA")
}

func HistoryTable() string {
	return viper.GetString("HISTORY_TABLE")
}

func LockTimeout() int {
	return viper.GetInt("LOCK_TIMEOUT")
}

func BaselineVersion() string {
	return viper.GetString("BASELINE_VERSION")
}

func BaselineDescription() string {
	return viper.GetString("BASELINE_DESCRIPTION")
}

func FlywayBin() string {
	return viper.GetString("FLYWAY_BIN")
}

func PSQLBin() string {
	return viper.GetString("PSQL_BIN")
}

func PGDumpBin() string {
	return viper.GetString("PG_DUMP_BIN")
}

func Verbose() bool {
	return viper.GetBool("VERBOSE")
}
