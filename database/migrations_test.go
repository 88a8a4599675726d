package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunMigrationsSQLite(t *testing.T) {
	db, err := Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, RunMigrations(db, "sqlite3"))
	// Running twice must be harmless
	require.NoError(t, RunMigrations(db, "sqlite3"))

	for _, table := range []string{
		"stations", "station_details", "station_exits", "lines",
		"formations", "cars", "maintenance_records", "fault_records", "depot_entry_records",
	} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = $1`, table).Scan(&name)
		require.NoError(t, err, table)
	}
}
