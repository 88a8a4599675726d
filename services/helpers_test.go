package services

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"train-live-viewer/database"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.RunMigrations(db, "sqlite3"))
	return db
}

func intPtr(v int) *int { return &v }
