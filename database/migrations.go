package database

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
)

// RunMigrations ensures all required tables exist.
// Statements are written to run unchanged on PostgreSQL and SQLite apart from
// the auto-increment key type.
func RunMigrations(db *sql.DB, driver string) error {
	log.Println("Checking database schema...")

	serial := "SERIAL PRIMARY KEY"
	if driver == "sqlite3" {
		serial = "INTEGER PRIMARY KEY AUTOINCREMENT"
	}

	for _, stmt := range schema {
		stmt = strings.ReplaceAll(stmt, "{{serial}}", serial)
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("error applying schema: %w", err)
		}
	}

	log.Println("Database schema is up to date")
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS stations (
		station_id TEXT PRIMARY KEY,
		station_name TEXT NOT NULL,
		sequence INTEGER NOT NULL DEFAULT 0,
		line_id TEXT NOT NULL DEFAULT '',
		traveled_distance DOUBLE PRECISION NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS station_details (
		station_id TEXT PRIMARY KEY,
		station_uid TEXT NOT NULL DEFAULT '',
		station_name TEXT NOT NULL,
		station_name_en TEXT NOT NULL DEFAULT '',
		longitude DOUBLE PRECISION NOT NULL DEFAULT 0,
		latitude DOUBLE PRECISION NOT NULL DEFAULT 0,
		address TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		station_class TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS station_exits (
		id TEXT NOT NULL,
		station_id TEXT NOT NULL,
		exit_name TEXT NOT NULL DEFAULT '',
		longitude DOUBLE PRECISION NOT NULL DEFAULT 0,
		latitude DOUBLE PRECISION NOT NULL DEFAULT 0,
		location TEXT NOT NULL DEFAULT '',
		has_stair BOOLEAN NOT NULL DEFAULT FALSE,
		has_escalator INTEGER NOT NULL DEFAULT 0,
		has_elevator BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (station_id, id)
	)`,
	`CREATE TABLE IF NOT EXISTS lines (
		line_id TEXT PRIMARY KEY,
		line_name_zh TEXT NOT NULL DEFAULT '',
		line_name_en TEXT NOT NULL DEFAULT '',
		line_section_name_zh TEXT NOT NULL DEFAULT '',
		line_section_name_en TEXT NOT NULL DEFAULT '',
		is_branch BOOLEAN NOT NULL DEFAULT FALSE,
		update_time TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS formations (
		id {{serial}},
		train_no TEXT NOT NULL,
		trans_date TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_formations_train_date ON formations (train_no, trans_date)`,
	`CREATE TABLE IF NOT EXISTS cars (
		id {{serial}},
		formation_id INTEGER NOT NULL REFERENCES formations(id) ON DELETE CASCADE,
		train_seq INTEGER NOT NULL,
		asset_num TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cars_formation ON cars (formation_id)`,
	`CREATE TABLE IF NOT EXISTS maintenance_records (
		id {{serial}},
		asset_num TEXT NOT NULL,
		maintenance_date TIMESTAMP NOT NULL,
		maintenance_type TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		completed BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_maintenance_asset ON maintenance_records (asset_num, maintenance_date)`,
	`CREATE TABLE IF NOT EXISTS fault_records (
		id {{serial}},
		asset_num TEXT NOT NULL,
		fault_date TIMESTAMP NOT NULL,
		fault_type TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		resolved BOOLEAN NOT NULL DEFAULT FALSE,
		resolution_date TIMESTAMP,
		resolution_description TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_fault_asset ON fault_records (asset_num, fault_date)`,
	`CREATE TABLE IF NOT EXISTS depot_entry_records (
		id {{serial}},
		asset_num TEXT NOT NULL,
		entry_date TIMESTAMP NOT NULL,
		depot_name TEXT NOT NULL DEFAULT '',
		reason TEXT NOT NULL DEFAULT '',
		released BOOLEAN NOT NULL DEFAULT FALSE,
		release_date TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_depot_asset ON depot_entry_records (asset_num, entry_date)`,
}
