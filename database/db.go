package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"train-live-viewer/config"
)

var DB *sql.DB

// Connect opens the configured store and waits until it answers
func Connect(cfg *config.Config) error {
	if cfg.DBDriver == "sqlite3" {
		if dir := filepath.Dir(cfg.DBFilePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("error creating database directory: %w", err)
			}
		}
	}

	var err error
	DB, err = Open(cfg.DBDriver, cfg.DataSourceName())
	if err != nil {
		return err
	}

	// Test the connection with retries
	maxRetries := 30
	if cfg.DBDriver == "sqlite3" {
		maxRetries = 1
	}
	for i := 0; i < maxRetries; i++ {
		err = DB.Ping()
		if err == nil {
			log.Printf("Successfully connected to database (%s)", cfg.DBDriver)
			return nil
		}
		log.Printf("Failed to connect to database (attempt %d/%d): %v", i+1, maxRetries, err)
		if i+1 < maxRetries {
			time.Sleep(2 * time.Second)
		}
	}

	return fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
}

// Open opens a pool for the given driver with the pool settings used in production
func Open(driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if driver == "sqlite3" {
		// sqlite allows a single writer
		db.SetMaxOpenConns(1)
		return db, nil
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}

// GetDB returns the database connection
func GetDB() *sql.DB {
	return DB
}
