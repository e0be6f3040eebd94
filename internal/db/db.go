// Package db stores segmentation run records and annotation sessions in
// SQLite. The schema is managed with golang-migrate; migrations are
// embedded into the binary.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
}

// OpenDB opens the database without touching the schema. Used by the
// migrate CLI, which manages the schema itself.
func OpenDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	// modernc sqlite does not support concurrent writers.
	sqlDB.SetMaxOpenConns(1)
	if _, err := sqlDB.Exec(`PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;`); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("setting pragmas: %w", err)
	}
	return &DB{sqlDB}, nil
}

// NewDB opens the database and brings the schema up to date.
func NewDB(path string) (*DB, error) {
	database, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	migrationsFS, err := getMigrationsFS()
	if err != nil {
		database.Close()
		return nil, err
	}
	if err := database.MigrateUp(migrationsFS); err != nil {
		database.Close()
		return nil, fmt.Errorf("applying migrations: %w", err)
	}
	return database, nil
}
