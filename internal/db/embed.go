package db

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DevMode switches migration loading from the embedded copy to the on-disk
// MigrationsDir, so new migrations can be iterated on without rebuilding.
var DevMode = false

// MigrationsDir is the directory DevMode reads .sql files from.
var MigrationsDir = "internal/db/migrations"

// getMigrationsFS returns the filesystem golang-migrate reads migrations
// from, rooted at the directory containing the .sql files.
func getMigrationsFS() (fs.FS, error) {
	if DevMode {
		if _, err := os.Stat(MigrationsDir); err != nil {
			return nil, fmt.Errorf("dev migrations directory: %w", err)
		}
		return os.DirFS(MigrationsDir), nil
	}
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("embedded migrations: %w", err)
	}
	return sub, nil
}
