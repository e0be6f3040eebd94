package db

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"sort"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// MigrateUp runs all pending migrations up to the latest version.
// Returns nil if no migrations were needed.
func (db *DB) MigrateUp(migrationsFS fs.FS) error {
	m, err := db.newMigrate(migrationsFS)
	if err != nil {
		return err
	}
	// Not closing m: that would close the underlying DB connection.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateDown rolls back the most recent migration.
func (db *DB) MigrateDown(migrationsFS fs.FS) error {
	m, err := db.newMigrate(migrationsFS)
	if err != nil {
		return err
	}

	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

// MigrateVersion returns the current migration version and dirty state.
// Returns 0, false, nil if no migrations have been applied yet.
func (db *DB) MigrateVersion(migrationsFS fs.FS) (version uint, dirty bool, err error) {
	m, err := db.newMigrate(migrationsFS)
	if err != nil {
		return 0, false, err
	}

	version, dirty, err = m.Version()
	if err != nil && errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// MigrateForce forces the migration version to a specific value. Only for
// recovering from a dirty migration state.
func (db *DB) MigrateForce(migrationsFS fs.FS, version int) error {
	m, err := db.newMigrate(migrationsFS)
	if err != nil {
		return err
	}

	if err := m.Force(version); err != nil {
		return fmt.Errorf("force migration to version %d failed: %w", version, err)
	}
	return nil
}

// MigrateTo migrates up or down to a specific version.
func (db *DB) MigrateTo(migrationsFS fs.FS, version uint) error {
	m, err := db.newMigrate(migrationsFS)
	if err != nil {
		return err
	}

	if err := m.Migrate(version); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration to version %d failed: %w", version, err)
	}
	return nil
}

func (db *DB) newMigrate(migrationsFS fs.FS) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, ".")
	if err != nil {
		return nil, fmt.Errorf("creating migration source: %w", err)
	}

	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("creating sqlite driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("creating migrate instance: %w", err)
	}
	m.Log = &migrateLogger{}
	return m, nil
}

type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	log.Printf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool { return false }

// GetLatestMigrationVersion scans the migration filesystem for the highest
// version number. Migration files follow the format 000001_name.up.sql.
func GetLatestMigrationVersion(migrationsFS fs.FS) (uint, error) {
	entries, err := fs.Glob(migrationsFS, "*.up.sql")
	if err != nil {
		return 0, fmt.Errorf("listing migrations: %w", err)
	}
	if len(entries) == 0 {
		return 0, fmt.Errorf("no migration files found")
	}
	sort.Strings(entries)

	var maxVersion uint
	for _, entry := range entries {
		var version uint
		if _, err := fmt.Sscanf(entry, "%d_", &version); err == nil && version > maxVersion {
			maxVersion = version
		}
	}
	if maxVersion == 0 {
		return 0, fmt.Errorf("could not determine latest migration version")
	}
	return maxVersion, nil
}
