package db

import (
	"fmt"
	"io/fs"
	"log"
	"os"
)

// RunMigrateCommand handles the 'db migrate' subcommand dispatching.
func RunMigrateCommand(args []string, dbPath string) {
	if len(args) < 1 {
		PrintMigrateHelp()
		os.Exit(1)
	}
	action := args[0]

	migrationsFS, err := getMigrationsFS()
	if err != nil {
		log.Fatalf("Failed to get migrations filesystem: %v", err)
	}

	// Open without schema initialization; migrations manage the schema.
	database, err := OpenDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	switch action {
	case "up":
		handleMigrateUp(database, migrationsFS)

	case "down":
		handleMigrateDown(database, migrationsFS)

	case "status":
		handleMigrateStatus(database, migrationsFS)

	case "version":
		if len(args) < 2 {
			log.Fatal("Usage: saber db migrate version <version_number>")
		}
		handleMigrateVersion(database, migrationsFS, args[1])

	case "force":
		if len(args) < 2 {
			log.Fatal("Usage: saber db migrate force <version_number>")
		}
		handleMigrateForce(database, migrationsFS, args[1])

	case "help":
		PrintMigrateHelp()

	default:
		fmt.Printf("Unknown migrate action: %s\n\n", action)
		PrintMigrateHelp()
		os.Exit(1)
	}
}

func handleMigrateUp(database *DB, migrationsFS fs.FS) {
	log.Printf("Running migrations...")
	if err := database.MigrateUp(migrationsFS); err != nil {
		log.Fatalf("Migration up failed: %v", err)
	}
	log.Println("All migrations applied successfully")

	version, dirty, _ := database.MigrateVersion(migrationsFS)
	log.Printf("Current version: %d (dirty: %v)", version, dirty)
}

func handleMigrateDown(database *DB, migrationsFS fs.FS) {
	log.Printf("Rolling back one migration...")
	if err := database.MigrateDown(migrationsFS); err != nil {
		log.Fatalf("Migration down failed: %v", err)
	}
	log.Println("Migration rolled back successfully")

	version, dirty, _ := database.MigrateVersion(migrationsFS)
	log.Printf("Current version: %d (dirty: %v)", version, dirty)
}

func handleMigrateStatus(database *DB, migrationsFS fs.FS) {
	version, dirty, err := database.MigrateVersion(migrationsFS)
	if err != nil {
		log.Fatalf("Failed to get migration status: %v", err)
	}
	latest, err := GetLatestMigrationVersion(migrationsFS)
	if err != nil {
		log.Fatalf("Failed to get latest migration version: %v", err)
	}

	fmt.Println("=== Migration Status ===")
	fmt.Printf("Current version: %d\n", version)
	fmt.Printf("Latest available: %d\n", latest)
	fmt.Printf("Dirty: %v\n", dirty)

	if dirty {
		fmt.Println("\nWARNING: Database is in a dirty state!")
		fmt.Println("A migration failed mid-execution. You may need to:")
		fmt.Println("  1. Inspect the database manually")
		fmt.Println("  2. Fix any issues")
		fmt.Println("  3. Run: saber db migrate force <version>")
	} else if version < latest {
		fmt.Printf("\nDatabase is %d version(s) behind. Run 'saber db migrate up' to update.\n", latest-version)
	}
}

func handleMigrateVersion(database *DB, migrationsFS fs.FS, versionStr string) {
	var targetVersion uint
	if _, err := fmt.Sscanf(versionStr, "%d", &targetVersion); err != nil {
		log.Fatalf("Invalid version number: %s", versionStr)
	}

	log.Printf("Migrating to version %d...", targetVersion)
	if err := database.MigrateTo(migrationsFS, targetVersion); err != nil {
		log.Fatalf("Migration to version %d failed: %v", targetVersion, err)
	}
	log.Printf("Migrated to version %d successfully", targetVersion)
}

func handleMigrateForce(database *DB, migrationsFS fs.FS, versionStr string) {
	var forceVersion int
	if _, err := fmt.Sscanf(versionStr, "%d", &forceVersion); err != nil {
		log.Fatalf("Invalid version number: %s", versionStr)
	}

	fmt.Printf("WARNING: Forcing migration version to %d\n", forceVersion)
	fmt.Println("This should only be used to recover from a dirty migration state.")
	fmt.Print("Continue? [y/N]: ")

	var response string
	fmt.Scanln(&response)
	if response != "y" && response != "Y" {
		log.Println("Aborted")
		os.Exit(0)
	}

	if err := database.MigrateForce(migrationsFS, forceVersion); err != nil {
		log.Fatalf("Force migration failed: %v", err)
	}
	log.Printf("Migration version forced to %d", forceVersion)
}

// PrintMigrateHelp displays the help message for the migrate command.
func PrintMigrateHelp() {
	fmt.Println("Database Migration Commands")
	fmt.Println()
	fmt.Println("Usage: saber db migrate <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  up              Apply all pending migrations")
	fmt.Println("  down            Rollback one migration")
	fmt.Println("  status          Show current migration status and version")
	fmt.Println("  version <N>     Migrate to specific version N")
	fmt.Println("  force <N>       Force migration version to N (recovery only)")
	fmt.Println("  help            Show this help message")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  saber db migrate up")
	fmt.Println("  saber db migrate status")
	fmt.Println("  saber db migrate version 1")
}
