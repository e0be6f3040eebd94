package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/saber-data/saber/internal/db"
)

func handleDB(args []string) {
	if len(args) < 1 || args[0] != "migrate" {
		fmt.Fprintln(os.Stderr, "Usage: saber db migrate <up|down|status|version|force> [--db <file>] [--dir <migrations>]")
		os.Exit(2)
	}

	// Migrate actions come before the flags: saber db migrate up --db x.db
	rest := args[1:]
	var actions []string
	for len(rest) > 0 && !strings.HasPrefix(rest[0], "-") {
		actions = append(actions, rest[0])
		rest = rest[1:]
	}

	fs := flag.NewFlagSet("db migrate", flag.ExitOnError)
	dbFile := fs.String("db", "saber.db", "sqlite database file")
	dir := fs.String("dir", "", "read migrations from this directory instead of the embedded copy")
	fs.Parse(rest)

	if *dir != "" {
		db.DevMode = true
		db.MigrationsDir = *dir
	}
	db.RunMigrateCommand(actions, *dbFile)
}
