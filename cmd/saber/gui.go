package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/saber-data/saber/internal/db"
	"github.com/saber-data/saber/internal/gui"
	"github.com/saber-data/saber/internal/training"
	"github.com/saber-data/saber/internal/zarr"
)

func handleGUI(args []string) {
	fs := flag.NewFlagSet("gui", flag.ExitOnError)
	input := fs.String("input", "", "training zarr path (required)")
	output := fs.String("output", "", "annotated copy of the store (default: annotate in place)")
	classNames := fs.String("class-names", "", "comma-separated class list")
	listen := fs.String("listen", ":8080", "listen address")
	dbFile := fs.String("db", "saber.db", "sqlite database for sessions")
	fs.Parse(args)

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Error: --input is required")
		fs.Usage()
		os.Exit(2)
	}

	// Annotating a separate output store leaves the source untouched.
	dir := *input
	if *output != "" && *output != *input {
		if !zarr.IsGroup(*output) {
			if err := training.Copy(*input, *output); err != nil {
				log.Fatalf("copying dataset to %s: %v", *output, err)
			}
		}
		dir = *output
	}

	dataset, err := training.Open(dir)
	if err != nil {
		log.Fatalf("opening dataset: %v", err)
	}
	if names := splitClassNames(*classNames); len(names) > 0 {
		if err := dataset.SetClassNames(names); err != nil {
			log.Fatalf("setting class names: %v", err)
		}
	}
	if len(dataset.ClassNames) == 0 {
		fmt.Fprintln(os.Stderr, "Error: dataset has no class names; pass --class-names")
		fs.Usage()
		os.Exit(2)
	}

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer database.Close()

	session, err := database.OpenSession(dataset.Dir, dataset.ClassNames, dataset.NumItems)
	if err != nil {
		log.Fatalf("opening session: %v", err)
	}
	log.Printf("annotation session %s: %d items, classes %v",
		session.ID, dataset.NumItems, dataset.ClassNames)

	ws := gui.NewWebServer(gui.WebServerConfig{
		Address: *listen,
		Dataset: dataset,
		DB:      database,
		Session: session,
	})
	if err := ws.Start(signalContext()); err != nil {
		log.Fatalf("annotation server: %v", err)
	}
}
