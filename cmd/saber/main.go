// Command saber segments electron microscopy data with SAM2 ONNX models:
// micrograph and tomogram segmentation, training dataset preparation, a
// browser annotation tool, and a gRPC worker daemon for remote GPUs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/saber-data/saber/internal/version"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "segment":
		handleSegment(args)
	case "classifier":
		handleClassifier(args)
	case "gui":
		handleGUI(args)
	case "workerd":
		handleWorkerd(args)
	case "db":
		handleDB(args)
	case "version":
		fmt.Printf("saber version %s (%s)\n", version.Version, version.GitSHA)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(2)
	}
}

func printUsage() {
	fmt.Println(`saber - SAM2 segmentation workflows for cryo-EM and cryo-ET

Usage: saber <command> [options]

Commands:
  segment     Segment micrographs or tomograms
                micrograph   single images (MRC, TIFF, SER, DM3/DM4)
                slab         one tomogram slab preview
                tomograms    batch 3D segmentation over a project
  classifier  Build classifier training datasets
                prepare-micrograph-training
                prepare-tomogram-training
  gui         Serve the browser annotation tool
  workerd     Run the gRPC segmentation worker daemon
  db          Database maintenance (migrate)
  version     Show saber version
  help        Show this help message

Run 'saber <command> -h' for command options.

Models:
  Segmentation needs a SAM2 image encoder and prompt decoder exported to
  ONNX, passed with --sam2-encoder and --sam2-decoder.`)
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx
}
