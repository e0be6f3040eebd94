package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/saber-data/saber/internal/sam2"
	"github.com/saber-data/saber/internal/segment"
	"github.com/saber-data/saber/internal/worker"
)

func handleWorkerd(args []string) {
	fs := flag.NewFlagSet("workerd", flag.ExitOnError)
	listen := fs.String("listen", ":9090", "gRPC listen address")
	encoder := fs.String("sam2-encoder", "", "SAM2 image encoder ONNX model (required)")
	decoder := fs.String("sam2-decoder", "", "SAM2 prompt decoder ONNX model (required)")
	devices := fs.Int("devices", 0, "number of CUDA devices (0 = CPU)")
	gridSize := fs.Int("grid-size", 0, "default prompt grid side length")
	minArea := fs.Int("min-mask-area", 0, "default minimum mask area in pixels")
	borderMargin := fs.Int("border-margin", 0, "default border margin in pixels")
	fs.Parse(args)

	if *encoder == "" || *decoder == "" {
		fmt.Fprintln(os.Stderr, "Error: --sam2-encoder and --sam2-decoder are required")
		fs.Usage()
		os.Exit(2)
	}

	cfg := sam2.Config{EncoderPath: *encoder, DecoderPath: *decoder}
	modelPool, err := sam2.NewPool(cfg, deviceList(*devices))
	if err != nil {
		log.Fatalf("loading models: %v", err)
	}
	defer modelPool.Close()

	device := "cpu"
	if *devices > 0 {
		device = fmt.Sprintf("cuda x%d", *devices)
	}
	server := worker.NewServer(worker.ServerConfig{
		Pool:     modelPool,
		GridSize: *gridSize,
		Filter:   segment.FilterOptions{MinArea: *minArea, BorderMargin: *borderMargin},
		Device:   device,
	})

	if err := worker.Serve(signalContext(), *listen, server); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
