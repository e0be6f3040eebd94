package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/saber-data/saber/internal/copick"
	"github.com/saber-data/saber/internal/preprocess"
	"github.com/saber-data/saber/internal/segment"
	"github.com/saber-data/saber/internal/training"
	"github.com/saber-data/saber/internal/zarr"
)

func handleClassifier(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: saber classifier <prepare-micrograph-training|prepare-tomogram-training> [options]")
		os.Exit(2)
	}
	switch args[0] {
	case "prepare-micrograph-training":
		handlePrepareMicrographTraining(args[1:])
	case "prepare-tomogram-training":
		handlePrepareTomogramTraining(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown classifier mode: %s\n", args[0])
		os.Exit(2)
	}
}

func splitClassNames(csv string) []string {
	var names []string
	for _, name := range strings.Split(csv, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// readFrameGroup loads a segmented frame group written by segment
// micrograph or segment slab: the normalized image plus per-instance masks
// rebuilt from the stored label map.
func readFrameGroup(dir string) ([]float32, int, int, []*segment.Mask, error) {
	image, err := zarr.Open(filepath.Join(dir, "image"))
	if err != nil {
		return nil, 0, 0, nil, fmt.Errorf("opening image array: %w", err)
	}
	shape := image.Shape()
	if len(shape) != 2 {
		return nil, 0, 0, nil, fmt.Errorf("image array has unexpected shape %v", shape)
	}
	h, w := shape[0], shape[1]

	data, err := image.Float32s()
	if err != nil {
		return nil, 0, 0, nil, fmt.Errorf("reading image: %w", err)
	}

	maskArr, err := zarr.Open(filepath.Join(dir, "masks"))
	if err != nil {
		return nil, 0, 0, nil, fmt.Errorf("opening masks array: %w", err)
	}
	raw, err := maskArr.Uint8s()
	if err != nil {
		return nil, 0, 0, nil, fmt.Errorf("reading masks: %w", err)
	}
	labels := make([]int32, len(raw))
	for i, v := range raw {
		labels[i] = int32(v)
	}
	return data, w, h, segment.FromLabelMap(labels, w, h), nil
}

func handlePrepareMicrographTraining(args []string) {
	fs := flag.NewFlagSet("classifier prepare-micrograph-training", flag.ExitOnError)
	input := fs.String("input", "", "glob of segmented frame groups (required)")
	output := fs.String("output", "", "training zarr path (required)")
	itemSize := fs.Int("item-size", training.DefaultItemSize, "per-side pixel count of stored items")
	classNames := fs.String("class-names", "", "comma-separated class list to seed the dataset")
	fs.Parse(args)

	if *input == "" || *output == "" {
		fmt.Fprintln(os.Stderr, "Error: --input and --output are required")
		fs.Usage()
		os.Exit(2)
	}

	groups, err := expandInputs(*input)
	if err != nil {
		log.Fatalf("%v", err)
	}

	var items []training.Item
	for _, dir := range groups {
		if !zarr.IsGroup(dir) {
			log.Printf("skipping %s: not a zarr group", dir)
			continue
		}
		data, w, h, masks, err := readFrameGroup(dir)
		if err != nil {
			log.Fatalf("reading %s: %v", dir, err)
		}
		frame := training.FrameItems(data, w, h, masks, *itemSize)
		items = append(items, frame...)
		log.Printf("%s: %d items", dir, len(frame))
	}

	if err := training.Write(*output, items, *itemSize, splitClassNames(*classNames)); err != nil {
		log.Fatalf("writing training dataset: %v", err)
	}
	log.Printf("wrote %d training items to %s", len(items), *output)
}

func handlePrepareTomogramTraining(args []string) {
	fs := flag.NewFlagSet("classifier prepare-tomogram-training", flag.ExitOnError)
	configPath := fs.String("config", "", "copick project config JSON (required)")
	zarrPath := fs.String("zarr-path", "", "labeled volume store from segment tomograms (required)")
	numSlabs := fs.Int("num-slabs", 5, "evenly spaced slabs per tomogram")
	output := fs.String("output", "training.zarr", "training zarr path")
	voxelSize := fs.Float64("voxel-size", 10, "voxel spacing in Å")
	tomoAlg := fs.String("tomo-alg", "wbp", "tomogram reconstruction algorithm")
	thickness := fs.Int("slab-thickness", 40, "slab thickness in voxels (overridden by stored attrs)")
	itemSize := fs.Int("item-size", training.DefaultItemSize, "per-side pixel count of stored items")
	classNames := fs.String("class-names", "", "comma-separated class list to seed the dataset")
	fs.Parse(args)

	if *configPath == "" || *zarrPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --config and --zarr-path are required")
		fs.Usage()
		os.Exit(2)
	}

	project, err := copick.Open(*configPath)
	if err != nil {
		log.Fatalf("opening project: %v", err)
	}
	runs, err := project.Runs()
	if err != nil {
		log.Fatalf("listing runs: %v", err)
	}

	var items []training.Item
	for _, run := range runs {
		groupDir := filepath.Join(*zarrPath, run)
		if !zarr.IsGroup(groupDir) {
			log.Printf("skipping %s: no labeled volume at %s", run, groupDir)
			continue
		}

		vol, err := project.LoadTomogram(run, *voxelSize, *tomoAlg)
		if err != nil {
			log.Fatalf("loading %s: %v", run, err)
		}
		labelArr, err := zarr.Open(filepath.Join(groupDir, "labels"))
		if err != nil {
			log.Fatalf("opening labels for %s: %v", run, err)
		}

		slabThickness := *thickness
		if attrs, err := zarr.Attrs(groupDir); err == nil {
			if v, ok := attrs["slab_thickness"].(float64); ok && v > 0 {
				slabThickness = int(v)
			}
		}

		centers, err := preprocess.SlabCenters(vol.Nz, *numSlabs, slabThickness)
		if err != nil {
			log.Fatalf("placing slabs in %s: %v", run, err)
		}
		for _, center := range centers {
			data, err := preprocess.SlabProject(vol.Data, vol.Nx, vol.Ny, vol.Nz, center, slabThickness)
			if err != nil {
				log.Fatalf("projecting %s z=%d: %v", run, center, err)
			}
			preprocess.ContrastStretch(data, preprocess.DefaultLowQuantile, preprocess.DefaultHighQuantile)

			section, err := labelArr.GetSectionInt32s(center)
			if err != nil {
				log.Fatalf("reading labels for %s z=%d: %v", run, center, err)
			}
			masks := segment.FromLabelMap(section, vol.Nx, vol.Ny)
			frame := training.FrameItems(data, vol.Nx, vol.Ny, masks, *itemSize)
			items = append(items, frame...)
		}
		log.Printf("%s: %d slabs", run, len(centers))
	}

	if err := training.Write(*output, items, *itemSize, splitClassNames(*classNames)); err != nil {
		log.Fatalf("writing training dataset: %v", err)
	}
	log.Printf("wrote %d training items to %s", len(items), *output)
}
