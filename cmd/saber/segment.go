package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/saber-data/saber/internal/copick"
	"github.com/saber-data/saber/internal/db"
	"github.com/saber-data/saber/internal/formats"
	"github.com/saber-data/saber/internal/gallery"
	"github.com/saber-data/saber/internal/pool"
	"github.com/saber-data/saber/internal/preprocess"
	"github.com/saber-data/saber/internal/sam2"
	"github.com/saber-data/saber/internal/segment"
	"github.com/saber-data/saber/internal/units"
	"github.com/saber-data/saber/internal/worker"
	"github.com/saber-data/saber/internal/zarr"
)

func handleSegment(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: saber segment <micrograph|slab|tomograms> [options]")
		os.Exit(2)
	}
	switch args[0] {
	case "micrograph":
		handleSegmentMicrograph(args[1:])
	case "slab":
		handleSegmentSlab(args[1:])
	case "tomograms":
		handleSegmentTomograms(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown segment mode: %s\n", args[0])
		fmt.Fprintln(os.Stderr, "Usage: saber segment <micrograph|slab|tomograms> [options]")
		os.Exit(2)
	}
}

// modelFlags are the segmentation settings shared by every segment mode.
type modelFlags struct {
	encoder      *string
	decoder      *string
	devices      *int
	workers      *string
	gridSize     *int
	minArea      *int
	dedupIoU     *float64
	borderMargin *int
}

func addModelFlags(fs *flag.FlagSet) *modelFlags {
	return &modelFlags{
		encoder:      fs.String("sam2-encoder", "", "SAM2 image encoder ONNX model"),
		decoder:      fs.String("sam2-decoder", "", "SAM2 prompt decoder ONNX model"),
		devices:      fs.Int("devices", 0, "number of CUDA devices (0 = CPU)"),
		workers:      fs.String("workers", "", "comma-separated remote worker addresses instead of local models"),
		gridSize:     fs.Int("grid-size", 0, "prompt grid side length (default 16)"),
		minArea:      fs.Int("min-mask-area", 0, "drop masks smaller than this many pixels"),
		dedupIoU:     fs.Float64("min-rel-iou", 0, "overlap above which two masks are duplicates (default 0.8)"),
		borderMargin: fs.Int("border-margin", 0, "drop masks within this many pixels of the frame edge"),
	}
}

func (mf *modelFlags) filter() segment.FilterOptions {
	return segment.FilterOptions{
		MinArea:      *mf.minArea,
		DedupIoU:     *mf.dedupIoU,
		BorderMargin: *mf.borderMargin,
	}
}

// deviceList expands a device count into pool device IDs; zero devices
// means one CPU model.
func deviceList(n int) []int {
	if n <= 0 {
		return []int{-1}
	}
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i
	}
	return ids
}

// frameSegmenter segments one normalized frame, either locally against a
// model pool or remotely via worker daemons.
type frameSegmenter interface {
	Segment(ctx context.Context, data []float32, w, h int) ([]*segment.Mask, error)
	Close() error
}

type localSegmenter struct {
	pool   *sam2.Pool
	engine *segment.Engine
}

func (s *localSegmenter) Segment(ctx context.Context, data []float32, w, h int) ([]*segment.Mask, error) {
	return s.engine.SegmentImage(ctx, data, w, h)
}

func (s *localSegmenter) Close() error { return s.pool.Close() }

type remoteSegmenter struct {
	clients []*worker.Client
	opts    worker.SegmentOptions
	next    atomic.Uint64
}

func (s *remoteSegmenter) Segment(ctx context.Context, data []float32, w, h int) ([]*segment.Mask, error) {
	c := s.clients[int(s.next.Add(1))%len(s.clients)]
	return c.Segment(ctx, data, w, h, s.opts)
}

func (s *remoteSegmenter) Close() error {
	var first error
	for _, c := range s.clients {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// newSegmenter builds the segmentation backend from the flags and reports
// how many frames it can work on concurrently.
func newSegmenter(mf *modelFlags) (frameSegmenter, int, error) {
	if *mf.workers != "" {
		var clients []*worker.Client
		for _, addr := range strings.Split(*mf.workers, ",") {
			addr = strings.TrimSpace(addr)
			if addr == "" {
				continue
			}
			c, err := worker.Dial(addr)
			if err != nil {
				for _, open := range clients {
					open.Close()
				}
				return nil, 0, err
			}
			clients = append(clients, c)
		}
		if len(clients) == 0 {
			return nil, 0, fmt.Errorf("no worker addresses in %q", *mf.workers)
		}
		opts := worker.SegmentOptions{
			GridSize:     *mf.gridSize,
			MinArea:      *mf.minArea,
			BorderMargin: *mf.borderMargin,
			DedupIoU:     *mf.dedupIoU,
		}
		return &remoteSegmenter{clients: clients, opts: opts}, len(clients), nil
	}

	if *mf.encoder == "" || *mf.decoder == "" {
		return nil, 0, fmt.Errorf("--sam2-encoder and --sam2-decoder are required without --workers")
	}
	cfg := sam2.Config{EncoderPath: *mf.encoder, DecoderPath: *mf.decoder}
	p, err := sam2.NewPool(cfg, deviceList(*mf.devices))
	if err != nil {
		return nil, 0, fmt.Errorf("loading models: %w", err)
	}
	eng := &segment.Engine{Pool: p, GridSize: *mf.gridSize, Filter: mf.filter()}
	return &localSegmenter{pool: p, engine: eng}, p.Size(), nil
}

// expandInputs resolves a glob, or a single file path when the glob
// matches nothing.
func expandInputs(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad input pattern %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		if _, statErr := os.Stat(pattern); statErr != nil {
			return nil, fmt.Errorf("no inputs match %q", pattern)
		}
		matches = []string{pattern}
	}
	return matches, nil
}

// itemName derives the zarr group name for an input file.
func itemName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// writeFrameGroup stores one segmented frame as a zarr group holding the
// normalized image and the mask label map.
func writeFrameGroup(outDir, name string, data []float32, w, h int, pixelSize float64, masks []*segment.Mask) (string, error) {
	dir := filepath.Join(outDir, name)
	if err := zarr.CreateGroup(dir); err != nil {
		return "", fmt.Errorf("creating group: %w", err)
	}
	if err := zarr.SetAttrs(dir, map[string]interface{}{
		"width":      w,
		"height":     h,
		"pixel_size": pixelSize,
		"num_masks":  len(masks),
	}); err != nil {
		return "", fmt.Errorf("writing attrs: %w", err)
	}

	image, err := zarr.Create(filepath.Join(dir, "image"), []int{h, w}, []int{h, w}, zarr.DtypeFloat32)
	if err != nil {
		return "", fmt.Errorf("creating image array: %w", err)
	}
	if err := image.PutFloat32s(data); err != nil {
		return "", fmt.Errorf("writing image: %w", err)
	}

	labels, err := zarr.Create(filepath.Join(dir, "masks"), []int{h, w}, []int{h, w}, zarr.DtypeUint8)
	if err != nil {
		return "", fmt.Errorf("creating masks array: %w", err)
	}
	if err := labels.PutUint8s(segment.LabelMap(masks, w, h)); err != nil {
		return "", fmt.Errorf("writing masks: %w", err)
	}
	return dir, nil
}

// saveGallery renders the overlay PNG and mask area histogram for a frame.
func saveGallery(dir, name string, data []float32, w, h int, masks []*segment.Mask) error {
	overlay := gallery.RenderOverlay(data, w, h, masks)
	if err := gallery.SavePNG(overlay, filepath.Join(dir, name+".png")); err != nil {
		return err
	}
	if len(masks) > 0 {
		return gallery.SaveAreaHistogram(masks, filepath.Join(dir, name+"_areas.png"))
	}
	return nil
}

func recordRun(database *db.DB, kind, input, output, model string, numMasks int, elapsed time.Duration) {
	run := &db.Run{
		Kind:       kind,
		Input:      input,
		Output:     output,
		Model:      model,
		NumMasks:   numMasks,
		DurationMs: elapsed.Milliseconds(),
	}
	if err := database.RecordRun(run); err != nil {
		log.Printf("failed to record run for %s: %v", input, err)
	}
}

func handleSegmentMicrograph(args []string) {
	fs := flag.NewFlagSet("segment micrograph", flag.ExitOnError)
	input := fs.String("input", "", "micrograph file or glob (required)")
	output := fs.String("output", "segmented.zarr", "output zarr directory")
	targetRes := fs.Float64("target-resolution", 0, "rescale to this pixel size (Fourier crop)")
	resUnits := fs.String("units", units.Angstrom, "units for --target-resolution: angstrom, nm, um")
	scale := fs.Int("scale", 0, "integer downscale factor (mutually exclusive with --target-resolution)")
	galleryDir := fs.String("gallery", "", "directory for overlay PNGs and plots")
	dbFile := fs.String("db", "saber.db", "sqlite database for run records")
	mf := addModelFlags(fs)
	fs.Parse(args)

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Error: --input is required")
		fs.Usage()
		os.Exit(2)
	}
	if *targetRes > 0 && *scale > 0 {
		fmt.Fprintln(os.Stderr, "Error: --target-resolution and --scale are mutually exclusive")
		fs.Usage()
		os.Exit(2)
	}
	if !units.IsValid(*resUnits) {
		fmt.Fprintf(os.Stderr, "Error: unknown units %q (valid: %s)\n", *resUnits, units.GetValidUnitsString())
		fs.Usage()
		os.Exit(2)
	}
	targetAngstrom := units.ToAngstrom(*targetRes, *resUnits)

	paths, err := expandInputs(*input)
	if err != nil {
		log.Fatalf("%v", err)
	}

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer database.Close()

	seg, workers, err := newSegmenter(mf)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer seg.Close()

	if err := zarr.CreateGroup(*output); err != nil {
		log.Fatalf("creating output store: %v", err)
	}

	ctx := signalContext()
	runner := pool.Runner{Workers: workers}
	stats, results, err := runner.Run(ctx, len(paths), func(ctx context.Context, taskID, _ int) error {
		path := paths[taskID]
		start := time.Now()

		img, err := formats.Load(path)
		if err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
		data, w, h := img.Data, img.W, img.H
		pixel := img.PixelSize
		switch {
		case targetAngstrom > 0:
			data, w, h, err = preprocess.Rescale(data, w, h, pixel, targetAngstrom)
			if err != nil {
				return fmt.Errorf("rescaling %s: %w", path, err)
			}
			pixel = targetAngstrom
		case *scale > 1:
			data, w, h, err = preprocess.Bin(data, w, h, *scale)
			if err != nil {
				return fmt.Errorf("binning %s: %w", path, err)
			}
			pixel *= float64(*scale)
		}
		preprocess.ContrastStretch(data, preprocess.DefaultLowQuantile, preprocess.DefaultHighQuantile)

		masks, err := seg.Segment(ctx, data, w, h)
		if err != nil {
			return fmt.Errorf("segmenting %s: %w", path, err)
		}

		name := itemName(path)
		groupDir, err := writeFrameGroup(*output, name, data, w, h, pixel, masks)
		if err != nil {
			return fmt.Errorf("storing %s: %w", path, err)
		}
		if *galleryDir != "" {
			if err := saveGallery(*galleryDir, name, data, w, h, masks); err != nil {
				return fmt.Errorf("rendering gallery for %s: %w", path, err)
			}
		}
		recordRun(database, "micrograph", path, groupDir, *mf.encoder, len(masks), time.Since(start))
		return nil
	})
	if err != nil {
		log.Fatalf("segmentation aborted: %v", err)
	}

	stats.Report("segment micrograph")
	for _, r := range results {
		if r.Err != nil {
			log.Printf("task %d: %v", r.TaskID, r.Err)
		}
	}
	if stats.Failed > 0 {
		log.Fatalf("%d of %d micrographs failed", stats.Failed, stats.Tasks)
	}
}

func handleSegmentSlab(args []string) {
	fs := flag.NewFlagSet("segment slab", flag.ExitOnError)
	configPath := fs.String("config", "", "copick project config JSON (required)")
	runID := fs.String("run-id", "", "run to segment (required)")
	voxelSize := fs.Float64("voxel-size", 10, "voxel spacing in Å")
	tomoAlg := fs.String("tomo-alg", "wbp", "tomogram reconstruction algorithm")
	thickness := fs.Int("slab-thickness", 40, "slab thickness in voxels")
	output := fs.String("output", "segmented.zarr", "output zarr directory")
	galleryDir := fs.String("gallery", "", "directory for overlay PNGs and plots")
	dbFile := fs.String("db", "saber.db", "sqlite database for run records")
	mf := addModelFlags(fs)
	fs.Parse(args)

	if *configPath == "" || *runID == "" {
		fmt.Fprintln(os.Stderr, "Error: --config and --run-id are required")
		fs.Usage()
		os.Exit(2)
	}

	project, err := copick.Open(*configPath)
	if err != nil {
		log.Fatalf("opening project: %v", err)
	}
	vol, err := project.LoadTomogram(*runID, *voxelSize, *tomoAlg)
	if err != nil {
		log.Fatalf("loading tomogram: %v", err)
	}

	center := vol.Nz / 2
	data, err := preprocess.SlabProject(vol.Data, vol.Nx, vol.Ny, vol.Nz, center, *thickness)
	if err != nil {
		log.Fatalf("projecting slab: %v", err)
	}
	preprocess.ContrastStretch(data, preprocess.DefaultLowQuantile, preprocess.DefaultHighQuantile)

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer database.Close()

	seg, _, err := newSegmenter(mf)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer seg.Close()

	ctx := signalContext()
	start := time.Now()
	masks, err := seg.Segment(ctx, data, vol.Nx, vol.Ny)
	if err != nil {
		log.Fatalf("segmenting slab: %v", err)
	}

	if err := zarr.CreateGroup(*output); err != nil {
		log.Fatalf("creating output store: %v", err)
	}
	name := fmt.Sprintf("%s_z%d", *runID, center)
	groupDir, err := writeFrameGroup(*output, name, data, vol.Nx, vol.Ny, *voxelSize, masks)
	if err != nil {
		log.Fatalf("storing slab: %v", err)
	}
	if *galleryDir != "" {
		if err := saveGallery(*galleryDir, name, data, vol.Nx, vol.Ny, masks); err != nil {
			log.Fatalf("rendering gallery: %v", err)
		}
	}
	recordRun(database, "slab", *runID, groupDir, *mf.encoder, len(masks), time.Since(start))
	log.Printf("segmented %s slab z=%d: %d masks", *runID, center, len(masks))
}

func handleSegmentTomograms(args []string) {
	fs := flag.NewFlagSet("segment tomograms", flag.ExitOnError)
	configPath := fs.String("config", "", "copick project config JSON (required)")
	runIDs := fs.String("run-ids", "", "comma-separated runs (default: every run in the project)")
	voxelSize := fs.Float64("voxel-size", 10, "voxel spacing in Å")
	tomoAlg := fs.String("tomo-alg", "wbp", "tomogram reconstruction algorithm")
	thickness := fs.Int("slab-thickness", 40, "slab thickness in voxels")
	numSlabs := fs.Int("num-slabs", 5, "evenly spaced slabs per tomogram")
	output := fs.String("output", "segmented.zarr", "output zarr directory")
	dbFile := fs.String("db", "saber.db", "sqlite database for run records")
	mf := addModelFlags(fs)
	fs.Parse(args)

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --config is required")
		fs.Usage()
		os.Exit(2)
	}

	project, err := copick.Open(*configPath)
	if err != nil {
		log.Fatalf("opening project: %v", err)
	}
	runs, err := selectRuns(project, *runIDs)
	if err != nil {
		log.Fatalf("%v", err)
	}

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer database.Close()

	seg, workers, err := newSegmenter(mf)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer seg.Close()

	if err := zarr.CreateGroup(*output); err != nil {
		log.Fatalf("creating output store: %v", err)
	}

	ctx := signalContext()
	runner := pool.Runner{Workers: workers}
	stats, results, err := runner.Run(ctx, len(runs), func(ctx context.Context, taskID, _ int) error {
		run := runs[taskID]
		start := time.Now()

		vol, err := project.LoadTomogram(run, *voxelSize, *tomoAlg)
		if err != nil {
			return fmt.Errorf("loading %s: %w", run, err)
		}
		centers, err := preprocess.SlabCenters(vol.Nz, *numSlabs, *thickness)
		if err != nil {
			return fmt.Errorf("placing slabs in %s: %w", run, err)
		}

		slabs := make([]segment.Slab, 0, len(centers))
		for _, center := range centers {
			data, err := preprocess.SlabProject(vol.Data, vol.Nx, vol.Ny, vol.Nz, center, *thickness)
			if err != nil {
				return fmt.Errorf("projecting %s z=%d: %w", run, center, err)
			}
			preprocess.ContrastStretch(data, preprocess.DefaultLowQuantile, preprocess.DefaultHighQuantile)
			masks, err := seg.Segment(ctx, data, vol.Nx, vol.Ny)
			if err != nil {
				return fmt.Errorf("segmenting %s z=%d: %w", run, center, err)
			}
			slabs = append(slabs, segment.Slab{Center: center, Masks: masks})
		}

		instances := segment.Propagate3D(slabs)
		labels := segment.ExtrudeVolume(slabs, vol.Nx, vol.Ny, vol.Nz, *thickness)

		groupDir, err := writeLabelVolume(*output, run, labels, vol.Nx, vol.Ny, vol.Nz, map[string]interface{}{
			"voxel_size":     *voxelSize,
			"tomo_alg":       *tomoAlg,
			"slab_thickness": *thickness,
			"num_instances":  instances,
		})
		if err != nil {
			return fmt.Errorf("storing %s: %w", run, err)
		}
		recordRun(database, "tomogram", run, groupDir, *mf.encoder, instances, time.Since(start))
		log.Printf("segmented %s: %d slabs, %d instances", run, len(slabs), instances)
		return nil
	})
	if err != nil {
		log.Fatalf("segmentation aborted: %v", err)
	}

	stats.Report("segment tomograms")
	for _, r := range results {
		if r.Err != nil {
			log.Printf("task %d: %v", r.TaskID, r.Err)
		}
	}
	if stats.Failed > 0 {
		log.Fatalf("%d of %d tomograms failed", stats.Failed, stats.Tasks)
	}
}

// selectRuns resolves the --run-ids flag against the project's runs.
func selectRuns(project *copick.Project, csv string) ([]string, error) {
	all, err := project.Runs()
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	if csv == "" {
		if len(all) == 0 {
			return nil, fmt.Errorf("project has no runs")
		}
		return all, nil
	}

	known := make(map[string]bool, len(all))
	for _, run := range all {
		known[run] = true
	}
	var runs []string
	for _, run := range strings.Split(csv, ",") {
		run = strings.TrimSpace(run)
		if run == "" {
			continue
		}
		if !known[run] {
			return nil, fmt.Errorf("run %q not in project", run)
		}
		runs = append(runs, run)
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("no runs selected")
	}
	return runs, nil
}

// writeLabelVolume stores a labeled tomogram volume section by section.
func writeLabelVolume(outDir, run string, labels []int32, nx, ny, nz int, attrs map[string]interface{}) (string, error) {
	dir := filepath.Join(outDir, run)
	if err := zarr.CreateGroup(dir); err != nil {
		return "", fmt.Errorf("creating group: %w", err)
	}
	if err := zarr.SetAttrs(dir, attrs); err != nil {
		return "", fmt.Errorf("writing attrs: %w", err)
	}

	arr, err := zarr.Create(filepath.Join(dir, "labels"), []int{nz, ny, nx}, []int{1, ny, nx}, zarr.DtypeInt32)
	if err != nil {
		return "", fmt.Errorf("creating labels array: %w", err)
	}
	plane := nx * ny
	for z := 0; z < nz; z++ {
		if err := arr.PutSectionInt32s(z, labels[z*plane:(z+1)*plane]); err != nil {
			return "", fmt.Errorf("writing section %d: %w", z, err)
		}
	}
	return dir, nil
}
