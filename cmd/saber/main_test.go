package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/saber-data/saber/internal/copick"
	"github.com/saber-data/saber/internal/segment"
	"github.com/saber-data/saber/internal/zarr"
)

func TestItemName(t *testing.T) {
	cases := map[string]string{
		"/data/grid1/mic_001.mrc": "mic_001",
		"frame.dm4":               "frame",
		"noext":                   "noext",
	}
	for path, want := range cases {
		if got := itemName(path); got != want {
			t.Errorf("itemName(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestDeviceList(t *testing.T) {
	if diff := cmp.Diff([]int{-1}, deviceList(0)); diff != "" {
		t.Errorf("cpu list mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0, 1, 2}, deviceList(3)); diff != "" {
		t.Errorf("gpu list mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitClassNames(t *testing.T) {
	got := splitClassNames(" carbon, ice ,,contamination ")
	want := []string{"carbon", "ice", "contamination"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("class names mismatch (-want +got):\n%s", diff)
	}
	if splitClassNames("") != nil {
		t.Error("empty list should be nil")
	}
}

func TestExpandInputs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.mrc", "b.mrc", "c.tif"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("writing fixture: %v", err)
		}
	}

	paths, err := expandInputs(filepath.Join(dir, "*.mrc"))
	if err != nil {
		t.Fatalf("expandInputs: %v", err)
	}
	if len(paths) != 2 {
		t.Errorf("glob matched %d files, want 2", len(paths))
	}

	// Plain path with glob metacharacter-free name.
	paths, err = expandInputs(filepath.Join(dir, "c.tif"))
	if err != nil {
		t.Fatalf("expandInputs single: %v", err)
	}
	if len(paths) != 1 {
		t.Errorf("single path matched %d files, want 1", len(paths))
	}

	if _, err := expandInputs(filepath.Join(dir, "*.dm4")); err == nil {
		t.Error("expected error for pattern with no matches")
	}
}

func rectMask(w, h, x0, y0, x1, y1 int, id int) *segment.Mask {
	m := &segment.Mask{ID: id, Bits: make([]uint8, w*h), W: w, H: h, MinX: x0, MinY: y0, MaxX: x1, MaxY: y1}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			m.Bits[y*w+x] = 1
			m.Area++
		}
	}
	return m
}

func TestFrameGroupRoundTrip(t *testing.T) {
	out := filepath.Join(t.TempDir(), "segmented.zarr")
	if err := zarr.CreateGroup(out); err != nil {
		t.Fatalf("creating store: %v", err)
	}

	w, h := 12, 10
	data := make([]float32, w*h)
	data[3*w+4] = 0.5
	masks := []*segment.Mask{
		rectMask(w, h, 1, 1, 3, 3, 1),
		rectMask(w, h, 6, 5, 9, 8, 2),
	}

	dir, err := writeFrameGroup(out, "mic_001", data, w, h, 1.2, masks)
	if err != nil {
		t.Fatalf("writeFrameGroup: %v", err)
	}

	gotData, gotW, gotH, gotMasks, err := readFrameGroup(dir)
	if err != nil {
		t.Fatalf("readFrameGroup: %v", err)
	}
	if gotW != w || gotH != h {
		t.Fatalf("dims = %dx%d, want %dx%d", gotW, gotH, w, h)
	}
	if gotData[3*w+4] != 0.5 {
		t.Errorf("image pixel = %v, want 0.5", gotData[3*w+4])
	}
	if len(gotMasks) != 2 {
		t.Fatalf("got %d masks, want 2", len(gotMasks))
	}
	if gotMasks[0].ID != 1 || gotMasks[0].Area != 9 {
		t.Errorf("mask 1 = id %d area %d, want id 1 area 9", gotMasks[0].ID, gotMasks[0].Area)
	}

	attrs, err := zarr.Attrs(dir)
	if err != nil {
		t.Fatalf("Attrs: %v", err)
	}
	if v, _ := attrs["num_masks"].(float64); int(v) != 2 {
		t.Errorf("num_masks attr = %v, want 2", attrs["num_masks"])
	}
}

func TestWriteLabelVolume(t *testing.T) {
	out := filepath.Join(t.TempDir(), "segmented.zarr")
	if err := zarr.CreateGroup(out); err != nil {
		t.Fatalf("creating store: %v", err)
	}

	nx, ny, nz := 4, 3, 5
	labels := make([]int32, nx*ny*nz)
	labels[2*nx*ny+1*nx+2] = 7

	dir, err := writeLabelVolume(out, "run42", labels, nx, ny, nz, map[string]interface{}{
		"voxel_size": 10.0,
	})
	if err != nil {
		t.Fatalf("writeLabelVolume: %v", err)
	}

	arr, err := zarr.Open(filepath.Join(dir, "labels"))
	if err != nil {
		t.Fatalf("opening labels: %v", err)
	}
	if diff := cmp.Diff([]int{nz, ny, nx}, arr.Shape()); diff != "" {
		t.Fatalf("shape mismatch (-want +got):\n%s", diff)
	}
	section, err := arr.GetSectionInt32s(2)
	if err != nil {
		t.Fatalf("reading section: %v", err)
	}
	if section[1*nx+2] != 7 {
		t.Errorf("voxel = %d, want 7", section[1*nx+2])
	}
}

func testProject(t *testing.T, runs ...string) *copick.Project {
	t.Helper()
	dir := t.TempDir()
	overlay := filepath.Join(dir, "overlay")
	for _, run := range runs {
		if err := os.MkdirAll(filepath.Join(overlay, "ExperimentRuns", run), 0o755); err != nil {
			t.Fatalf("creating run dir: %v", err)
		}
	}
	cfg := map[string]interface{}{
		"name":         "test",
		"config_type":  "cryoet",
		"overlay_root": "local://" + overlay,
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshaling config: %v", err)
	}
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	project, err := copick.Open(path)
	if err != nil {
		t.Fatalf("opening project: %v", err)
	}
	return project
}

func TestSelectRuns(t *testing.T) {
	project := testProject(t, "run_a", "run_b", "run_c")

	all, err := selectRuns(project, "")
	if err != nil {
		t.Fatalf("selectRuns all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("got %d runs, want 3", len(all))
	}

	picked, err := selectRuns(project, "run_b, run_c")
	if err != nil {
		t.Fatalf("selectRuns subset: %v", err)
	}
	if diff := cmp.Diff([]string{"run_b", "run_c"}, picked); diff != "" {
		t.Errorf("subset mismatch (-want +got):\n%s", diff)
	}

	if _, err := selectRuns(project, "run_x"); err == nil {
		t.Error("expected error for unknown run")
	}
}
