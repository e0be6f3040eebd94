package zarr

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCreateOpenRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "arr")
	a, err := Create(dir, []int{5, 4}, []int{2, 3}, DtypeFloat32)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	data := make([]float32, 20)
	for i := range data {
		data[i] = float32(i) * 0.5
	}
	if err := a.PutFloat32s(data); err != nil {
		t.Fatalf("PutFloat32s: %v", err)
	}

	b, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if diff := cmp.Diff([]int{5, 4}, b.Shape()); diff != "" {
		t.Errorf("shape mismatch (-want +got):\n%s", diff)
	}
	got, err := b.Float32s()
	if err != nil {
		t.Fatalf("Float32s: %v", err)
	}
	if diff := cmp.Diff(data, got); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestEdgeChunksPadAndTruncate(t *testing.T) {
	// 3x3 array with 2x2 chunks: all four chunks are partial on some edge.
	dir := filepath.Join(t.TempDir(), "edge")
	a, err := Create(dir, []int{3, 3}, []int{2, 2}, DtypeInt32)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	data := []int32{1, 2, 3, 4, 5, 6, 7, 8, 9}
	if err := a.PutInt32s(data); err != nil {
		t.Fatalf("PutInt32s: %v", err)
	}

	// Four chunk files must exist.
	for _, name := range []string{"0.0", "0.1", "1.0", "1.1"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("chunk %s missing: %v", name, err)
		}
	}

	got, err := a.Int32s()
	if err != nil {
		t.Fatalf("Int32s: %v", err)
	}
	if diff := cmp.Diff(data, got); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestMissingChunksReadAsZero(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sparse")
	a, err := Create(dir, []int{4}, []int{2}, DtypeUint8)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := a.Uint8s()
	if err != nil {
		t.Fatalf("Uint8s: %v", err)
	}
	for i, v := range got {
		if v != 0 {
			t.Errorf("unwritten element %d = %d, want 0", i, v)
		}
	}
}

func TestSectionAccess(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "stack")
	a, err := Create(dir, []int{3, 2, 2}, []int{1, 2, 2}, DtypeFloat32)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := a.PutSectionFloat32s(1, []float32{5, 6, 7, 8}); err != nil {
		t.Fatalf("PutSectionFloat32s: %v", err)
	}

	sec, err := a.GetSectionFloat32s(1)
	if err != nil {
		t.Fatalf("GetSectionFloat32s: %v", err)
	}
	if diff := cmp.Diff([]float32{5, 6, 7, 8}, sec); diff != "" {
		t.Errorf("section mismatch (-want +got):\n%s", diff)
	}

	// Unwritten sections read as zeros.
	sec0, err := a.GetSectionFloat32s(0)
	if err != nil {
		t.Fatalf("GetSectionFloat32s(0): %v", err)
	}
	for i, v := range sec0 {
		if v != 0 {
			t.Errorf("section 0 element %d = %v, want 0", i, v)
		}
	}

	// Sections interleave cleanly with full reads.
	full, err := a.Float32s()
	if err != nil {
		t.Fatalf("Float32s: %v", err)
	}
	if full[4] != 5 || full[7] != 8 {
		t.Errorf("full[4:8] = %v, want [5 6 7 8]", full[4:8])
	}
}

func TestSectionRequiresSectionChunking(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "wide")
	a, err := Create(dir, []int{4, 4}, []int{2, 4}, DtypeFloat32)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := a.PutSectionFloat32s(0, make([]float32, 4)); err == nil {
		t.Error("expected error for non-section chunking")
	}
}

func TestSectionOutOfRange(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "oob")
	a, err := Create(dir, []int{2, 2}, []int{1, 2}, DtypeUint8)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := a.GetSectionUint8s(2); err == nil {
		t.Error("expected error for out-of-range section")
	}
	if _, err := a.GetSectionUint8s(-1); err == nil {
		t.Error("expected error for negative section")
	}
}

func TestGroupAndAttrs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "grp")
	if err := CreateGroup(dir); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if !IsGroup(dir) {
		t.Error("IsGroup = false after CreateGroup")
	}

	attrs := map[string]interface{}{
		"class_names": []interface{}{"membrane", "ribosome"},
		"pixel_size":  7.84,
	}
	if err := SetAttrs(dir, attrs); err != nil {
		t.Fatalf("SetAttrs: %v", err)
	}
	got, err := Attrs(dir)
	if err != nil {
		t.Fatalf("Attrs: %v", err)
	}
	if diff := cmp.Diff(attrs, got); diff != "" {
		t.Errorf("attrs mismatch (-want +got):\n%s", diff)
	}

	// Missing .zattrs reads as empty.
	empty, err := Attrs(filepath.Join(t.TempDir(), "none"))
	if err != nil {
		t.Fatalf("Attrs on missing dir: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty attrs, got %v", empty)
	}
}

func TestCreateRejectsBadShapes(t *testing.T) {
	base := t.TempDir()
	if _, err := Create(filepath.Join(base, "a"), []int{2}, []int{2, 2}, DtypeFloat32); err == nil {
		t.Error("expected rank mismatch error")
	}
	if _, err := Create(filepath.Join(base, "b"), []int{0}, []int{1}, DtypeFloat32); err == nil {
		t.Error("expected non-positive extent error")
	}
	if _, err := Create(filepath.Join(base, "c"), []int{2}, []int{1}, "<f8"); err == nil {
		t.Error("expected unsupported dtype error")
	}
}
