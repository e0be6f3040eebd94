package formats

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/tiff"

	"github.com/saber-data/saber/internal/mrc"
)

func TestIsSupported(t *testing.T) {
	for _, path := range []string{"a.mrc", "b.TIF", "c.ser", "d.dm3", "e.dm4", "f.rec"} {
		if !IsSupported(path) {
			t.Errorf("IsSupported(%q) = false, want true", path)
		}
	}
	for _, path := range []string{"a.png", "b.jpg", "noext", "d.zarr"} {
		if IsSupported(path) {
			t.Errorf("IsSupported(%q) = true, want false", path)
		}
	}
}

func TestLoadMRC(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mic.mrc")
	vol := &mrc.Volume{Nx: 3, Ny: 2, Nz: 1, PixelSize: 2.5, Data: []float32{1, 2, 3, 4, 5, 6}}
	if err := mrc.WriteFile(path, vol); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	im, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if im.W != 3 || im.H != 2 {
		t.Errorf("dimensions = %dx%d, want 3x2", im.W, im.H)
	}
	if im.At(2, 1) != 6 {
		t.Errorf("At(2,1) = %v, want 6", im.At(2, 1))
	}
}

func TestLoadTIFFGray16(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mic.tif")

	src := image.NewGray16(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			src.SetGray16(x, y, color.Gray16{Y: uint16(y*4+x) * 1000})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := tiff.Encode(f, src, nil); err != nil {
		t.Fatalf("tiff.Encode: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	im, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if im.W != 4 || im.H != 3 {
		t.Fatalf("dimensions = %dx%d, want 4x3", im.W, im.H)
	}
	if im.At(3, 2) != 11000 {
		t.Errorf("At(3,2) = %v, want 11000", im.At(3, 2))
	}
	if im.PixelSize != 0 {
		t.Errorf("tiff pixel size = %v, want 0 (uncalibrated)", im.PixelSize)
	}
}

func TestLoadUnsupported(t *testing.T) {
	if _, err := Load("image.png"); err == nil {
		t.Error("expected error for unsupported extension")
	}
}
