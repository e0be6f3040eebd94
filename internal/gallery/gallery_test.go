package gallery

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/saber-data/saber/internal/segment"
	"github.com/saber-data/saber/internal/training"
)

func rectMask(w, h, x0, y0, x1, y1 int) *segment.Mask {
	m := &segment.Mask{Bits: make([]uint8, w*h), W: w, H: h}
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			m.Bits[y*w+x] = 1
			m.Area++
		}
	}
	m.MinX, m.MinY, m.MaxX, m.MaxY = x0, y0, x1-1, y1-1
	return m
}

func TestGrayscaleClamps(t *testing.T) {
	img := Grayscale([]float32{-1, 0, 0.5, 1, 2}, 5, 1)
	if img.Pix[0] != 0 || img.Pix[1] != 0 {
		t.Errorf("low values = %d,%d, want 0,0", img.Pix[0], img.Pix[1])
	}
	if img.Pix[3] != 254 || img.Pix[4] != 254 {
		t.Errorf("high values = %d,%d, want 254,254", img.Pix[3], img.Pix[4])
	}
}

func TestRenderOverlay(t *testing.T) {
	w, h := 16, 16
	data := make([]float32, w*h)
	m := rectMask(w, h, 4, 4, 12, 12)
	m.ID = 1

	out := RenderOverlay(data, w, h, []*segment.Mask{m})
	if out.Bounds().Dx() != w || out.Bounds().Dy() != h {
		t.Fatalf("bounds = %v, want %dx%d", out.Bounds(), w, h)
	}

	// Background stays gray, mask pixels pick up color.
	bg := out.RGBAAt(0, 0)
	if bg.R != bg.G || bg.G != bg.B {
		t.Errorf("background pixel = %v, want gray", bg)
	}
	fg := out.RGBAAt(8, 8)
	if fg.R == fg.G && fg.G == fg.B {
		t.Errorf("mask pixel = %v, want colored", fg)
	}
}

func TestSavePNG(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.png")
	img := Grayscale(make([]float32, 4), 2, 2)
	if err := SavePNG(img, path); err != nil {
		t.Fatalf("SavePNG: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening output: %v", err)
	}
	defer f.Close()
	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if decoded.Bounds().Dx() != 2 {
		t.Errorf("decoded width = %d, want 2", decoded.Bounds().Dx())
	}
}

func TestContactSheet(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "train.zarr")
	size := 8
	plane := size * size
	items := make([]training.Item, 5)
	for i := range items {
		items[i] = training.Item{Image: make([]float32, plane), Mask: make([]uint8, plane)}
		items[i].Mask[0] = 1
	}
	if err := training.Write(dir, items, size, []string{"a"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	ds, err := training.Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	sheet, err := ContactSheet(ds, 2)
	if err != nil {
		t.Fatalf("ContactSheet: %v", err)
	}
	// 5 items in 2 columns -> 3 rows.
	if sheet.Bounds().Dx() != 2*size || sheet.Bounds().Dy() != 3*size {
		t.Errorf("sheet = %v, want %dx%d", sheet.Bounds(), 2*size, 3*size)
	}
}

func TestSavePlots(t *testing.T) {
	dir := t.TempDir()
	masks := []*segment.Mask{
		rectMask(16, 16, 0, 0, 4, 4),
		rectMask(16, 16, 4, 4, 12, 12),
		rectMask(16, 16, 0, 8, 8, 16),
	}
	for i, m := range masks {
		m.ID = i + 1
		m.Score = float32(0.9) - float32(i)*0.1
	}

	areaPath := filepath.Join(dir, "areas.png")
	if err := SaveAreaHistogram(masks, areaPath); err != nil {
		t.Fatalf("SaveAreaHistogram: %v", err)
	}
	if _, err := os.Stat(areaPath); err != nil {
		t.Errorf("histogram file: %v", err)
	}

	scorePath := filepath.Join(dir, "scores.png")
	if err := SaveScorePlot(masks, scorePath); err != nil {
		t.Fatalf("SaveScorePlot: %v", err)
	}
	if _, err := os.Stat(scorePath); err != nil {
		t.Errorf("score plot file: %v", err)
	}

	if err := SaveAreaHistogram(nil, filepath.Join(dir, "x.png")); err == nil {
		t.Error("expected error for empty mask set")
	}
}
