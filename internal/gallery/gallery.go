// Package gallery renders segmentation output for human review: colored
// mask overlays, contact sheets of training items, and summary plots.
package gallery

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/saber-data/saber/internal/segment"
	"github.com/saber-data/saber/internal/training"
)

// overlayAlpha blends mask color over the grayscale base.
const overlayAlpha = 0.45

// Grayscale converts a normalized [0,1] image to 8-bit grayscale. Values
// outside the range are clamped.
func Grayscale(data []float32, w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i, v := range data {
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		img.Pix[i] = uint8(v*254 + 0.5)
	}
	return img
}

// RenderOverlay draws instance masks over a normalized grayscale image,
// one color per instance ID.
func RenderOverlay(data []float32, w, h int, masks []*segment.Mask) *image.RGBA {
	base := Grayscale(data, w, h)
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < w*h; i++ {
		g := base.Pix[i]
		out.Pix[i*4+0] = g
		out.Pix[i*4+1] = g
		out.Pix[i*4+2] = g
		out.Pix[i*4+3] = 255
	}

	colors := generateColors(len(masks))
	for mi, m := range masks {
		c := colors[mi].(color.RGBA)
		for i, b := range m.Bits {
			if b == 0 {
				continue
			}
			out.Pix[i*4+0] = blend(out.Pix[i*4+0], c.R)
			out.Pix[i*4+1] = blend(out.Pix[i*4+1], c.G)
			out.Pix[i*4+2] = blend(out.Pix[i*4+2], c.B)
		}
	}
	return out
}

func blend(base, over uint8) uint8 {
	return uint8(float64(base)*(1-overlayAlpha) + float64(over)*overlayAlpha)
}

// RenderItem draws one training item: the frame crop with its instance
// mask highlighted.
func RenderItem(img []float32, mask []uint8, size int) *image.RGBA {
	m := &segment.Mask{Bits: mask, W: size, H: size, Area: 1, MaxX: size - 1, MaxY: size - 1}
	return RenderOverlay(img, size, size, []*segment.Mask{m})
}

// SavePNG writes an image to path, creating parent directories.
func SavePNG(img image.Image, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return nil
}

// ContactSheet tiles dataset items into a review grid, cols items wide.
func ContactSheet(ds *training.Dataset, cols int) (*image.RGBA, error) {
	if cols < 1 {
		cols = 8
	}
	n := ds.NumItems
	if n == 0 {
		return nil, fmt.Errorf("dataset %s is empty", ds.Dir)
	}
	rows := (n + cols - 1) / cols
	size := ds.ItemSize
	sheet := image.NewRGBA(image.Rect(0, 0, cols*size, rows*size))

	for i := 0; i < n; i++ {
		img, err := ds.Image(i)
		if err != nil {
			return nil, fmt.Errorf("reading item %d image: %w", i, err)
		}
		mask, err := ds.Mask(i)
		if err != nil {
			return nil, fmt.Errorf("reading item %d mask: %w", i, err)
		}
		tile := RenderItem(img, mask, size)

		ox := (i % cols) * size
		oy := (i / cols) * size
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				sheet.Set(ox+x, oy+y, tile.At(x, y))
			}
		}
	}
	return sheet, nil
}

// generateColors creates a palette of distinct colors for instance masks.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range).
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
