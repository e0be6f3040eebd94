// Package formats loads electron microscopy images from the file formats
// produced by common acquisition software: MRC, TIFF, FEI SER, and Gatan
// DM3/DM4. All loaders decode into a single float32 image representation.
package formats

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"

	"github.com/saber-data/saber/internal/mrc"
)

// Image is a decoded 2D micrograph.
type Image struct {
	W, H      int
	PixelSize float64 // Å per pixel, 0 if the file carries no calibration
	Data      []float32
}

// At returns the pixel at (x, y).
func (im *Image) At(x, y int) float32 {
	return im.Data[y*im.W+x]
}

// SupportedExtensions lists the file extensions Load understands.
var SupportedExtensions = []string{".mrc", ".mrcs", ".rec", ".st", ".tif", ".tiff", ".ser", ".dm3", ".dm4"}

// IsSupported reports whether path has a loadable extension.
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Load reads the micrograph at path, dispatching on the file extension.
// Multi-section MRC stacks yield their first section.
func Load(path string) (*Image, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mrc", ".mrcs", ".rec", ".st":
		return loadMRC(path)
	case ".tif", ".tiff":
		return loadTIFF(path)
	case ".ser":
		return LoadSER(path)
	case ".dm3", ".dm4":
		return LoadDM(path)
	default:
		return nil, fmt.Errorf("unsupported image format %q", filepath.Ext(path))
	}
}

func loadMRC(path string) (*Image, error) {
	vol, err := mrc.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Image{
		W:         vol.Nx,
		H:         vol.Ny,
		PixelSize: vol.PixelSize,
		Data:      vol.Section(0),
	}, nil
}

func loadTIFF(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tiff: %w", err)
	}
	defer f.Close()

	img, err := tiff.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode tiff: %w", err)
	}

	b := img.Bounds()
	out := &Image{
		W:    b.Dx(),
		H:    b.Dy(),
		Data: make([]float32, b.Dx()*b.Dy()),
	}

	// Gray16 is the common camera output; decode it without the color
	// conversion round trip. Everything else goes through luminance.
	switch im := img.(type) {
	case *image.Gray16:
		for y := 0; y < out.H; y++ {
			for x := 0; x < out.W; x++ {
				v := im.Gray16At(b.Min.X+x, b.Min.Y+y).Y
				out.Data[y*out.W+x] = float32(v)
			}
		}
	case *image.Gray:
		for y := 0; y < out.H; y++ {
			for x := 0; x < out.W; x++ {
				out.Data[y*out.W+x] = float32(im.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
	default:
		for y := 0; y < out.H; y++ {
			for x := 0; x < out.W; x++ {
				r, g, bb, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				out.Data[y*out.W+x] = float32(r+g+bb) / 3
			}
		}
	}

	return out, nil
}
