package preprocess

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Rescale resamples a w×h image from pixelSize to targetRes (both Å/px) by
// Fourier cropping, which preserves the low-frequency content exactly and
// introduces no interpolation artifacts. targetRes must be coarser than
// pixelSize. Returns the resampled data and its dimensions.
func Rescale(data []float32, w, h int, pixelSize, targetRes float64) ([]float32, int, int, error) {
	if pixelSize <= 0 {
		return nil, 0, 0, fmt.Errorf("image has no pixel size calibration; use an explicit scale factor")
	}
	if targetRes < pixelSize {
		return nil, 0, 0, fmt.Errorf("target resolution %.2f Å is finer than the data (%.2f Å/px)", targetRes, pixelSize)
	}
	if targetRes == pixelSize {
		out := make([]float32, len(data))
		copy(out, data)
		return out, w, h, nil
	}

	factor := pixelSize / targetRes
	wOut := int(math.Round(float64(w) * factor))
	hOut := int(math.Round(float64(h) * factor))
	if wOut < 2 || hOut < 2 {
		return nil, 0, 0, fmt.Errorf("target resolution %.2f Å collapses the image to %dx%d", targetRes, wOut, hOut)
	}

	out := fourierCrop(data, w, h, wOut, hOut)
	return out, wOut, hOut, nil
}

// fourierCrop transforms the image, keeps only the frequencies representable
// at the output size, and inverts. Coefficients are scaled so the image mean
// is preserved.
func fourierCrop(data []float32, w, h, wOut, hOut int) []float32 {
	// Forward 2D FFT: rows then columns.
	grid := make([]complex128, w*h)
	for i, v := range data {
		grid[i] = complex(float64(v), 0)
	}

	rowFFT := fourier.NewCmplxFFT(w)
	for y := 0; y < h; y++ {
		row := grid[y*w : (y+1)*w]
		rowFFT.Coefficients(row, row)
	}

	colFFT := fourier.NewCmplxFFT(h)
	col := make([]complex128, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = grid[y*w+x]
		}
		colFFT.Coefficients(col, col)
		for y := 0; y < h; y++ {
			grid[y*w+x] = col[y]
		}
	}

	// Crop: output frequency f lives at source index f mod N (standard FFT
	// ordering keeps negative frequencies in the upper half).
	scale := complex(float64(wOut*hOut)/float64(w*h), 0)
	cropped := make([]complex128, wOut*hOut)
	for yo := 0; yo < hOut; yo++ {
		fy := yo
		if yo > hOut/2 {
			fy = yo - hOut
		}
		ys := ((fy % h) + h) % h
		for xo := 0; xo < wOut; xo++ {
			fx := xo
			if xo > wOut/2 {
				fx = xo - wOut
			}
			xs := ((fx % w) + w) % w
			cropped[yo*wOut+xo] = grid[ys*w+xs] * scale
		}
	}

	// Inverse 2D FFT.
	rowIFFT := fourier.NewCmplxFFT(wOut)
	for y := 0; y < hOut; y++ {
		row := cropped[y*wOut : (y+1)*wOut]
		rowIFFT.Sequence(row, row)
	}
	colIFFT := fourier.NewCmplxFFT(hOut)
	colOut := make([]complex128, hOut)
	for x := 0; x < wOut; x++ {
		for y := 0; y < hOut; y++ {
			colOut[y] = cropped[y*wOut+x]
		}
		colIFFT.Sequence(colOut, colOut)
		for y := 0; y < hOut; y++ {
			cropped[y*wOut+x] = colOut[y]
		}
	}

	// Sequence is unnormalized; divide by the output grid size.
	norm := 1 / float64(wOut*hOut)
	out := make([]float32, wOut*hOut)
	for i, c := range cropped {
		out[i] = float32(real(c) * norm)
	}
	return out
}

// Bin downsamples by an integer factor, averaging factor×factor blocks.
// Trailing rows and columns that do not fill a block are dropped.
func Bin(data []float32, w, h, factor int) ([]float32, int, int, error) {
	if factor < 1 {
		return nil, 0, 0, fmt.Errorf("scale factor must be >= 1, got %d", factor)
	}
	if factor == 1 {
		out := make([]float32, len(data))
		copy(out, data)
		return out, w, h, nil
	}
	wOut := w / factor
	hOut := h / factor
	if wOut < 1 || hOut < 1 {
		return nil, 0, 0, fmt.Errorf("scale factor %d exceeds image size %dx%d", factor, w, h)
	}

	out := make([]float32, wOut*hOut)
	inv := 1 / float32(factor*factor)
	for yo := 0; yo < hOut; yo++ {
		for xo := 0; xo < wOut; xo++ {
			var sum float32
			for dy := 0; dy < factor; dy++ {
				row := (yo*factor + dy) * w
				for dx := 0; dx < factor; dx++ {
					sum += data[row+xo*factor+dx]
				}
			}
			out[yo*wOut+xo] = sum * inv
		}
	}
	return out, wOut, hOut, nil
}
