// Package preprocess prepares raw micrographs and tomogram slabs for the
// segmentation model: contrast normalization, resolution rescaling, and
// slab projection.
package preprocess

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Default contrast percentiles. Cryo-EM intensity histograms have long
// tails from hot pixels and ice contamination; clipping at these quantiles
// before stretching is what keeps the model input usable.
const (
	DefaultLowQuantile  = 0.02
	DefaultHighQuantile = 0.98
)

// ContrastStretch rescales data in place to [0, 1], clipping below the low
// and above the high quantile. A flat image maps to all zeros.
func ContrastStretch(data []float32, lowQ, highQ float64) {
	if len(data) == 0 {
		return
	}

	sorted := make([]float64, len(data))
	for i, v := range data {
		sorted[i] = float64(v)
	}
	sort.Float64s(sorted)

	lo := stat.Quantile(lowQ, stat.Empirical, sorted, nil)
	hi := stat.Quantile(highQ, stat.Empirical, sorted, nil)
	if hi <= lo {
		for i := range data {
			data[i] = 0
		}
		return
	}

	scale := 1 / (hi - lo)
	for i, v := range data {
		x := (float64(v) - lo) * scale
		if x < 0 {
			x = 0
		} else if x > 1 {
			x = 1
		}
		data[i] = float32(x)
	}
}

// Mean returns the arithmetic mean of data.
func Mean(data []float32) float64 {
	if len(data) == 0 {
		return 0
	}
	var sum float64
	for _, v := range data {
		sum += float64(v)
	}
	return sum / float64(len(data))
}
