package preprocess

import (
	"math"
	"testing"
)

func TestResizeBilinearIdentity(t *testing.T) {
	data := []float32{1, 2, 3, 4}
	out := ResizeBilinear(data, 2, 2, 2, 2)
	for i := range data {
		if out[i] != data[i] {
			t.Errorf("element %d = %v, want %v", i, out[i], data[i])
		}
	}
}

func TestResizeBilinearConstant(t *testing.T) {
	data := make([]float32, 16)
	for i := range data {
		data[i] = 7
	}
	out := ResizeBilinear(data, 4, 4, 9, 5)
	for i, v := range out {
		if math.Abs(float64(v)-7) > 1e-6 {
			t.Errorf("element %d = %v, want 7", i, v)
		}
	}
}

func TestResizeBilinearUpscaleGradient(t *testing.T) {
	// A horizontal gradient stays monotone when upscaled.
	data := []float32{0, 1, 2, 3}
	out := ResizeBilinear(data, 4, 1, 8, 1)
	for i := 1; i < 8; i++ {
		if out[i] < out[i-1] {
			t.Errorf("gradient broken at %d: %v < %v", i, out[i], out[i-1])
		}
	}
}

func TestResizeNearestPreservesValues(t *testing.T) {
	// Binary mask values must survive resizing untouched.
	data := []float32{0, 1, 1, 0}
	out := ResizeNearest(data, 2, 2, 6, 6)
	for i, v := range out {
		if v != 0 && v != 1 {
			t.Errorf("element %d = %v, want 0 or 1", i, v)
		}
	}
	if out[0] != 0 || out[5] != 1 {
		t.Errorf("corners = %v, %v, want 0, 1", out[0], out[5])
	}
}

func TestResizeZeroDims(t *testing.T) {
	out := ResizeBilinear(nil, 0, 0, 4, 4)
	if len(out) != 16 {
		t.Errorf("length = %d, want 16", len(out))
	}
	out = ResizeNearest(nil, 0, 0, 2, 2)
	if len(out) != 4 {
		t.Errorf("length = %d, want 4", len(out))
	}
}
