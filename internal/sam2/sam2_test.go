package sam2

import (
	"context"
	"os"
	"testing"
)

// testContext stands in for t.Context(), which needs Go 1.24+.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

func TestGridPoints(t *testing.T) {
	points := GridPoints(4, 100, 80)
	if len(points) != 16 {
		t.Fatalf("got %d points, want 16", len(points))
	}
	for i, p := range points {
		if p.X <= 0 || p.X >= 100 || p.Y <= 0 || p.Y >= 80 {
			t.Errorf("point %d = %+v, outside image interior", i, p)
		}
	}
	// Half-cell offset from the corner.
	if points[0].X != 12.5 || points[0].Y != 10 {
		t.Errorf("first point = %+v, want (12.5, 10)", points[0])
	}
}

func TestGridPointsDegenerate(t *testing.T) {
	if points := GridPoints(0, 100, 100); points != nil {
		t.Errorf("expected nil for zero grid, got %d points", len(points))
	}
	if points := GridPoints(4, 0, 100); points != nil {
		t.Errorf("expected nil for zero-width image, got %d points", len(points))
	}
}

func TestNewModelMissingFile(t *testing.T) {
	_, err := NewModel(Config{
		EncoderPath: "testdata/does-not-exist-encoder.onnx",
		DecoderPath: "testdata/does-not-exist-decoder.onnx",
		DeviceID:    -1,
	})
	if err == nil {
		t.Fatal("expected error for missing model files")
	}
}

// TestModelRoundTrip exercises the real runtime when model files are
// provided via SABER_SAM2_ENCODER / SABER_SAM2_DECODER.
func TestModelRoundTrip(t *testing.T) {
	encoder := os.Getenv("SABER_SAM2_ENCODER")
	decoder := os.Getenv("SABER_SAM2_DECODER")
	if encoder == "" || decoder == "" {
		t.Skip("SABER_SAM2_ENCODER/SABER_SAM2_DECODER not set")
	}

	m, err := NewModel(Config{EncoderPath: encoder, DecoderPath: decoder, DeviceID: -1})
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	defer func() {
		if err := m.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	}()

	w, h := 64, 64
	data := make([]float32, w*h)
	for y := 24; y < 40; y++ {
		for x := 24; x < 40; x++ {
			data[y*w+x] = 1
		}
	}

	emb, err := m.EncodeImage(testContext(t), data, w, h)
	if err != nil {
		t.Fatalf("EncodeImage: %v", err)
	}
	defer emb.Close()

	mask, err := m.DecodePoint(testContext(t), emb, 32, 32)
	if err != nil {
		t.Fatalf("DecodePoint: %v", err)
	}
	if len(mask.Logits) != LogitSize()*LogitSize() {
		t.Errorf("logits length = %d, want %d", len(mask.Logits), LogitSize()*LogitSize())
	}
}

func TestLogitSize(t *testing.T) {
	if LogitSize() != 256 {
		t.Errorf("LogitSize = %d, want 256", LogitSize())
	}
}
