// Package sam2 runs SAM2-family segmentation models exported to ONNX. The
// model ships as two graphs: an image encoder producing embeddings, and a
// prompt decoder turning point prompts into mask logits. Input/output names
// follow the standard SAM2 ONNX export.
package sam2

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/saber-data/saber/internal/monitoring"
	"github.com/saber-data/saber/internal/preprocess"
)

// Model graph geometry. The encoder consumes a fixed square RGB input; the
// decoder emits fixed low-resolution mask logits that are upsampled back to
// image space by the caller.
const (
	DefaultImageSize = 1024 // encoder input edge length
	maskLogitSize    = 256  // decoder output edge length
)

var (
	ortEnvOnce sync.Once
	ortEnvErr  error
)

// initORT initializes the ONNX Runtime environment once.
func initORT() error {
	ortEnvOnce.Do(func() {
		ortEnvErr = ort.InitializeEnvironment()
	})
	return ortEnvErr
}

// Config locates the model files and selects a device.
type Config struct {
	EncoderPath string
	DecoderPath string
	// DeviceID selects a CUDA device; negative means CPU. CUDA setup
	// failures fall back to CPU with a log line rather than failing the
	// run, since the model runs (slowly) everywhere.
	DeviceID  int
	ImageSize int // defaults to DefaultImageSize
}

// Model wraps the encoder and decoder sessions. Safe for use by one
// goroutine at a time; use a Pool for concurrency.
type Model struct {
	encoder   *ort.DynamicAdvancedSession
	decoder   *ort.DynamicAdvancedSession
	imageSize int
	mu        sync.Mutex
	closed    bool
}

// Embedding holds the encoder outputs for one image plus the geometry
// needed to map prompts and masks between image and model space.
type Embedding struct {
	embed, feat0, feat1 ort.Value
	origW, origH        int
	scaleX, scaleY      float64
}

// Close releases the embedding tensors.
func (e *Embedding) Close() {
	for _, v := range []ort.Value{e.embed, e.feat0, e.feat1} {
		if v != nil {
			_ = v.Destroy()
		}
	}
	e.embed, e.feat0, e.feat1 = nil, nil, nil
}

// Mask is one decoded mask proposal in low-resolution logit space.
type Mask struct {
	Logits []float32 // maskLogitSize × maskLogitSize, > 0 inside the mask
	Score  float32   // model-predicted IoU
}

// LogitSize returns the square edge length of Mask.Logits.
func LogitSize() int { return maskLogitSize }

func newSessionOptions(deviceID int) (*ort.SessionOptions, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("creating session options: %w", err)
	}
	if deviceID >= 0 {
		cudaOpts, err := ort.NewCUDAProviderOptions()
		if err != nil {
			monitoring.Logf("sam2: CUDA unavailable, using CPU: %v", err)
			return options, nil
		}
		defer func() { _ = cudaOpts.Destroy() }()
		if err := cudaOpts.Update(map[string]string{"device_id": strconv.Itoa(deviceID)}); err != nil {
			monitoring.Logf("sam2: CUDA device %d rejected, using CPU: %v", deviceID, err)
			return options, nil
		}
		if err := options.AppendExecutionProviderCUDA(cudaOpts); err != nil {
			monitoring.Logf("sam2: CUDA provider failed, using CPU: %v", err)
		}
	}
	return options, nil
}

// NewModel loads the encoder and decoder graphs.
func NewModel(cfg Config) (*Model, error) {
	for _, path := range []string{cfg.EncoderPath, cfg.DecoderPath} {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("model file: %w", err)
		}
	}
	if err := initORT(); err != nil {
		return nil, fmt.Errorf("initializing ONNX runtime: %w", err)
	}

	imageSize := cfg.ImageSize
	if imageSize <= 0 {
		imageSize = DefaultImageSize
	}

	options, err := newSessionOptions(cfg.DeviceID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = options.Destroy() }()

	encoder, err := ort.NewDynamicAdvancedSession(
		cfg.EncoderPath,
		[]string{"image"},
		[]string{"image_embed", "high_res_feats_0", "high_res_feats_1"},
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("creating encoder session: %w", err)
	}

	decoder, err := ort.NewDynamicAdvancedSession(
		cfg.DecoderPath,
		[]string{
			"image_embed", "high_res_feats_0", "high_res_feats_1",
			"point_coords", "point_labels", "mask_input", "has_mask_input",
		},
		[]string{"masks", "iou_predictions"},
		options,
	)
	if err != nil {
		_ = encoder.Destroy()
		return nil, fmt.Errorf("creating decoder session: %w", err)
	}

	return &Model{encoder: encoder, decoder: decoder, imageSize: imageSize}, nil
}

// EncodeImage resizes a normalized [0,1] grayscale image to the model input
// size, replicates it across RGB, and runs the encoder. The caller owns the
// returned embedding and must Close it.
func (m *Model) EncodeImage(ctx context.Context, data []float32, w, h int) (*Embedding, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if len(data) != w*h || w <= 0 || h <= 0 {
		return nil, fmt.Errorf("image data length %d does not match %dx%d", len(data), w, h)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, fmt.Errorf("model is closed")
	}

	resized := preprocess.ResizeBilinear(data, w, h, m.imageSize, m.imageSize)

	// NCHW with the grayscale plane replicated to three channels.
	plane := m.imageSize * m.imageSize
	input := make([]float32, 3*plane)
	copy(input[0*plane:], resized)
	copy(input[1*plane:], resized)
	copy(input[2*plane:], resized)

	inputTensor, err := ort.NewTensor(
		ort.NewShape(1, 3, int64(m.imageSize), int64(m.imageSize)),
		input,
	)
	if err != nil {
		return nil, fmt.Errorf("creating image tensor: %w", err)
	}
	defer func() { _ = inputTensor.Destroy() }()

	outputs := []ort.Value{nil, nil, nil}
	if err := m.encoder.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("running encoder: %w", err)
	}
	for i, out := range outputs {
		if out == nil {
			return nil, fmt.Errorf("encoder produced no output %d", i)
		}
	}

	return &Embedding{
		embed:  outputs[0],
		feat0:  outputs[1],
		feat1:  outputs[2],
		origW:  w,
		origH:  h,
		scaleX: float64(m.imageSize) / float64(w),
		scaleY: float64(m.imageSize) / float64(h),
	}, nil
}

// DecodePoint runs the decoder with a single foreground point prompt given
// in original image coordinates, returning the best of the model's mask
// proposals by predicted IoU.
func (m *Model) DecodePoint(ctx context.Context, emb *Embedding, x, y float64) (*Mask, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, fmt.Errorf("model is closed")
	}
	if emb == nil || emb.embed == nil {
		return nil, fmt.Errorf("embedding is closed")
	}

	coords, err := ort.NewTensor(ort.NewShape(1, 1, 2), []float32{
		float32(x * emb.scaleX),
		float32(y * emb.scaleY),
	})
	if err != nil {
		return nil, fmt.Errorf("creating point_coords tensor: %w", err)
	}
	defer func() { _ = coords.Destroy() }()

	labels, err := ort.NewTensor(ort.NewShape(1, 1), []float32{1})
	if err != nil {
		return nil, fmt.Errorf("creating point_labels tensor: %w", err)
	}
	defer func() { _ = labels.Destroy() }()

	maskInput, err := ort.NewTensor(
		ort.NewShape(1, 1, maskLogitSize, maskLogitSize),
		make([]float32, maskLogitSize*maskLogitSize),
	)
	if err != nil {
		return nil, fmt.Errorf("creating mask_input tensor: %w", err)
	}
	defer func() { _ = maskInput.Destroy() }()

	hasMask, err := ort.NewTensor(ort.NewShape(1), []float32{0})
	if err != nil {
		return nil, fmt.Errorf("creating has_mask_input tensor: %w", err)
	}
	defer func() { _ = hasMask.Destroy() }()

	inputs := []ort.Value{emb.embed, emb.feat0, emb.feat1, coords, labels, maskInput, hasMask}
	outputs := []ort.Value{nil, nil}
	if err := m.decoder.Run(inputs, outputs); err != nil {
		return nil, fmt.Errorf("running decoder: %w", err)
	}
	for i, out := range outputs {
		if out == nil {
			return nil, fmt.Errorf("decoder produced no output %d", i)
		}
		defer func(v ort.Value) { _ = v.Destroy() }(out)
	}

	masksTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected masks tensor type")
	}
	iouTensor, ok := outputs[1].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected iou tensor type")
	}

	ious := iouTensor.GetData()
	if len(ious) == 0 {
		return nil, fmt.Errorf("decoder produced no mask proposals")
	}
	best := 0
	for i, s := range ious {
		if s > ious[best] {
			best = i
		}
	}

	plane := maskLogitSize * maskLogitSize
	maskData := masksTensor.GetData()
	if len(maskData) < (best+1)*plane {
		return nil, fmt.Errorf("masks tensor too small: %d elements for proposal %d", len(maskData), best)
	}

	logits := make([]float32, plane)
	copy(logits, maskData[best*plane:(best+1)*plane])

	return &Mask{Logits: logits, Score: ious[best]}, nil
}

// Close releases both ONNX sessions.
func (m *Model) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	var firstErr error
	if m.encoder != nil {
		if err := m.encoder.Destroy(); err != nil {
			firstErr = err
		}
	}
	if m.decoder != nil {
		if err := m.decoder.Destroy(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
