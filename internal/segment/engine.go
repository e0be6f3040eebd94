package segment

import (
	"context"
	"fmt"
	"time"

	"github.com/saber-data/saber/internal/monitoring"
	"github.com/saber-data/saber/internal/sam2"
)

// Engine runs automatic grid-prompted segmentation over images using models
// checked out of a pool.
type Engine struct {
	Pool     *sam2.Pool
	GridSize int // per-side prompt count, DefaultGridSize when zero
	Filter   FilterOptions
}

// SegmentImage segments one normalized [0,1] grayscale image. The image is
// encoded once; every grid prompt is decoded against the shared embedding,
// then the proposals are filtered into the final instance set.
func (e *Engine) SegmentImage(ctx context.Context, data []float32, w, h int) ([]*Mask, error) {
	grid := e.GridSize
	if grid <= 0 {
		grid = sam2.DefaultGridSize
	}

	model, err := e.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring model: %w", err)
	}
	defer e.Pool.Release(model)

	start := time.Now()
	emb, err := model.EncodeImage(ctx, data, w, h)
	if err != nil {
		return nil, fmt.Errorf("encoding image: %w", err)
	}
	defer emb.Close()

	points := sam2.GridPoints(grid, w, h)
	proposals := make([]*Mask, 0, len(points))
	for _, p := range points {
		m, err := model.DecodePoint(ctx, emb, p.X, p.Y)
		if err != nil {
			return nil, fmt.Errorf("decoding prompt at (%.0f,%.0f): %w", p.X, p.Y, err)
		}
		proposals = append(proposals, FromLogits(m, w, h))
	}

	masks := Filter(proposals, e.Filter)
	monitoring.Logf("segment: %dx%d image, %d prompts -> %d masks in %v",
		w, h, len(points), len(masks), time.Since(start).Round(time.Millisecond))
	return masks, nil
}
