// Package segment turns model mask proposals into clean instance
// segmentations: thresholding and upsampling logits, filtering proposals by
// size, border contact and overlap, and linking masks across slabs into 3D
// labels.
package segment

import (
	"sort"

	"github.com/saber-data/saber/internal/preprocess"
	"github.com/saber-data/saber/internal/sam2"
)

// Mask is one segmented instance as a full-frame bitmap. IDs are assigned
// during filtering, starting at 1; 0 is background everywhere.
type Mask struct {
	ID   int
	Bits []uint8 // W*H, 1 inside the instance
	W, H int
	Area int
	// Bounding box, inclusive. Undefined when Area is 0.
	MinX, MinY, MaxX, MaxY int
	Score                  float32
}

// FromLogits thresholds low-resolution mask logits at zero and upsamples
// the result to w×h with nearest-neighbor lookup.
func FromLogits(m *sam2.Mask, w, h int) *Mask {
	n := sam2.LogitSize()
	bits := make([]float32, n*n)
	for i, v := range m.Logits {
		if v > 0 {
			bits[i] = 1
		}
	}
	full := preprocess.ResizeNearest(bits, n, n, w, h)

	out := &Mask{Bits: make([]uint8, w*h), W: w, H: h, Score: m.Score}
	out.MinX, out.MinY = w, h
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if full[y*w+x] == 0 {
				continue
			}
			out.Bits[y*w+x] = 1
			out.Area++
			if x < out.MinX {
				out.MinX = x
			}
			if x > out.MaxX {
				out.MaxX = x
			}
			if y < out.MinY {
				out.MinY = y
			}
			if y > out.MaxY {
				out.MaxY = y
			}
		}
	}
	return out
}

// IoU computes intersection over union of two same-sized masks.
func IoU(a, b *Mask) float64 {
	if a.W != b.W || a.H != b.H {
		return 0
	}
	// Disjoint bounding boxes cannot intersect.
	if a.Area == 0 || b.Area == 0 ||
		a.MaxX < b.MinX || b.MaxX < a.MinX ||
		a.MaxY < b.MinY || b.MaxY < a.MinY {
		return 0
	}
	inter := 0
	for i := range a.Bits {
		if a.Bits[i] == 1 && b.Bits[i] == 1 {
			inter++
		}
	}
	union := a.Area + b.Area - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// TouchesBorder reports whether the mask reaches within margin pixels of
// any image edge.
func (m *Mask) TouchesBorder(margin int) bool {
	if m.Area == 0 {
		return false
	}
	return m.MinX < margin || m.MinY < margin ||
		m.MaxX >= m.W-margin || m.MaxY >= m.H-margin
}

// LabelMap paints the masks into a single uint8 label image. Masks are
// painted in slice order and earlier masks win overlapping pixels, so
// callers sort by score first.
func LabelMap(masks []*Mask, w, h int) []uint8 {
	out := make([]uint8, w*h)
	for _, m := range masks {
		id := uint8(m.ID)
		for i, b := range m.Bits {
			if b == 1 && out[i] == 0 {
				out[i] = id
			}
		}
	}
	return out
}

// FromLabelMap rebuilds per-instance masks from a label image, the inverse
// of LabelMap. Masks come back ordered by ID with area and bounding box
// recomputed; scores are lost in the label representation and read as 0.
func FromLabelMap(labels []int32, w, h int) []*Mask {
	byID := make(map[int32]*Mask)
	var ids []int32
	for i, id := range labels {
		if id == 0 {
			continue
		}
		m, ok := byID[id]
		if !ok {
			m = &Mask{ID: int(id), Bits: make([]uint8, w*h), W: w, H: h, MinX: w, MinY: h}
			byID[id] = m
			ids = append(ids, id)
		}
		x, y := i%w, i/w
		m.Bits[i] = 1
		m.Area++
		if x < m.MinX {
			m.MinX = x
		}
		if y < m.MinY {
			m.MinY = y
		}
		if x > m.MaxX {
			m.MaxX = x
		}
		if y > m.MaxY {
			m.MaxY = y
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	masks := make([]*Mask, 0, len(ids))
	for _, id := range ids {
		masks = append(masks, byID[id])
	}
	return masks
}
