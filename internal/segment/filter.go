package segment

import "sort"

// FilterOptions controls proposal filtering. Zero values disable the
// corresponding filter except DedupIoU, which always runs with
// DefaultDedupIoU when unset.
type FilterOptions struct {
	MinArea      int     // drop masks smaller than this many pixels
	MaxAreaFrac  float64 // drop masks covering more than this fraction of the frame
	BorderMargin int     // drop masks reaching within this many pixels of an edge
	DedupIoU     float64 // overlap threshold for duplicate suppression
}

// DefaultDedupIoU is the overlap above which two proposals are considered
// the same instance.
const DefaultDedupIoU = 0.8

// Filter cleans a set of mask proposals. Size limits apply first, then the
// border filter, then duplicate suppression keeping the higher-scoring mask
// of each overlapping pair. Survivors are sorted by descending score and
// renumbered from 1.
func Filter(masks []*Mask, opts FilterOptions) []*Mask {
	dedup := opts.DedupIoU
	if dedup <= 0 {
		dedup = DefaultDedupIoU
	}

	kept := make([]*Mask, 0, len(masks))
	for _, m := range masks {
		if m.Area == 0 || m.Area < opts.MinArea {
			continue
		}
		if opts.MaxAreaFrac > 0 && float64(m.Area) > opts.MaxAreaFrac*float64(m.W*m.H) {
			continue
		}
		if opts.BorderMargin > 0 && m.TouchesBorder(opts.BorderMargin) {
			continue
		}
		kept = append(kept, m)
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Score > kept[j].Score })

	out := make([]*Mask, 0, len(kept))
	for _, m := range kept {
		dup := false
		for _, prev := range out {
			if IoU(m, prev) >= dedup {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, m)
		}
	}

	for i, m := range out {
		m.ID = i + 1
	}
	return out
}
