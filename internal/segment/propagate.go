package segment

// LinkIoU is the minimum overlap for two masks in consecutive slabs to be
// treated as the same 3D instance.
const LinkIoU = 0.5

// Slab holds the filtered masks of one projection along with its center
// plane in the source volume.
type Slab struct {
	Center int
	Masks  []*Mask
}

// Propagate3D assigns global instance IDs across an ordered slab sequence.
// A mask inherits the ID of the best-overlapping unclaimed mask in the
// previous slab when their IoU reaches LinkIoU; otherwise it starts a new
// instance. Mask IDs are rewritten in place; the return value is the number
// of distinct instances.
func Propagate3D(slabs []Slab) int {
	next := 0
	var prev []*Mask
	for _, slab := range slabs {
		claimed := make(map[int]bool, len(prev))
		for _, m := range slab.Masks {
			bestID := 0
			bestIoU := 0.0
			for _, p := range prev {
				if claimed[p.ID] {
					continue
				}
				if iou := IoU(m, p); iou >= LinkIoU && iou > bestIoU {
					bestIoU = iou
					bestID = p.ID
				}
			}
			if bestID != 0 {
				m.ID = bestID
				claimed[bestID] = true
			} else {
				next++
				m.ID = next
			}
		}
		prev = slab.Masks
	}
	return next
}

// ExtrudeVolume paints each slab's masks through its z window into a dense
// label volume of nx*ny*nz int32 voxels. Windows are clamped to the volume;
// where windows of neighboring slabs overlap, the earlier slab wins.
func ExtrudeVolume(slabs []Slab, nx, ny, nz, thickness int) []int32 {
	out := make([]int32, nx*ny*nz)
	plane := nx * ny

	// Global IDs can exceed a uint8, so paint int32 labels directly
	// instead of going through LabelMap.
	labels := make([]int32, plane)
	for _, slab := range slabs {
		z0 := slab.Center - thickness/2
		z1 := z0 + thickness
		if z0 < 0 {
			z0 = 0
		}
		if z1 > nz {
			z1 = nz
		}
		for i := range labels {
			labels[i] = 0
		}
		for _, m := range slab.Masks {
			for i, b := range m.Bits {
				if b == 1 && labels[i] == 0 {
					labels[i] = int32(m.ID)
				}
			}
		}
		for z := z0; z < z1; z++ {
			sec := out[z*plane : (z+1)*plane]
			for i, id := range labels {
				if id != 0 && sec[i] == 0 {
					sec[i] = id
				}
			}
		}
	}
	return out
}
