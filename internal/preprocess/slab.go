package preprocess

import "fmt"

// SlabProject computes the mean projection of a volume over a z window of
// the given thickness centered at zCenter. The window is clamped to the
// volume. Data is C-ordered [(z*ny+y)*nx + x].
func SlabProject(data []float32, nx, ny, nz, zCenter, thickness int) ([]float32, error) {
	if nx <= 0 || ny <= 0 || nz <= 0 || len(data) != nx*ny*nz {
		return nil, fmt.Errorf("volume data length %d does not match %dx%dx%d", len(data), nx, ny, nz)
	}
	if zCenter < 0 || zCenter >= nz {
		return nil, fmt.Errorf("slab center %d out of range [0,%d)", zCenter, nz)
	}
	if thickness < 1 {
		return nil, fmt.Errorf("slab thickness must be >= 1, got %d", thickness)
	}

	z0 := zCenter - thickness/2
	z1 := z0 + thickness
	if z0 < 0 {
		z0 = 0
	}
	if z1 > nz {
		z1 = nz
	}

	plane := nx * ny
	out := make([]float32, plane)
	for z := z0; z < z1; z++ {
		sec := data[z*plane : (z+1)*plane]
		for i, v := range sec {
			out[i] += v
		}
	}
	inv := 1 / float32(z1-z0)
	for i := range out {
		out[i] *= inv
	}
	return out, nil
}

// SlabCenters returns numSlabs evenly spaced z centers, kept at least
// thickness voxels away from both volume borders so every slab window has
// full support. A single slab lands at the volume center.
func SlabCenters(nz, numSlabs, thickness int) ([]int, error) {
	if numSlabs < 1 {
		return nil, fmt.Errorf("num slabs must be >= 1, got %d", numSlabs)
	}
	margin := thickness
	lo := margin
	hi := nz - 1 - margin
	if hi < lo {
		// Volume too thin for the margin; fall back to the center.
		c := nz / 2
		centers := make([]int, numSlabs)
		for i := range centers {
			centers[i] = c
		}
		return centers, nil
	}

	centers := make([]int, numSlabs)
	if numSlabs == 1 {
		centers[0] = (lo + hi) / 2
		return centers, nil
	}
	step := float64(hi-lo) / float64(numSlabs-1)
	for i := range centers {
		centers[i] = lo + int(float64(i)*step+0.5)
	}
	return centers, nil
}
