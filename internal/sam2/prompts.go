package sam2

// Point is a prompt location in original image coordinates.
type Point struct {
	X, Y float64
}

// DefaultGridSize is the per-side point count for automatic segmentation.
const DefaultGridSize = 16

// GridPoints lays an n×n grid of foreground prompts over a w×h image,
// offset half a cell from the borders so no prompt lands on the edge.
func GridPoints(n, w, h int) []Point {
	if n < 1 || w <= 0 || h <= 0 {
		return nil
	}
	points := make([]Point, 0, n*n)
	sx := float64(w) / float64(n)
	sy := float64(h) / float64(n)
	for gy := 0; gy < n; gy++ {
		for gx := 0; gx < n; gx++ {
			points = append(points, Point{
				X: (float64(gx) + 0.5) * sx,
				Y: (float64(gy) + 0.5) * sy,
			})
		}
	}
	return points
}
