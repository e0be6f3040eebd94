package gallery

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/saber-data/saber/internal/segment"
)

// SaveAreaHistogram plots the instance area distribution of a mask set.
func SaveAreaHistogram(masks []*segment.Mask, path string) error {
	if len(masks) == 0 {
		return fmt.Errorf("no masks to plot")
	}

	values := make(plotter.Values, len(masks))
	for i, m := range masks {
		values[i] = float64(m.Area)
	}

	p := plot.New()
	p.Title.Text = "Instance Area Distribution"
	p.X.Label.Text = "Area (pixels)"
	p.Y.Label.Text = "Count"

	bins := 20
	if len(masks) < bins {
		bins = len(masks)
	}
	hist, err := plotter.NewHist(values, bins)
	if err != nil {
		return fmt.Errorf("building histogram: %w", err)
	}
	p.Add(hist)

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save area histogram: %w", err)
	}
	return nil
}

// SaveScorePlot plots per-instance model confidence, ordered by ID.
func SaveScorePlot(masks []*segment.Mask, path string) error {
	if len(masks) == 0 {
		return fmt.Errorf("no masks to plot")
	}

	pts := make(plotter.XYs, len(masks))
	for i, m := range masks {
		pts[i] = plotter.XY{X: float64(m.ID), Y: float64(m.Score)}
	}

	p := plot.New()
	p.Title.Text = "Instance Confidence"
	p.X.Label.Text = "Instance ID"
	p.Y.Label.Text = "Predicted IoU"

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("building line: %w", err)
	}
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add("score", line)
	p.Legend.Top = true

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save score plot: %w", err)
	}
	return nil
}
