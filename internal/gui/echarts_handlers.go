package gui

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// handleClassChart renders a bar chart of how many items carry each class.
func (ws *WebServer) handleClassChart(w http.ResponseWriter, r *http.Request) {
	labels, err := ws.db.AllLabels(ws.session.ID)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load labels: %v", err))
		return
	}

	counts := make([]int, len(ws.dataset.ClassNames))
	for _, classes := range labels {
		for _, class := range classes {
			if class >= 0 && class < len(counts) {
				counts[class]++
			}
		}
	}

	x := make([]string, len(counts))
	y := make([]opts.BarData, len(counts))
	for i, n := range counts {
		x[i] = ws.dataset.ClassNames[i]
		y[i] = opts.BarData{Value: n}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Class Distribution", Width: "900px", Height: "600px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Class Distribution", Subtitle: fmt.Sprintf("session=%s labeled=%d", ws.session.ID, len(labels))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("items", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("render error: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleAreaChart renders per-item mask area as a scatter, colored by
// whether the item has been labeled yet. Useful for spotting size outliers
// before annotating them.
func (ws *WebServer) handleAreaChart(w http.ResponseWriter, r *http.Request) {
	labels, err := ws.db.AllLabels(ws.session.ID)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load labels: %v", err))
		return
	}

	pts := make([]opts.ScatterData, 0, ws.dataset.NumItems)
	for i := 0; i < ws.dataset.NumItems; i++ {
		mask, err := ws.dataset.Mask(i)
		if err != nil {
			ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read mask %d: %v", i, err))
			return
		}
		area := 0
		for _, b := range mask {
			if b != 0 {
				area++
			}
		}
		labeled := 0
		if len(labels[i]) > 0 {
			labeled = 1
		}
		pts = append(pts, opts.ScatterData{Value: []interface{}{i, area, labeled}})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Mask Areas", Width: "900px", Height: "600px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Mask Areas", Subtitle: fmt.Sprintf("items=%d", ws.dataset.NumItems)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Item"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Area (px)"}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:      opts.Bool(true),
			Min:       0,
			Max:       1,
			Dimension: "2",
			InRange:   &opts.VisualMapInRange{Color: []string{"#9e9e9e", "#35b779"}},
		}),
	)
	scatter.AddSeries("items", pts, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("render error: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
