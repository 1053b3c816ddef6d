package report

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// viridis ramp used for heatmap colouring.
var heatmapColours = []string{
	"#440154", "#482777", "#3e4989", "#31688e", "#26828e",
	"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
}

// RenderHeatmapHTML writes an interactive HTML heatmap of the confusion
// matrix, cells labelled with their share of the grand total.
func RenderHeatmapHTML(m *ConfusionMatrix, title string, w io.Writer) error {
	total := m.Total()

	data := make([]opts.HeatMapData, 0, len(m.RowLabels)*len(m.ColLabels))
	maxVal := 0.0
	for r, rowLabel := range m.RowLabels {
		for c, colLabel := range m.ColLabels {
			v := m.Counts.At(r, c)
			if v > maxVal {
				maxVal = v
			}
			share := 0.0
			if total > 0 {
				share = v * 100 / total
			}
			data = append(data, opts.HeatMapData{
				Name:  fmt.Sprintf("%s / %s: %.2f%%", rowLabel, colLabel, share),
				Value: [3]interface{}{c, r, v},
			})
		}
	}
	if maxVal == 0 {
		maxVal = 1
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("points=%d rows=%d cols=%d", int(total), len(m.RowLabels), len(m.ColLabels))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Name: "Block domain"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Name: "Point domain", Data: m.RowLabels}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxVal),
			InRange:    &opts.VisualMapInRange{Color: heatmapColours},
		}),
	)
	hm.SetXAxis(m.ColLabels).AddSeries("confusion", data)

	return hm.Render(w)
}

// HeatmapHandler serves the confusion-matrix heatmap over HTTP. The matrix is
// computed once per run and read-only, so the handler needs no locking.
func HeatmapHandler(m *ConfusionMatrix, title string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := RenderHeatmapHTML(m, title, w); err != nil {
			http.Error(w, fmt.Sprintf("failed to render heatmap: %v", err), http.StatusInternalServerError)
		}
	})
}
