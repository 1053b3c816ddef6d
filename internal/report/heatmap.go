package report

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// heatmapGrid adapts a ConfusionMatrix's proportion matrix to the
// plotter.GridXYZ interface. Row 0 is drawn at the bottom of the plot.
type heatmapGrid struct {
	m *ConfusionMatrix
}

func (g heatmapGrid) Dims() (c, r int) {
	rr, cc := g.m.Counts.Dims()
	return cc, rr
}

func (g heatmapGrid) Z(c, r int) float64 {
	total := g.m.Total()
	if total == 0 {
		return 0
	}
	return g.m.Counts.At(r, c) / total
}

func (g heatmapGrid) X(c int) float64 { return float64(c) }
func (g heatmapGrid) Y(r int) float64 { return float64(r) }

// labelTicks places one tick per label at integer coordinates.
type labelTicks []string

func (lt labelTicks) Ticks(min, max float64) []plot.Tick {
	ticks := make([]plot.Tick, 0, len(lt))
	for i, l := range lt {
		v := float64(i)
		if v < min || v > max {
			continue
		}
		ticks = append(ticks, plot.Tick{Value: v, Label: l})
	}
	return ticks
}

// SaveHeatmapPNG renders the full confusion matrix as a PNG heatmap, cells
// coloured by proportion of the grand total. This is the file the original
// workflow saved as Entire_Matrix.png.
func SaveHeatmapPNG(m *ConfusionMatrix, title, path string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Block domain"
	p.Y.Label.Text = "Point domain"
	p.X.Tick.Marker = labelTicks(m.ColLabels)
	p.Y.Tick.Marker = labelTicks(m.RowLabels)
	p.X.Tick.Label.Rotation = 0.785 // ~45° so long domain names stay readable
	p.X.Tick.Label.XAlign = -1

	hm := plotter.NewHeatMap(heatmapGrid{m}, palette.Heat(16, 1))
	p.Add(hm)

	if err := p.Save(10*vg.Inch, 10*vg.Inch, path); err != nil {
		return fmt.Errorf("report: saving heatmap: %w", err)
	}
	return nil
}
