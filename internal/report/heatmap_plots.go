package report

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/user/sweep_analyzer_go/internal/analysis"
	"github.com/user/sweep_analyzer_go/internal/parser"
)

// valueGrid lays a two dimensional dataset onto cell indices, so that
// categorical dimensions plot as evenly spaced columns and rows.
type valueGrid struct {
	cols, rows []parser.Value
	z          [][]float64 // z[col][row], NaN when missing
}

func (g *valueGrid) Dims() (c, r int)   { return len(g.cols), len(g.rows) }
func (g *valueGrid) Z(c, r int) float64 { return g.z[c][r] }
func (g *valueGrid) X(c int) float64    { return float64(c) }
func (g *valueGrid) Y(r int) float64    { return float64(r) }

func indexTicks(vals []parser.Value) []plot.Tick {
	ticks := make([]plot.Tick, len(vals))
	for i, v := range vals {
		ticks[i] = plot.Tick{Value: float64(i), Label: v.String()}
	}
	return ticks
}

// finalTimeGrid averages every dimension but x, y and time away and keeps the
// last time sample.
func finalTimeGrid(mean *analysis.Dataset, metric, xDim, yDim, timeColumn string) (*valueGrid, error) {
	means := analysis.MeanOver(mean, dimsExcept(mean, xDim, yDim, timeColumn))
	timeDim := means.Dim(timeColumn)
	if timeDim == nil || len(timeDim.Values) == 0 {
		return nil, fmt.Errorf("no %s dimension", timeColumn)
	}
	last, err := means.Select(parser.Coordinates{timeColumn: timeDim.Values[len(timeDim.Values)-1]})
	if err != nil {
		return nil, err
	}
	v := last.Variable(metric)
	if v == nil {
		return nil, fmt.Errorf("unknown variable %s", metric)
	}
	xd, yd := last.Dim(xDim), last.Dim(yDim)
	if xd == nil || yd == nil {
		return nil, fmt.Errorf("dimensions %s and %s are required", xDim, yDim)
	}

	g := &valueGrid{cols: xd.Values, rows: yd.Values, z: make([][]float64, len(xd.Values))}
	for c, xv := range xd.Values {
		g.z[c] = make([]float64, len(yd.Values))
		for r, yv := range yd.Values {
			pos, err := last.Positions(parser.Coordinates{xDim: xv, yDim: yv})
			if err != nil {
				return nil, err
			}
			g.z[c][r] = math.NaN()
			if z, ok := v.At(last.Index(pos)); ok {
				g.z[c][r] = z
			}
		}
	}
	return g, nil
}

// FinalTimeHeatmap renders the last-sample mean of metric over the xDim by
// yDim plane as a PNG.
func FinalTimeHeatmap(summary analysis.Summary, metric, xDim, yDim string, opts ChartOptions) ([]byte, error) {
	if summary.Mean == nil || summary.Mean.IsEmpty() {
		return nil, fmt.Errorf("no data to plot")
	}
	grid, err := finalTimeGrid(summary.Mean, metric, xDim, yDim, opts.TimeColumn)
	if err != nil {
		return nil, err
	}
	cols, rows := grid.Dims()
	if cols < 2 || rows < 2 {
		return nil, fmt.Errorf("heatmap needs at least two values per dimension, got %dx%d", cols, rows)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Final %s", opts.Labels.LabelFor(metric))
	p.X.Label.Text = opts.Labels.LabelFor(xDim)
	p.Y.Label.Text = opts.Labels.LabelFor(yDim)
	p.X.Tick.Marker = plot.ConstantTicks(indexTicks(grid.cols))
	p.Y.Tick.Marker = plot.ConstantTicks(indexTicks(grid.rows))

	hm := plotter.NewHeatMap(grid, palette.Heat(12, 1))
	hm.NaN = color.Gray{Y: 200}
	if math.IsInf(hm.Min, 0) || math.IsInf(hm.Max, 0) {
		hm.Min, hm.Max = 0, 1
	}
	if hm.Min == hm.Max {
		hm.Max = hm.Min + 1
	}
	p.Add(hm)
	p.X.Min, p.X.Max = -0.5, float64(cols)-0.5
	p.Y.Min, p.Y.Max = -0.5, float64(rows)-0.5

	return renderPNG(p, vg.Points(600), vg.Points(450))
}
