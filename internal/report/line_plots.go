package report

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/user/sweep_analyzer_go/internal/analysis"
	"github.com/user/sweep_analyzer_go/internal/config"
	"github.com/user/sweep_analyzer_go/internal/parser"
)

// ChartOptions controls where and how comparison charts are drawn.
type ChartOptions struct {
	OutputDir   string
	Format      string // file extension understood by plot.Save
	Width       vg.Length
	Height      vg.Length
	Workers     int
	TimeColumn  string
	MinTime     *float64
	MaxTime     *float64
	Logarithmic bool
	Labels      Labels
}

// ChartOptionsFrom derives chart options from the run configuration.
func ChartOptionsFrom(cfg *config.Config) ChartOptions {
	return ChartOptions{
		OutputDir:   cfg.OutputDir,
		Format:      cfg.Charts.Format,
		Width:       vg.Length(cfg.Charts.Width) * vg.Inch,
		Height:      vg.Length(cfg.Charts.Height) * vg.Inch,
		Workers:     cfg.Charts.Workers,
		TimeColumn:  cfg.TimeColumn,
		MinTime:     cfg.MinTime,
		MaxTime:     cfg.MaxTime,
		Logarithmic: cfg.LogarithmicTime,
		Labels:      Labels(cfg.Labels),
	}
}

// series is one line of a chart, with an optional band around it.
type series struct {
	label string
	mean  plotter.XYs
	lower plotter.XYs
	upper plotter.XYs
}

// timeSeries reads metric out of datasets whose only dimension is time.
// Missing and non-finite points are skipped. std may be nil for no band.
func timeSeries(label string, mean, std *analysis.Dataset, metric string) series {
	s := series{label: label}
	if len(mean.Dims) != 1 {
		return s
	}
	mv := mean.Variable(metric)
	if mv == nil {
		return s
	}
	var sv *analysis.Variable
	if std != nil {
		sv = std.Variable(metric)
	}
	for i, t := range mean.Dims[0].Values {
		y, ok := mv.At(i)
		if !ok || math.IsNaN(y) || math.IsInf(y, 0) {
			continue
		}
		s.mean = append(s.mean, plotter.XY{X: t.Num, Y: y})
		if sv == nil {
			continue
		}
		if e, ok := sv.At(i); ok && !math.IsNaN(e) && !math.IsInf(e, 0) {
			s.lower = append(s.lower, plotter.XY{X: t.Num, Y: y - e})
			s.upper = append(s.upper, plotter.XY{X: t.Num, Y: y + e})
		}
	}
	return s
}

func fade(c color.Color, alpha float64) color.Color {
	r, g, b, _ := c.RGBA()
	return color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(alpha * 255)}
}

// lineChart draws one line per series over time, each with its band when
// the series carries one.
func lineChart(title, xLabel, yLabel string, lines []series, opts ChartOptions) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())

	for i, s := range lines {
		if len(s.mean) == 0 {
			continue
		}
		c := plotutil.Color(i)
		if len(s.upper) > 1 {
			ring := make(plotter.XYs, 0, 2*len(s.upper))
			ring = append(ring, s.upper...)
			for j := len(s.lower) - 1; j >= 0; j-- {
				ring = append(ring, s.lower[j])
			}
			band, err := plotter.NewPolygon(ring)
			if err != nil {
				return nil, fmt.Errorf("failed to create band for %s: %w", s.label, err)
			}
			band.Color = fade(c, 0.2)
			band.LineStyle.Width = 0
			p.Add(band)
		}
		line, err := plotter.NewLine(s.mean)
		if err != nil {
			return nil, fmt.Errorf("failed to create line for %s: %w", s.label, err)
		}
		line.Color = c
		line.LineStyle.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s.label, line)
	}

	if opts.Logarithmic {
		p.X.Scale = plot.LogScale{}
		p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	}
	if opts.MinTime != nil {
		p.X.Min = *opts.MinTime
	}
	if opts.MaxTime != nil {
		p.X.Max = *opts.MaxTime
	}
	p.Legend.Top = true
	return p, nil
}

// viableDims lists the dimensions worth comparing: every one except time
// that has more than one value.
func viableDims(ds *analysis.Dataset, timeColumn string) []string {
	var out []string
	for _, d := range ds.Dims {
		if d.Name != timeColumn && len(d.Values) > 1 {
			out = append(out, d.Name)
		}
	}
	return out
}

// dimsExcept lists the dimensions of ds other than the named ones.
func dimsExcept(ds *analysis.Dataset, keep ...string) []string {
	var out []string
outer:
	for _, d := range ds.Dims {
		for _, k := range keep {
			if d.Name == k {
				continue outer
			}
		}
		out = append(out, d.Name)
	}
	return out
}

// comparisonSeries builds one series per value of the comparison dimension,
// with the held dimension pinned to value.
func comparisonSeries(means, errs *analysis.Dataset, comparison, held string, value parser.Value, metric string, withErr bool) ([]series, error) {
	var lines []series
	for _, cv := range means.Dim(comparison).Values {
		sel := parser.Coordinates{comparison: cv, held: value}
		m, err := means.Select(sel)
		if err != nil {
			return nil, err
		}
		var e *analysis.Dataset
		if withErr {
			if e, err = errs.Select(sel); err != nil {
				return nil, err
			}
		}
		lines = append(lines, timeSeries(cv.String(), m, e, metric))
	}
	return lines, nil
}

// experimentCharts writes every comparison chart of one experiment and
// returns how many files it produced.
func experimentCharts(ctx context.Context, name string, summary analysis.Summary, opts ChartOptions) (int, error) {
	if summary.Mean == nil || summary.Mean.IsEmpty() {
		return 0, nil
	}
	written := 0
	viable := viableDims(summary.Mean, opts.TimeColumn)
	for _, comparison := range viable {
		dir := filepath.Join(opts.OutputDir, name, comparison)
		for _, held := range viable {
			if held == comparison {
				continue
			}
			merge := dimsExcept(summary.Mean, opts.TimeColumn, comparison, held)
			means := analysis.MeanOver(summary.Mean, merge)
			errs := analysis.MeanOver(summary.Std, merge)
			for _, hv := range means.Dim(held).Values {
				for _, metric := range means.VariableNames() {
					if err := ctx.Err(); err != nil {
						return written, err
					}
					title := fmt.Sprintf("%s for diverse %s when %s=%s",
						opts.Labels.LabelFor(metric), opts.Labels.LabelFor(comparison), opts.Labels.LabelFor(held), hv)
					for _, withErr := range []bool{true, false} {
						lines, err := comparisonSeries(means, errs, comparison, held, hv, metric, withErr)
						if err != nil {
							return written, err
						}
						p, err := lineChart(title, opts.Labels.UnitFor(opts.TimeColumn), opts.Labels.UnitFor(metric), lines, opts)
						if err != nil {
							return written, err
						}
						if err := os.MkdirAll(dir, 0o755); err != nil {
							return written, fmt.Errorf("failed to create chart directory: %w", err)
						}
						path := filepath.Join(dir, chartName(comparison, metric, held, hv, withErr)+"."+opts.Format)
						if err := p.Save(opts.Width, opts.Height, path); err != nil {
							return written, fmt.Errorf("failed to save %s: %w", path, err)
						}
						written++
					}
				}
			}
		}
	}
	return written, nil
}

// GenerateAllCharts draws, for every experiment, one chart per comparison
// dimension, held dimension, held value and variable, with and without the
// standard deviation band. Experiments are drawn concurrently.
func GenerateAllCharts(ctx context.Context, experiments []string, summaries map[string]analysis.Summary,
	opts ChartOptions, logger *logrus.Logger) (int, error) {

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, opts.Workers))
	var written atomic.Int64
	for _, name := range experiments {
		name := name
		summary, ok := summaries[name]
		if !ok {
			continue
		}
		g.Go(func() error {
			n, err := experimentCharts(ctx, name, summary, opts)
			written.Add(int64(n))
			if err != nil {
				return fmt.Errorf("experiment %s: %w", name, err)
			}
			logger.WithFields(logrus.Fields{"experiment": name, "charts": n}).Info("Charts written")
			return nil
		})
	}
	err := g.Wait()
	return int(written.Load()), err
}

// OverviewChart renders metric averaged over every parameter as a PNG, with
// its standard deviation band.
func OverviewChart(summary analysis.Summary, metric string, opts ChartOptions) ([]byte, error) {
	if summary.Mean == nil || summary.Mean.IsEmpty() {
		return nil, fmt.Errorf("no data to plot")
	}
	merge := dimsExcept(summary.Mean, opts.TimeColumn)
	s := timeSeries(metric, analysis.MeanOver(summary.Mean, merge), analysis.MeanOver(summary.Std, merge), metric)
	if len(s.mean) == 0 {
		return nil, fmt.Errorf("no values for %s", metric)
	}
	p, err := lineChart(opts.Labels.LabelFor(metric)+" averaged over all parameters",
		opts.Labels.UnitFor(opts.TimeColumn), opts.Labels.UnitFor(metric), []series{s}, opts)
	if err != nil {
		return nil, err
	}
	return renderPNG(p, vg.Points(800), vg.Points(400))
}

func renderPNG(p *plot.Plot, width, height vg.Length) ([]byte, error) {
	writer, err := p.WriterTo(width, height, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to create plot writer: %w", err)
	}
	buf := new(bytes.Buffer)
	if _, err := writer.WriteTo(buf); err != nil {
		return nil, fmt.Errorf("failed to write plot to buffer: %w", err)
	}
	return buf.Bytes(), nil
}
