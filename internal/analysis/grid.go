package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// TimeGrid returns n sample points between min and max inclusive, spaced
// linearly or geometrically.
func TimeGrid(min, max float64, n int, logarithmic bool) ([]float64, error) {
	if n < 1 {
		return nil, fmt.Errorf("time samples must be positive, got %d", n)
	}
	if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
		return nil, fmt.Errorf("time bounds must be finite, got [%g, %g]", min, max)
	}
	if logarithmic && (min <= 0 || max <= 0) {
		return nil, fmt.Errorf("logarithmic time needs positive bounds, got [%g, %g]", min, max)
	}
	if n == 1 {
		return []float64{min}, nil
	}
	grid := make([]float64, n)
	if logarithmic {
		return floats.LogSpan(grid, min, max), nil
	}
	return floats.Span(grid, min, max), nil
}

// timeBounds finds the earliest first-row time and the latest last-row time
// over all runs. ok is false when no run has data.
func timeBounds(runs [][][]float64, column int) (min, max float64, ok bool) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, rows := range runs {
		if len(rows) == 0 {
			continue
		}
		ok = true
		min = math.Min(min, rows[0][column])
		max = math.Max(max, rows[len(rows)-1][column])
	}
	return min, max, ok
}
