package analysis

import "math"

// Closest returns a copy of the row of sortedRows whose value in column is
// nearest to target, with that column overwritten by target. sortedRows must
// be sorted ascending by column. Values are never interpolated.
//
// The search halves the window while more than three rows remain, always
// keeping the middle row, then scans what is left. Ties go to the first row
// of the final window.
func Closest(sortedRows [][]float64, column int, target float64) []float64 {
	if len(sortedRows) == 0 {
		return nil
	}
	window := sortedRows
	for len(window) > 3 {
		half := len(window) / 2
		if window[half][column] < target {
			window = window[len(window)-half-1:]
		} else {
			window = window[:half+1]
		}
	}

	best := 0
	if len(window) > 1 {
		bestDist := math.Abs(window[0][column] - target)
		for i := 1; i < len(window); i++ {
			if d := math.Abs(window[i][column] - target); d < bestDist {
				best, bestDist = i, d
			}
		}
	}

	result := make([]float64, len(window[best]))
	copy(result, window[best])
	result[column] = target
	return result
}

// Resample snaps a run onto the given time samples, one output row per sample.
func Resample(sortedRows [][]float64, column int, samples []float64) [][]float64 {
	if len(sortedRows) == 0 {
		return nil
	}
	out := make([][]float64, len(samples))
	for i, t := range samples {
		out[i] = Closest(sortedRows, column, t)
	}
	return out
}
