package analysis

import (
	"gonum.org/v1/gonum/stat"
)

// reduce folds the named dimensions of ds away. For every remaining cell the
// present values along the folded axes are handed to fns, which each fill one
// output dataset. Cells with no present values stay missing.
func reduce(ds *Dataset, dims []string, fns ...func(values []float64) float64) []*Dataset {
	folded := make([]bool, len(ds.Dims))
	for _, name := range dims {
		if i := ds.DimIndex(name); i >= 0 {
			folded[i] = true
		}
	}
	var kept []Dimension
	for i, dim := range ds.Dims {
		if !folded[i] {
			kept = append(kept, dim)
		}
	}

	outs := make([]*Dataset, len(fns))
	for i := range fns {
		outs[i] = NewDataset(kept, ds.VariableNames())
	}
	if ds.IsEmpty() {
		return outs
	}

	// Output stride of each input axis; zero for folded axes.
	outStrides := make([]int, len(ds.Dims))
	stride := 1
	for i := len(ds.Dims) - 1; i >= 0; i-- {
		if folded[i] {
			continue
		}
		outStrides[i] = stride
		stride *= len(ds.Dims[i].Values)
	}

	outSize := outs[0].Size()
	size := ds.Size()
	shape := ds.Shape()
	for vi, variable := range ds.Variables {
		buckets := make([][]float64, outSize)
		pos := make([]int, len(ds.Dims))
		for flat := 0; flat < size; flat++ {
			if v, ok := variable.At(flat); ok {
				out := 0
				for i, p := range pos {
					out += p * outStrides[i]
				}
				buckets[out] = append(buckets[out], v)
			}
			for axis := len(pos) - 1; axis >= 0; axis-- {
				pos[axis]++
				if pos[axis] < shape[axis] {
					break
				}
				pos[axis] = 0
			}
		}
		for cell, values := range buckets {
			if len(values) == 0 {
				continue
			}
			for fi, fn := range fns {
				outs[fi].Variables[vi].set(cell, fn(values))
			}
		}
	}
	return outs
}

func popMean(values []float64) float64 {
	return stat.Mean(values, nil)
}

func popStdDev(values []float64) float64 {
	_, std := stat.PopMeanStdDev(values, nil)
	return std
}

// Fold averages the dataset over the seed dimensions, ignoring missing cells.
// The standard deviation is the population one (divides by n). Seed names
// that are not dimensions of ds are ignored.
func Fold(ds *Dataset, seeds []string) Summary {
	if ds == nil {
		return EmptySummary()
	}
	outs := reduce(ds, seeds, popMean, popStdDev)
	return Summary{Mean: outs[0], Std: outs[1]}
}

// MeanOver averages the named dimensions away, ignoring missing cells.
func MeanOver(ds *Dataset, dims []string) *Dataset {
	return reduce(ds, dims, popMean)[0]
}
