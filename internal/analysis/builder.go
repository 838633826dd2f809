package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/user/sweep_analyzer_go/internal/parser"
)

// BuildOptions controls how an experiment's runs are laid onto the shared grid.
type BuildOptions struct {
	Prefix      string   // experiment file prefix, stripped before reading file name coordinates
	TimeColumn  string   // name of the time variable
	TimeSamples int      // number of points on the shared time axis
	MinTime     *float64 // nil means the earliest first sample across runs
	MaxTime     *float64 // nil means the latest last sample across runs
	Logarithmic bool
}

// Experiment is the populated dataset of one experiment, before folding.
type Experiment struct {
	Name      string
	Data      *Dataset
	Timeline  []float64
	FilesRead int
	Warnings  []string
}

// BuildExperiment reads every file of an experiment, resamples each run onto
// a shared timeline and scatters the rows into one dense dataset. Files are
// processed in lexicographic order.
func BuildExperiment(name string, files []string, opts BuildOptions) (*Experiment, error) {
	exp := &Experiment{Name: name, Data: &Dataset{}}
	if len(files) == 0 {
		exp.Warnings = append(exp.Warnings, fmt.Sprintf("No data for experiment %s", name))
		return exp, nil
	}
	sorted := append([]string(nil), files...)
	sort.Strings(sorted)

	runs := make([]*parser.RawRun, 0, len(sorted))
	for _, path := range sorted {
		run, err := parser.ParseRunFile(path, opts.Prefix)
		exp.FilesRead++
		if err != nil {
			return nil, fmt.Errorf("experiment %s: %w", name, err)
		}
		runs = append(runs, run)
	}

	var varNames []string
	var declaredBy string
	usable := runs[:0]
	for _, run := range runs {
		if len(run.Variables) == 0 && len(run.Rows) == 0 {
			exp.Warnings = append(exp.Warnings, fmt.Sprintf("Empty data file %s skipped", run.Path))
			continue
		}
		usable = append(usable, run)
		if len(run.Variables) == 0 {
			continue
		}
		if varNames == nil {
			varNames, declaredBy = run.Variables, run.Path
			continue
		}
		if !sameNames(varNames, run.Variables) {
			return nil, fmt.Errorf("%w: %s declares [%s], %s declares [%s]", ErrInconsistentVariables,
				declaredBy, strings.Join(varNames, " "), run.Path, strings.Join(run.Variables, " "))
		}
	}
	runs = usable
	if len(runs) == 0 {
		exp.Warnings = append(exp.Warnings, fmt.Sprintf("No data for experiment %s", name))
		return exp, nil
	}
	if varNames == nil {
		return nil, fmt.Errorf("experiment %s: no file declares variable names", name)
	}
	// Headerless files take the declared columns, provided every row has
	// exactly that many. Their coordinates come from the file name alone.
	for _, run := range runs {
		if len(run.Variables) > 0 {
			continue
		}
		for r, row := range run.Rows {
			if len(row) != len(varNames) {
				return nil, fmt.Errorf("experiment %s: headerless %s row %d has %d columns, %s declares %d",
					name, run.Path, r+1, len(row), declaredBy, len(varNames))
			}
		}
		exp.Warnings = append(exp.Warnings, fmt.Sprintf("No header in %s, using the columns of %s", run.Path, declaredBy))
	}
	timeColumn := -1
	for i, v := range varNames {
		if v == opts.TimeColumn {
			timeColumn = i
		}
	}
	if timeColumn < 0 {
		return nil, fmt.Errorf("experiment %s: time column %q not among variables [%s]",
			name, opts.TimeColumn, strings.Join(varNames, " "))
	}

	coords := parser.CoordinateSet{}
	matrices := make([][][]float64, len(runs))
	for i, run := range runs {
		delete(run.Coordinates, opts.TimeColumn)
		coords = parser.MergeCoordinates(coords, run.Coordinates.AsSet())
		for r, row := range run.Rows {
			if len(row) < len(varNames) {
				return nil, fmt.Errorf("experiment %s: %s data row %d has %d columns, header declares %d",
					name, run.Path, r+1, len(row), len(varNames))
			}
		}
		matrices[i] = run.Rows
	}

	timeline, err := experimentTimeline(matrices, timeColumn, opts)
	if err != nil {
		return nil, fmt.Errorf("experiment %s: %w", name, err)
	}
	exp.Timeline = timeline

	sortedCoords := parser.SortedCoordinates(coords)
	dimNames := make([]string, 0, len(sortedCoords))
	for k := range sortedCoords {
		dimNames = append(dimNames, k)
	}
	sort.Strings(dimNames)
	dims := make([]Dimension, 0, len(dimNames)+1)
	for _, k := range dimNames {
		dims = append(dims, Dimension{Name: k, Values: sortedCoords[k]})
	}
	timeValues := make([]parser.Value, len(timeline))
	for i, t := range timeline {
		timeValues[i] = parser.Float(t)
	}
	dims = append(dims, Dimension{Name: opts.TimeColumn, Values: timeValues})

	var dataVars []string
	var dataCols []int
	for i, v := range varNames {
		if i != timeColumn {
			dataVars = append(dataVars, v)
			dataCols = append(dataCols, i)
		}
	}
	ds := NewDataset(dims, dataVars)
	timeAxis := len(dims) - 1

	for i, run := range runs {
		if len(matrices[i]) == 0 {
			exp.Warnings = append(exp.Warnings, fmt.Sprintf("No data rows in %s", run.Path))
			continue
		}
		resampled := Resample(matrices[i], timeColumn, timeline)
		pos, err := ds.Positions(run.Coordinates)
		if err != nil {
			return nil, fmt.Errorf("experiment %s: %s: %w", name, run.Path, err)
		}
		for k, row := range resampled {
			pos[timeAxis] = k
			ds.forEachMatching(pos, func(flat int) {
				for vi, col := range dataCols {
					ds.Variables[vi].set(flat, row[col])
				}
			})
		}
	}
	exp.Data = ds
	return exp, nil
}

func experimentTimeline(matrices [][][]float64, timeColumn int, opts BuildOptions) ([]float64, error) {
	var min, max float64
	if opts.MinTime == nil || opts.MaxTime == nil {
		lo, hi, ok := timeBounds(matrices, timeColumn)
		if !ok {
			return nil, fmt.Errorf("no data rows to infer time bounds from")
		}
		min, max = lo, hi
	}
	if opts.MinTime != nil {
		min = *opts.MinTime
	}
	if opts.MaxTime != nil {
		max = *opts.MaxTime
	}
	return TimeGrid(min, max, opts.TimeSamples, opts.Logarithmic)
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
