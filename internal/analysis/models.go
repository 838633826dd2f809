package analysis

import (
	"errors"
	"fmt"

	"github.com/user/sweep_analyzer_go/internal/parser"
)

// ErrInconsistentVariables is returned when the files of one experiment do
// not declare the same columns.
var ErrInconsistentVariables = errors.New("inconsistent variable names across experiment files")

// Dimension is one named axis of a Dataset with its sorted coordinate values.
type Dimension struct {
	Name   string
	Values []parser.Value
}

// Variable holds one measured quantity over the whole Dataset grid.
// A cell is missing when Present is false; Values then holds zero.
type Variable struct {
	Name    string
	Values  []float64
	Present []bool
}

// At returns the cell at flat index i and whether it holds data.
func (v *Variable) At(i int) (float64, bool) {
	return v.Values[i], v.Present[i]
}

func (v *Variable) set(i int, value float64) {
	v.Values[i] = value
	v.Present[i] = true
}

// Dataset is a dense N-dimensional container addressed by its dimensions, in
// order, with row-major flat indexing. Every variable spans the full grid.
type Dataset struct {
	Dims      []Dimension
	Variables []Variable
}

// NewDataset allocates a dataset with every cell missing.
func NewDataset(dims []Dimension, variables []string) *Dataset {
	ds := &Dataset{Dims: dims}
	size := ds.Size()
	for _, name := range variables {
		ds.Variables = append(ds.Variables, Variable{
			Name:    name,
			Values:  make([]float64, size),
			Present: make([]bool, size),
		})
	}
	return ds
}

// IsEmpty reports whether the dataset carries no variables.
func (d *Dataset) IsEmpty() bool {
	return d == nil || len(d.Variables) == 0
}

func (d *Dataset) Shape() []int {
	shape := make([]int, len(d.Dims))
	for i, dim := range d.Dims {
		shape[i] = len(dim.Values)
	}
	return shape
}

// Size is the number of cells per variable. A dataset without dimensions is
// a scalar and has one cell.
func (d *Dataset) Size() int {
	size := 1
	for _, dim := range d.Dims {
		size *= len(dim.Values)
	}
	return size
}

func (d *Dataset) strides() []int {
	strides := make([]int, len(d.Dims))
	stride := 1
	for i := len(d.Dims) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= len(d.Dims[i].Values)
	}
	return strides
}

// DimIndex returns the axis number of the named dimension, or -1.
func (d *Dataset) DimIndex(name string) int {
	for i, dim := range d.Dims {
		if dim.Name == name {
			return i
		}
	}
	return -1
}

// Dim returns the named dimension, or nil.
func (d *Dataset) Dim(name string) *Dimension {
	if i := d.DimIndex(name); i >= 0 {
		return &d.Dims[i]
	}
	return nil
}

// Variable returns the named variable, or nil.
func (d *Dataset) Variable(name string) *Variable {
	for i := range d.Variables {
		if d.Variables[i].Name == name {
			return &d.Variables[i]
		}
	}
	return nil
}

// VariableNames lists the data variables in storage order.
func (d *Dataset) VariableNames() []string {
	names := make([]string, len(d.Variables))
	for i, v := range d.Variables {
		names[i] = v.Name
	}
	return names
}

// Index maps a full position (one index per dimension) to a flat index.
func (d *Dataset) Index(pos []int) int {
	flat := 0
	for i, stride := range d.strides() {
		flat += pos[i] * stride
	}
	return flat
}

func indexOf(values []parser.Value, v parser.Value) int {
	for i, candidate := range values {
		if candidate == v {
			return i
		}
	}
	return -1
}

// Positions resolves a coordinate assignment into per-dimension indices.
// Dimensions absent from coords are -1, meaning every index along that axis.
func (d *Dataset) Positions(coords parser.Coordinates) ([]int, error) {
	pos := make([]int, len(d.Dims))
	for i, dim := range d.Dims {
		v, ok := coords[dim.Name]
		if !ok {
			pos[i] = -1
			continue
		}
		idx := indexOf(dim.Values, v)
		if idx < 0 {
			return nil, fmt.Errorf("value %s not found in dimension %q", v, dim.Name)
		}
		pos[i] = idx
	}
	return pos, nil
}

// forEachMatching calls fn with the flat index of every cell whose position
// agrees with fixed. A -1 entry in fixed matches every index on that axis.
func (d *Dataset) forEachMatching(fixed []int, fn func(flat int)) {
	if d.Size() == 0 {
		return
	}
	shape := d.Shape()
	strides := d.strides()
	pos := make([]int, len(shape))
	for i, f := range fixed {
		if f >= 0 {
			pos[i] = f
		}
	}
	for {
		flat := 0
		for i := range pos {
			flat += pos[i] * strides[i]
		}
		fn(flat)

		axis := len(pos) - 1
		for ; axis >= 0; axis-- {
			if fixed[axis] >= 0 {
				continue
			}
			pos[axis]++
			if pos[axis] < shape[axis] {
				break
			}
			pos[axis] = 0
		}
		if axis < 0 {
			return
		}
	}
}

// Select fixes some dimensions to a single value and drops them from the
// result. Unknown dimension names are an error.
func (d *Dataset) Select(sel parser.Coordinates) (*Dataset, error) {
	fixed := make([]int, len(d.Dims))
	var kept []Dimension
	for i, dim := range d.Dims {
		v, ok := sel[dim.Name]
		if !ok {
			fixed[i] = -1
			kept = append(kept, dim)
			continue
		}
		idx := indexOf(dim.Values, v)
		if idx < 0 {
			return nil, fmt.Errorf("value %s not found in dimension %q", v, dim.Name)
		}
		fixed[i] = idx
	}
	for name := range sel {
		if d.DimIndex(name) < 0 {
			return nil, fmt.Errorf("unknown dimension %q", name)
		}
	}

	out := NewDataset(kept, d.VariableNames())
	next := 0
	d.forEachMatching(fixed, func(flat int) {
		for vi := range d.Variables {
			if v, ok := d.Variables[vi].At(flat); ok {
				out.Variables[vi].set(next, v)
			}
		}
		next++
	})
	return out, nil
}

// Summary pairs the mean and standard deviation of an experiment after
// folding the seed dimensions.
type Summary struct {
	Mean *Dataset
	Std  *Dataset
}

// EmptySummary is what an experiment without data files produces.
func EmptySummary() Summary {
	return Summary{Mean: &Dataset{}, Std: &Dataset{}}
}
