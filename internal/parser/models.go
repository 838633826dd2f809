package parser

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Kind tags the dynamic type held by a Value.
type Kind int

const (
	KindFloat Kind = iota
	KindBool
	KindString
)

// Value is a single coordinate value recovered from a file header or name.
// It is comparable, so it can be used directly as a map key.
type Value struct {
	Kind Kind
	Num  float64
	Bool bool
	Str  string
}

func Float(v float64) Value { return Value{Kind: KindFloat, Num: v} }
func Bool(v bool) Value     { return Value{Kind: KindBool, Bool: v} }
func String(v string) Value { return Value{Kind: KindString, Str: v} }

// Less orders values by kind first (float < bool < string), then by value.
func (v Value) Less(o Value) bool {
	if v.Kind != o.Kind {
		return v.Kind < o.Kind
	}
	switch v.Kind {
	case KindFloat:
		return v.Num < o.Num
	case KindBool:
		return !v.Bool && o.Bool
	default:
		return v.Str < o.Str
	}
}

// String renders the value the way chart titles and file names want it:
// integral floats lose their decimal part.
func (v Value) String() string {
	switch v.Kind {
	case KindFloat:
		if !math.IsInf(v.Num, 0) && v.Num == math.Trunc(v.Num) {
			return strconv.FormatFloat(v.Num, 'f', -1, 64)
		}
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	default:
		return v.Str
	}
}

// GoString helps test failure messages.
func (v Value) GoString() string {
	return fmt.Sprintf("parser.Value{%d %q}", v.Kind, v.String())
}

// Coordinates is the coordinate assignment of one file: one value per dimension.
type Coordinates map[string]Value

// CoordinateSet maps a dimension name to the distinct values observed for it.
// Values are kept as sets until SortedCoordinates fixes their order.
type CoordinateSet map[string]map[Value]struct{}

// RawRun is the parsed content of one data file.
type RawRun struct {
	Path        string
	Coordinates Coordinates
	Variables   []string
	Rows        [][]float64
}

// SortedCoordinates turns a set-valued CoordinateSet into sorted, deduplicated slices.
func SortedCoordinates(set CoordinateSet) map[string][]Value {
	out := make(map[string][]Value, len(set))
	for name, values := range set {
		sorted := make([]Value, 0, len(values))
		for v := range values {
			sorted = append(sorted, v)
		}
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })
		out[name] = sorted
	}
	return out
}
