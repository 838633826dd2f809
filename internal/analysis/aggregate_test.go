package analysis

import (
	"math"
	"testing"

	"github.com/user/sweep_analyzer_go/internal/parser"
)

// grid builds a seed x time dataset for a single variable "v". NaN marks a
// missing cell.
func grid(values [][]float64) *Dataset {
	seeds := make([]parser.Value, len(values))
	for i := range seeds {
		seeds[i] = parser.Float(float64(i))
	}
	times := make([]parser.Value, len(values[0]))
	for i := range times {
		times[i] = parser.Float(float64(i))
	}
	ds := NewDataset([]Dimension{{Name: "seed", Values: seeds}, {Name: "time", Values: times}}, []string{"v"})
	for s, row := range values {
		for k, v := range row {
			if !math.IsNaN(v) {
				ds.Variables[0].set(ds.Index([]int{s, k}), v)
			}
		}
	}
	return ds
}

func TestFoldIgnoresMissing(t *testing.T) {
	nan := math.NaN()
	ds := grid([][]float64{
		{1, nan, nan},
		{3, 4, nan},
		{nan, 8, nan},
	})
	summary := Fold(ds, []string{"seed"})
	mean := summary.Mean.Variable("v")
	std := summary.Std.Variable("v")

	tests := []struct {
		idx      int
		mean     float64
		std      float64
		expected bool
	}{
		{0, 2, 1, true},
		{1, 6, 2, true},
		{2, 0, 0, false},
	}
	for _, tt := range tests {
		m, ok := mean.At(tt.idx)
		if ok != tt.expected {
			t.Errorf("cell %d presence = %v, want %v", tt.idx, ok, tt.expected)
			continue
		}
		if !ok {
			if _, sok := std.At(tt.idx); sok {
				t.Errorf("cell %d: std present while mean missing", tt.idx)
			}
			continue
		}
		s, _ := std.At(tt.idx)
		if math.Abs(m-tt.mean) > 1e-12 || math.Abs(s-tt.std) > 1e-12 {
			t.Errorf("cell %d = (%v, %v), want (%v, %v)", tt.idx, m, s, tt.mean, tt.std)
		}
	}
}

func TestFoldWithoutSeedDimension(t *testing.T) {
	ds := grid([][]float64{{1, 2}})
	summary := Fold(ds, []string{"replica"})
	if len(summary.Mean.Dims) != 2 {
		t.Fatalf("expected dimensions to be kept, got %v", summary.Mean.Dims)
	}
	if s, ok := summary.Std.Variable("v").At(1); !ok || s != 0 {
		t.Errorf("std without folding = %v,%v want 0", s, ok)
	}
}

func TestFoldEmpty(t *testing.T) {
	summary := Fold(&Dataset{}, []string{"seed"})
	if !summary.Mean.IsEmpty() || !summary.Std.IsEmpty() {
		t.Error("folding an empty dataset should stay empty")
	}
}

func TestMeanOverAndSelect(t *testing.T) {
	ds := grid([][]float64{{1, 2}, {3, 6}})
	overTime := MeanOver(ds, []string{"time"})
	if m, _ := overTime.Variable("v").At(1); m != 4.5 {
		t.Errorf("mean over time for seed 1 = %v, want 4.5", m)
	}

	sel, err := ds.Select(parser.Coordinates{"seed": parser.Float(1)})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(sel.Dims) != 1 || sel.Dims[0].Name != "time" {
		t.Fatalf("selected dims = %v", sel.Dims)
	}
	if v, _ := sel.Variable("v").At(1); v != 6 {
		t.Errorf("selected value = %v, want 6", v)
	}

	scalar, err := ds.Select(parser.Coordinates{"seed": parser.Float(0), "time": parser.Float(1)})
	if err != nil {
		t.Fatalf("Select scalar: %v", err)
	}
	if v, ok := scalar.Variable("v").At(0); !ok || v != 2 {
		t.Errorf("scalar = %v,%v want 2", v, ok)
	}

	if _, err := ds.Select(parser.Coordinates{"bogus": parser.Float(0)}); err == nil {
		t.Error("expected an error for an unknown dimension")
	}
}
