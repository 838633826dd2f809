package parser

import (
	"math"
	"reflect"
	"testing"
)

func set(pairs map[string][]Value) CoordinateSet {
	out := CoordinateSet{}
	for k, vs := range pairs {
		out[k] = map[Value]struct{}{}
		for _, v := range vs {
			out[k][v] = struct{}{}
		}
	}
	return out
}

func TestMergeCoordinatesScenario(t *testing.T) {
	f1 := Coordinates{"seed": Float(1), "rate": Float(0.5)}
	f2 := Coordinates{"seed": Float(2), "rate": Float(0.7)}

	merged := SortedCoordinates(MergeCoordinates(f1.AsSet(), f2.AsSet()))
	want := map[string][]Value{
		"seed": {Float(1), Float(2)},
		"rate": {Float(0.5), Float(0.7)},
	}
	if !reflect.DeepEqual(merged, want) {
		t.Errorf("merged = %#v, want %#v", merged, want)
	}
}

func TestMergeCoordinatesAlgebra(t *testing.T) {
	a := set(map[string][]Value{"x": {Float(1)}, "y": {String("a")}})
	b := set(map[string][]Value{"x": {Float(2)}, "z": {Bool(true)}})
	c := set(map[string][]Value{"y": {String("b")}, "x": {Float(1), Float(3)}})

	if !reflect.DeepEqual(MergeCoordinates(a, b), MergeCoordinates(b, a)) {
		t.Error("merge is not commutative")
	}
	left := MergeCoordinates(MergeCoordinates(a, b), c)
	right := MergeCoordinates(a, MergeCoordinates(b, c))
	if !reflect.DeepEqual(left, right) {
		t.Error("merge is not associative")
	}
	if !reflect.DeepEqual(MergeCoordinates(a, CoordinateSet{}), a) {
		t.Error("merging with an empty set changed the input")
	}
}

func TestSortedCoordinatesMixedKinds(t *testing.T) {
	s := set(map[string][]Value{"k": {String("b"), Float(2), Bool(true), Float(-1), String("a"), Bool(false)}})
	got := SortedCoordinates(s)["k"]
	want := []Value{Float(-1), Float(2), Bool(false), Bool(true), String("a"), String("b")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("sorted = %#v, want %#v", got, want)
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Float(1e6), "1000000"},
		{Float(-300), "-300"},
		{Float(2.5), "2.5"},
		{Float(1e-7), "1e-07"},
		{Float(math.Inf(1)), "+Inf"},
		{Bool(true), "true"},
		{String("x"), "x"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("%#v.String() = %q, want %q", tt.v, got, tt.want)
		}
	}
}
