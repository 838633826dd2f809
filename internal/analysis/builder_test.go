package analysis

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/user/sweep_analyzer_go/internal/parser"
)

func writeRun(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func float(v float64) *float64 { return &v }

func defaultOptions(samples int) BuildOptions {
	return BuildOptions{
		Prefix:      "exp",
		TimeColumn:  "time",
		TimeSamples: samples,
		MinTime:     float(0),
		MaxTime:     float(1),
	}
}

func cell(t *testing.T, ds *Dataset, variable string, coords parser.Coordinates) (float64, bool) {
	t.Helper()
	pos, err := ds.Positions(coords)
	if err != nil {
		t.Fatalf("Positions(%v): %v", coords, err)
	}
	for _, p := range pos {
		if p < 0 {
			t.Fatalf("coordinates %v do not pin every dimension", coords)
		}
	}
	v := ds.Variable(variable)
	if v == nil {
		t.Fatalf("variable %q missing", variable)
	}
	return v.At(ds.Index(pos))
}

func TestBuildExperimentEndToEnd(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeRun(t, dir, "exp_A=2.csv", "time value\n0 20\n1 22\n"),
		writeRun(t, dir, "exp_A=1.csv", "time value\n0 10\n1 12\n"),
	}

	exp, err := BuildExperiment("exp", files, defaultOptions(2))
	if err != nil {
		t.Fatalf("BuildExperiment: %v", err)
	}
	if exp.FilesRead != 2 {
		t.Errorf("FilesRead = %d, want 2", exp.FilesRead)
	}
	if got := exp.Data.Shape(); len(got) != 2 || got[0] != 2 || got[1] != 2 {
		t.Fatalf("shape = %v, want [2 2]", got)
	}
	if v, ok := cell(t, exp.Data, "value", parser.Coordinates{"A": parser.Float(2), "time": parser.Float(1)}); !ok || v != 22 {
		t.Errorf("value[A=2,t=1] = %v,%v want 22", v, ok)
	}

	summary := Fold(exp.Data, []string{"A", "seed"})
	wantMean := []float64{15, 17}
	wantStd := []float64{5, 5}
	mean := summary.Mean.Variable("value")
	std := summary.Std.Variable("value")
	for i := range wantMean {
		if m, ok := mean.At(i); !ok || m != wantMean[i] {
			t.Errorf("mean[%d] = %v,%v want %v", i, m, ok, wantMean[i])
		}
		if s, ok := std.At(i); !ok || s != wantStd[i] {
			t.Errorf("std[%d] = %v,%v want %v", i, s, ok, wantStd[i])
		}
	}
	if len(summary.Mean.Dims) != 1 || summary.Mean.Dims[0].Name != "time" {
		t.Errorf("mean dims = %v, want only time", summary.Mean.Dims)
	}
}

func TestBuildExperimentNoFiles(t *testing.T) {
	exp, err := BuildExperiment("ghost", nil, defaultOptions(5))
	if err != nil {
		t.Fatalf("BuildExperiment: %v", err)
	}
	if !exp.Data.IsEmpty() {
		t.Errorf("expected an empty dataset, got %d variables", len(exp.Data.Variables))
	}
	if len(exp.Warnings) != 1 {
		t.Errorf("expected one warning, got %v", exp.Warnings)
	}
}

func TestBuildExperimentAutoBoundsAndMissingCells(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeRun(t, dir, "exp_1.csv", "# seed = 1, rate = 0.5\n# time v\n2 1\n4 2\n6 3\n"),
		writeRun(t, dir, "exp_2.csv", "# seed = 2, rate = 0.7\n# time v\n0 5\n10 6\n"),
	}
	opts := defaultOptions(3)
	opts.MinTime, opts.MaxTime = nil, nil

	exp, err := BuildExperiment("exp", files, opts)
	if err != nil {
		t.Fatalf("BuildExperiment: %v", err)
	}
	if exp.Timeline[0] != 0 || exp.Timeline[2] != 10 {
		t.Errorf("timeline = %v, want [0 5 10]", exp.Timeline)
	}
	// seed=1 never ran with rate=0.7.
	if _, ok := cell(t, exp.Data, "v", parser.Coordinates{"seed": parser.Float(1), "rate": parser.Float(0.7), "time": parser.Float(0)}); ok {
		t.Error("expected a missing cell for an absent combination")
	}
	if v, ok := cell(t, exp.Data, "v", parser.Coordinates{"seed": parser.Float(1), "rate": parser.Float(0.5), "time": parser.Float(10)}); !ok || v != 3 {
		t.Errorf("v = %v,%v want 3", v, ok)
	}

	summary := Fold(exp.Data, []string{"seed"})
	mean := summary.Mean.Variable("v")
	// rate=0.5 at t=0 snaps to the first sample of run 1 only.
	idx := summary.Mean.Index([]int{0, 0})
	if m, ok := mean.At(idx); !ok || m != 1 {
		t.Errorf("mean[rate=0.5,t=0] = %v,%v want 1", m, ok)
	}
	if s, _ := summary.Std.Variable("v").At(idx); s != 0 {
		t.Errorf("std of a single run = %v, want 0", s)
	}
}

func TestBuildExperimentBroadcastsUnassignedDimensions(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeRun(t, dir, "exp_a.csv", "# mode = x\n# time v\n0 1\n"),
		writeRun(t, dir, "exp_b.csv", "# mode = y, seed = 1\n# time v\n0 2\n"),
		writeRun(t, dir, "exp_c.csv", "# mode = y, seed = 2\n# time v\n0 4\n"),
	}
	exp, err := BuildExperiment("exp", files, defaultOptions(1))
	if err != nil {
		t.Fatalf("BuildExperiment: %v", err)
	}
	for _, seed := range []float64{1, 2} {
		v, ok := cell(t, exp.Data, "v", parser.Coordinates{"mode": parser.String("x"), "seed": parser.Float(seed), "time": parser.Float(0)})
		if !ok || v != 1 {
			t.Errorf("mode=x seed=%v: got %v,%v want 1", seed, v, ok)
		}
	}
}

func TestBuildExperimentInconsistentVariables(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeRun(t, dir, "exp_1.csv", "time a\n0 1\n"),
		writeRun(t, dir, "exp_2.csv", "time b\n0 1\n"),
	}
	_, err := BuildExperiment("exp", files, defaultOptions(2))
	if !errors.Is(err, ErrInconsistentVariables) {
		t.Fatalf("expected ErrInconsistentVariables, got %v", err)
	}
}

func TestBuildExperimentMissingTimeColumn(t *testing.T) {
	dir := t.TempDir()
	files := []string{writeRun(t, dir, "exp_1.csv", "step a\n0 1\n")}
	if _, err := BuildExperiment("exp", files, defaultOptions(2)); err == nil {
		t.Fatal("expected an error when the time column is absent")
	}
}

func TestBuildExperimentEmptyFile(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeRun(t, dir, "exp_A=1.csv", "time value\n0 10\n1 12\n"),
		writeRun(t, dir, "exp_A=2.csv", "time value\n0 20\n1 22\n"),
		writeRun(t, dir, "exp_A=3.csv", ""),
	}
	exp, err := BuildExperiment("exp", files, defaultOptions(2))
	if err != nil {
		t.Fatalf("BuildExperiment: %v", err)
	}
	if exp.FilesRead != 3 {
		t.Errorf("FilesRead = %d, want 3", exp.FilesRead)
	}
	if len(exp.Warnings) != 1 || !strings.Contains(exp.Warnings[0], "exp_A=3.csv") {
		t.Errorf("warnings = %v, want one about the empty file", exp.Warnings)
	}
	if got := len(exp.Data.Dim("A").Values); got != 2 {
		t.Errorf("A has %d values, want 2", got)
	}
	mean := Fold(exp.Data, []string{"A"}).Mean.Variable("value")
	for i, want := range []float64{15, 17} {
		if m, ok := mean.At(i); !ok || m != want {
			t.Errorf("mean[%d] = %v,%v want %v", i, m, ok, want)
		}
	}
}

func TestBuildExperimentOnlyEmptyFiles(t *testing.T) {
	dir := t.TempDir()
	files := []string{writeRun(t, dir, "exp_A=1.csv", ""), writeRun(t, dir, "exp_A=2.csv", "\n\n")}
	exp, err := BuildExperiment("exp", files, defaultOptions(2))
	if err != nil {
		t.Fatalf("BuildExperiment: %v", err)
	}
	if !exp.Data.IsEmpty() {
		t.Error("expected an empty dataset")
	}
	if len(exp.Warnings) != 3 {
		t.Errorf("warnings = %v, want two skipped files and no data", exp.Warnings)
	}
}

func TestBuildExperimentHeaderlessFile(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeRun(t, dir, "exp_A=1.csv", "time value\n0 10\n1 12\n"),
		writeRun(t, dir, "exp_A=2.csv", "time value\n0 20\n1 22\n"),
		writeRun(t, dir, "exp_A=4.csv", "0 30\n1 32\n"),
	}
	exp, err := BuildExperiment("exp", files, defaultOptions(2))
	if err != nil {
		t.Fatalf("BuildExperiment: %v", err)
	}
	if len(exp.Warnings) != 1 || !strings.Contains(exp.Warnings[0], "exp_A=4.csv") {
		t.Errorf("warnings = %v, want one about the headerless file", exp.Warnings)
	}
	for _, tt := range []struct {
		a, time, want float64
	}{{1, 0, 10}, {1, 1, 12}, {2, 1, 22}, {4, 0, 30}, {4, 1, 32}} {
		coords := parser.Coordinates{"A": parser.Float(tt.a), "time": parser.Float(tt.time)}
		if v, ok := cell(t, exp.Data, "value", coords); !ok || v != tt.want {
			t.Errorf("value[A=%v,t=%v] = %v,%v want %v", tt.a, tt.time, v, ok, tt.want)
		}
	}
}

func TestBuildExperimentHeaderlessFileWrongWidth(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeRun(t, dir, "exp_A=1.csv", "time value\n0 10\n"),
		writeRun(t, dir, "exp_A=2.csv", "0 20 99\n"),
	}
	if _, err := BuildExperiment("exp", files, defaultOptions(2)); err == nil {
		t.Fatal("expected an error for a headerless row of the wrong width")
	}
}
