package report

import (
	"strings"

	"github.com/user/sweep_analyzer_go/internal/config"
	"github.com/user/sweep_analyzer_go/internal/parser"
)

// Labels maps variable names to the measure shown on charts.
type Labels map[string]config.Measure

// LabelFor is the short description of a variable, used in titles.
func (l Labels) LabelFor(name string) string {
	return config.MeasureFor(l, name).Description
}

// UnitFor is the description with its unit, used on axes.
func (l Labels) UnitFor(name string) string {
	return config.MeasureFor(l, name).String()
}

var unsafeNameChars = strings.NewReplacer(
	".", "_", "[", "_", "]", "_", `\`, "_", "/", "_", "@", "_", ":", "_",
)

// chartName is the file name, without extension, of one comparison chart.
func chartName(comparison, metric, held string, value parser.Value, withErr bool) string {
	name := comparison + "_" + metric + "_" + held + "_" + value.String()
	if withErr {
		name += "_err"
	}
	return unsafeNameChars.Replace(name)
}
