package config

import "strings"

// cleanMathMode strips one pair of surrounding '$'.
func cleanMathMode(s string) string {
	if len(s) >= 2 && s[0] == '$' && s[len(s)-1] == '$' {
		return s[1 : len(s)-1]
	}
	return s
}

// Derivative returns the measure of the time derivative of m.
func (m Measure) Derivative() Measure {
	d := Measure{Description: "$d " + cleanMathMode(m.Description) + "/{dt}$"}
	if m.Unit != "" {
		d.Unit = "$" + cleanMathMode(m.Unit) + "/{s}$"
	}
	return d
}

// String renders the description followed by the parenthesized unit, if any.
func (m Measure) String() string {
	if m.Unit == "" {
		return m.Description
	}
	return m.Description + " (" + m.Unit + ")"
}

// MeasureFor resolves the measure of a variable. Unknown names ending in "dt"
// are treated as the derivative of the variable without the suffix.
func MeasureFor(labels map[string]Measure, name string) Measure {
	if m, ok := labels[name]; ok {
		return m
	}
	if base, ok := strings.CutSuffix(name, "dt"); ok && base != "" {
		if m, ok := labels[base]; ok {
			return m.Derivative()
		}
		return Measure{Description: base}.Derivative()
	}
	return Measure{Description: name}
}
