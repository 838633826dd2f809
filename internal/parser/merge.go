package parser

// valueSet returns the values a CoordinateSet holds for key, or an empty set.
func valueSet(key string, set CoordinateSet) map[Value]struct{} {
	if values, ok := set[key]; ok {
		return values
	}
	return map[Value]struct{}{}
}

// MergeCoordinates unions two coordinate sets key by key. Neither input is modified.
func MergeCoordinates(a, b CoordinateSet) CoordinateSet {
	res := make(CoordinateSet, len(a)+len(b))
	for _, src := range []CoordinateSet{a, b} {
		for k := range src {
			if _, done := res[k]; done {
				continue
			}
			merged := make(map[Value]struct{})
			for v := range valueSet(k, a) {
				merged[v] = struct{}{}
			}
			for v := range valueSet(k, b) {
				merged[v] = struct{}{}
			}
			res[k] = merged
		}
	}
	return res
}

// AsSet lifts a single file's coordinate assignment to a one-value-per-key set.
func (c Coordinates) AsSet() CoordinateSet {
	set := make(CoordinateSet, len(c))
	for k, v := range c {
		set[k] = map[Value]struct{}{v: {}}
	}
	return set
}
