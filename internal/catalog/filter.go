package catalog

// DivisionFilter selects items whose division attribute equals Option.
type DivisionFilter struct {
	Division string `json:"division,omitempty"`
	Option   string `json:"option,omitempty"`
}

// Active reports whether the filter narrows anything.
func (f DivisionFilter) Active() bool {
	return f.Division != "" && f.Option != ""
}

// Range selects items whose numeric attribute Attr lies in [Start, End].
type Range struct {
	Ranged bool    `json:"ranged"`
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Attr   string  `json:"attr,omitempty"`
}

// Active reports whether the range narrows anything.
func (r Range) Active() bool {
	return r.Ranged && r.Attr != ""
}

// Filter returns the items matching both the division filter and the range.
// Inactive filters match everything; an item missing a filtered attribute is excluded.
func Filter(items []Item, div DivisionFilter, rng Range) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if div.Active() {
			v, ok := it.Value(div.Division)
			if !ok || v.String() != div.Option {
				continue
			}
		}
		if rng.Active() {
			v, ok := it.Value(rng.Attr)
			if !ok {
				continue
			}
			n, ok := v.Number()
			if !ok || n < rng.Start || n > rng.End {
				continue
			}
		}
		out = append(out, it)
	}
	return out
}
