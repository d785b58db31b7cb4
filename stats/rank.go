package stats

import "sort"

// Entry is one adapter inside a comparison group.
type Entry struct {
	Adapter string  `json:"adapter" yaml:"adapter"`
	Summary Summary `json:"summary" yaml:"summary"`
	// 1 is the fastest; adapters with equal means share a rank; 0 means not measured
	Rank int `json:"rank" yaml:"rank"`
	// mean divided by the baseline's mean; 0 when either side was not measured
	Ratio float64 `json:"ratio" yaml:"ratio"`
}

// Rank orders the measured entries by mean and fills in Rank and Ratio. The baseline
// is the named adapter when it was measured, otherwise the first measured entry. It
// returns the baseline used, or "" when nothing was measured.
func Rank(entries []*Entry, baseline string) string {
	measured := []*Entry{}
	for _, e := range entries {
		e.Rank, e.Ratio = 0, 0
		if e.Summary.Measured() {
			measured = append(measured, e)
		}
	}
	if len(measured) == 0 {
		return ""
	}

	var base *Entry
	for _, e := range measured {
		if e.Adapter == baseline {
			base = e
			break
		}
	}
	if base == nil {
		base = measured[0]
	}

	sorted := make([]*Entry, len(measured))
	copy(sorted, measured)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Summary.Mean < sorted[j].Summary.Mean })

	rank := 0
	for i, e := range sorted {
		if i == 0 || e.Summary.Mean != sorted[i-1].Summary.Mean {
			rank++
		}
		e.Rank = rank
		if base.Summary.Mean > 0 {
			e.Ratio = e.Summary.Mean / base.Summary.Mean
		}
	}
	return base.Adapter
}
