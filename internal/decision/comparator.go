package decision

// Shift is one category's share of the simulated distribution alongside its
// original share. Deltas are percentage points.
type Shift struct {
	OriginalPct  float64 `json:"originalPct"`
	SimulatedPct float64 `json:"simulatedPct"`
	DeltaPct     float64 `json:"deltaPct"`
}

// Tally counts outcomes per category. Every category is present in the
// result, at zero when unseen.
func Tally(decisions []Decision) map[Decision]int {
	counts := make(map[Decision]int, len(Categories))
	for _, c := range Categories {
		counts[c] = 0
	}
	for _, d := range decisions {
		counts[d]++
	}
	return counts
}

// Distribution converts outcomes into percentage shares per category.
// An empty input yields zero for every category rather than dividing by
// zero. Shares sum to 100 (modulo float rounding) whenever the input is
// non-empty.
func Distribution(decisions []Decision) map[Decision]float64 {
	pct := make(map[Decision]float64, len(Categories))
	for _, c := range Categories {
		pct[c] = 0
	}
	if len(decisions) == 0 {
		return pct
	}
	counts := Tally(decisions)
	total := float64(len(decisions))
	for _, c := range Categories {
		pct[c] = 100 * float64(counts[c]) / total
	}
	return pct
}

// Compare produces the per-category percentage shift between the original
// outcomes and the simulated ones. Both slices are aggregated against their
// own lengths, so the caller may pass sets of different sizes.
func Compare(original, simulated []Decision) map[Decision]Shift {
	origPct := Distribution(original)
	simPct := Distribution(simulated)
	shifts := make(map[Decision]Shift, len(Categories))
	for _, c := range Categories {
		shifts[c] = Shift{
			OriginalPct:  origPct[c],
			SimulatedPct: simPct[c],
			DeltaPct:     simPct[c] - origPct[c],
		}
	}
	return shifts
}
