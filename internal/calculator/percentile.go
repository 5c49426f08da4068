package calculator

import "math"

// PercentileRank computes, at every position, the share of the trailing
// `window` samples (current one included) that are strictly below the
// current value, scaled to [0, 100].
//
// A position is undefined (NaN) when the window holds fewer than two samples,
// when the current value is undefined, or when fewer than window/2 samples
// (at least one) in the window are defined.
func PercentileRank(series []float64, window int) []float64 {
	out := make([]float64, len(series))
	if window <= 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	minPeriods := window / 2
	if minPeriods < 1 {
		minPeriods = 1
	}

	for i := range series {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		win := series[start : i+1]
		cur := series[i]

		defined := 0
		for _, v := range win {
			if !math.IsNaN(v) {
				defined++
			}
		}
		if defined < minPeriods || len(win) < 2 || math.IsNaN(cur) {
			out[i] = math.NaN()
			continue
		}

		below := 0
		for _, v := range win {
			if v < cur {
				below++
			}
		}
		out[i] = float64(below) / float64(len(win)) * 100.0
	}
	return out
}
