package calculator

import "math"

// MinMax scans the defined samples and returns their extremes.
// ok is false when the series holds no defined sample.
func MinMax(series []float64) (low, high float64, ok bool) {
	low = math.Inf(1)
	high = math.Inf(-1)
	for _, v := range series {
		if math.IsNaN(v) {
			continue
		}
		ok = true
		if v < low {
			low = v
		}
		if v > high {
			high = v
		}
	}
	return low, high, ok
}

// MinMaxNormalize maps the series onto [0, 100] using its own extremes.
// A flat series and undefined samples map to the neutral 50.
func MinMaxNormalize(series []float64) []float64 {
	out := make([]float64, len(series))
	low, high, ok := MinMax(series)
	for i, v := range series {
		if !ok || high == low || math.IsNaN(v) {
			out[i] = 50.0
			continue
		}
		out[i] = (v - low) / (high - low) * 100.0
	}
	return out
}

// Clip bounds every defined sample to [lo, hi]. Undefined samples stay undefined.
func Clip(series []float64, lo, hi float64) []float64 {
	out := make([]float64, len(series))
	for i, v := range series {
		out[i] = ClipValue(v, lo, hi)
	}
	return out
}

// ClipValue bounds a single value, passing NaN through.
func ClipValue(v, lo, hi float64) float64 {
	switch {
	case math.IsNaN(v):
		return v
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}
