package calculator

import (
	"errors"
	"math"
)

// CalculateSMA returns the trailing simple moving average at every position.
// Each output averages the defined samples among the last `period` inputs;
// a position with no defined sample is undefined (NaN).
func CalculateSMA(series []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.New("period must be positive")
	}
	out := make([]float64, len(series))
	for i := range series {
		start := i - period + 1
		if start < 0 {
			start = 0
		}
		sum, n := 0.0, 0
		for j := start; j <= i; j++ {
			if math.IsNaN(series[j]) {
				continue
			}
			sum += series[j]
			n++
		}
		if n == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(n)
	}
	return out, nil
}

// CalculateEMA returns the adjusted exponential moving average with
// alpha = 2/(span+1). Every position with at least one defined sample so far
// produces a value; undefined samples decay the weights without adding an
// observation.
func CalculateEMA(series []float64, span int) ([]float64, error) {
	if span <= 0 {
		return nil, errors.New("span must be positive")
	}
	decay := 1 - 2/(float64(span)+1)
	out := make([]float64, len(series))
	num, den := 0.0, 0.0
	for i, v := range series {
		num *= decay
		den *= decay
		if !math.IsNaN(v) {
			num += v
			den++
		}
		if den == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = num / den
	}
	return out, nil
}

// CalculateDoubleEMA returns the EMA of the EMA over the same span.
func CalculateDoubleEMA(series []float64, span int) ([]float64, error) {
	first, err := CalculateEMA(series, span)
	if err != nil {
		return nil, err
	}
	return CalculateEMA(first, span)
}
