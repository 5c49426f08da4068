package strategy

import (
	"errors"
	"fmt"
	"strings"

	"TimingTerminal/internal/calculator"
	"TimingTerminal/internal/model"
)

// ErrLengthMismatch is returned when parallel inputs disagree in length.
var ErrLengthMismatch = errors.New("length mismatch")

// Strategy and mode names.
const (
	StrategyLSD      = "lsd"
	StrategyMomentum = "momentum"
	ModeAuto         = "auto"
)

// Post-filter names.
const (
	FilterNone = "none"
	FilterSMA  = "sma"
	FilterEMA  = "ema"
	FilterDEMA = "dema"
)

// Scorer turns aligned inputs into one score per row.
// The LSD and momentum scorers are not numerically comparable with each other.
type Scorer interface {
	Name() string
	Score(in *model.Inputs) ([]float64, error)
}

// Select picks the scorer for a run. In auto mode the on-chain scorer is
// used whenever both on-chain series are present.
func Select(mode string, in *model.Inputs, cfg model.ScoringConfig) (Scorer, error) {
	switch strings.ToLower(mode) {
	case "", ModeAuto:
		if in.HasOnChain() {
			return NewLSDScorer(cfg), nil
		}
		return NewMomentumScorer(cfg), nil
	case StrategyLSD:
		if !in.HasOnChain() {
			return nil, errors.New("lsd scoring requires sopr and mvrv series")
		}
		return NewLSDScorer(cfg), nil
	case StrategyMomentum:
		return NewMomentumScorer(cfg), nil
	default:
		return nil, fmt.Errorf("unknown scoring mode %q", mode)
	}
}

// PostFilter optionally smooths an already-canonical score series and
// re-clips it to [0, 100]. Undefined positions stay undefined.
// FilterNone returns the input unchanged.
func PostFilter(scores []float64, name string, window int) ([]float64, error) {
	var (
		out []float64
		err error
	)
	switch strings.ToLower(name) {
	case "", FilterNone:
		return scores, nil
	case FilterSMA:
		out, err = calculator.CalculateSMA(scores, window)
	case FilterEMA:
		out, err = calculator.CalculateEMA(scores, window)
	case FilterDEMA:
		out, err = calculator.CalculateDoubleEMA(scores, window)
	default:
		return nil, fmt.Errorf("unknown post filter %q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("post filter %s: %w", name, err)
	}
	for i, v := range scores {
		if model.IsUndefined(v) {
			out[i] = v
		}
	}
	return calculator.Clip(out, 0, 100), nil
}
