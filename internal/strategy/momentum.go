package strategy

import (
	"fmt"

	"TimingTerminal/internal/calculator"
	"TimingTerminal/internal/model"
)

const neutralScore = 50.0

// MomentumScorer is the price-only fallback used when on-chain inputs are missing.
type MomentumScorer struct {
	Config model.ScoringConfig
}

// NewMomentumScorer creates a scorer for the fallback path.
func NewMomentumScorer(cfg model.ScoringConfig) *MomentumScorer {
	return &MomentumScorer{Config: cfg}
}

func (s *MomentumScorer) Name() string { return StrategyMomentum }

// Score implements Scorer using the price column and, when present, the
// auxiliary column of in.
func (s *MomentumScorer) Score(in *model.Inputs) ([]float64, error) {
	return ComputeMomentum(in.Price, in.Auxiliary, s.Config)
}

// ComputeMomentum maps the percentage price change over MomentumWindow
// periods onto [0, 100], with -MaxPriceChangePct at 0, no change at 50 and
// +MaxPriceChangePct at 100. Early points use whatever history exists.
//
// When aux is non-nil it is min-max normalized and blended in with weight
// LTHWeight. aux must then have the same length as prices.
func ComputeMomentum(prices, aux []float64, cfg model.ScoringConfig) ([]float64, error) {
	if aux != nil && len(aux) != len(prices) {
		return nil, fmt.Errorf("%w: auxiliary series has %d values, price has %d", ErrLengthMismatch, len(aux), len(prices))
	}
	if len(prices) == 0 {
		return []float64{}, nil
	}
	if len(prices) == 1 {
		return []float64{neutralScore}, nil
	}

	scores := make([]float64, len(prices))
	for i := range prices {
		lookback := i - cfg.MomentumWindow
		if lookback < 0 {
			lookback = 0
		}
		historical := prices[lookback]
		if historical <= 0 {
			scores[i] = neutralScore
			continue
		}

		changePct := (prices[i] - historical) / historical * 100
		changePct = calculator.ClipValue(changePct, -cfg.MaxPriceChangePct, cfg.MaxPriceChangePct)

		score := neutralScore + changePct/cfg.MaxPriceChangePct*neutralScore*cfg.MomentumWeight
		scores[i] = calculator.ClipValue(score, 0, 100)
	}

	if aux == nil {
		return scores, nil
	}

	w := calculator.ClipValue(cfg.LTHWeight, 0, 1)
	normalized := calculator.MinMaxNormalize(aux)
	for i := range scores {
		blended := (1-w)*scores[i] + w*normalized[i]
		scores[i] = calculator.ClipValue(blended, 0, 100)
	}
	return scores, nil
}
