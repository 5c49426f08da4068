package strategy

import (
	"fmt"

	"TimingTerminal/internal/calculator"
	"TimingTerminal/internal/model"
)

const (
	capitulationMultiplier = 0.5
	euphoriaMultiplier     = 1.2

	savgolWindow = 21
	savgolOrder  = 3
)

// LSDScorer computes LTH Supply Dynamics from the on-chain SOPR and MVRV series.
type LSDScorer struct {
	Config model.ScoringConfig
}

// NewLSDScorer creates a scorer for the on-chain path.
func NewLSDScorer(cfg model.ScoringConfig) *LSDScorer {
	return &LSDScorer{Config: cfg}
}

func (s *LSDScorer) Name() string { return StrategyLSD }

// Score implements Scorer using the aligned SOPR and MVRV columns of in.
func (s *LSDScorer) Score(in *model.Inputs) ([]float64, error) {
	return ComputeLSD(in.SOPR, in.MVRV, s.Config)
}

// ComputeLSD ranks both series over the lookback window, combines the ranks
// with the configured weights, applies the capitulation and euphoria
// multipliers, clips to [0, 100] and smooths with Savitzky-Golay (21, 3).
// Positions without enough history stay undefined.
func ComputeLSD(sopr, mvrv []float64, cfg model.ScoringConfig) ([]float64, error) {
	if len(sopr) != len(mvrv) {
		return nil, fmt.Errorf("%w: sopr has %d values, mvrv has %d", ErrLengthMismatch, len(sopr), len(mvrv))
	}

	mvrvPct := calculator.PercentileRank(mvrv, cfg.LookbackWindow)
	soprPct := calculator.PercentileRank(sopr, cfg.LookbackWindow)

	score := make([]float64, len(sopr))
	for i := range score {
		v := mvrvPct[i]*cfg.MVRVWeight + soprPct[i]*cfg.SOPRWeight
		// Both multipliers may apply to the same point.
		if sopr[i] < cfg.CapitulationThreshold {
			v *= capitulationMultiplier
		}
		if mvrv[i] > cfg.EuphoriaThreshold {
			v *= euphoriaMultiplier
		}
		score[i] = v
	}

	score = calculator.Clip(score, 0, 100)
	score = calculator.SavitzkyGolay(score, savgolWindow, savgolOrder)
	return calculator.Clip(score, 0, 100), nil
}
