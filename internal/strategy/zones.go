package strategy

import (
	"fmt"

	"TimingTerminal/internal/model"
)

// Classify maps a score to its zone. Scores equal to either threshold are neutral.
func Classify(score float64, cfg model.ScoringConfig) model.Zone {
	switch {
	case score < cfg.RetentionThreshold:
		return model.ZoneRetention
	case score > cfg.DistributionThreshold:
		return model.ZoneDistribution
	default:
		return model.ZoneNeutral
	}
}

// Enrich returns new points carrying the given scores and their zones.
// base supplies timestamps and reference prices; its own scores and zones are ignored.
func Enrich(base []model.ScorePoint, scores []float64, cfg model.ScoringConfig) ([]model.ScorePoint, error) {
	if len(base) != len(scores) {
		return nil, fmt.Errorf("%w: %d points but %d scores", ErrLengthMismatch, len(base), len(scores))
	}
	out := make([]model.ScorePoint, len(base))
	for i, p := range base {
		out[i] = model.ScorePoint{
			Timestamp:      p.Timestamp,
			ReferencePrice: p.ReferencePrice,
			Score:          scores[i],
			Zone:           Classify(scores[i], cfg),
		}
	}
	return out, nil
}

// FromRecords rebuilds scored points from ledger rows.
func FromRecords(records []model.HistoryRecord, cfg model.ScoringConfig) []model.ScorePoint {
	out := make([]model.ScorePoint, len(records))
	for i, r := range records {
		out[i] = model.ScorePoint{
			Timestamp:      r.Timestamp,
			ReferencePrice: r.ReferencePrice,
			Score:          r.Score,
			Zone:           Classify(r.Score, cfg),
		}
	}
	return out
}
