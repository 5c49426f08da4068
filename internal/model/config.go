package model

// ScoringConfig parametrizes the scorers and the zone classifier.
// It is passed by value and never mutated during a run.
type ScoringConfig struct {
	// Zone boundaries: score < RetentionThreshold is retention,
	// score > DistributionThreshold is distribution.
	RetentionThreshold    float64 `yaml:"retention_threshold" validate:"gte=0,lte=100"`
	DistributionThreshold float64 `yaml:"distribution_threshold" validate:"gte=0,lte=100,gtfield=RetentionThreshold"`

	// Momentum fallback.
	MomentumWindow    int     `yaml:"momentum_window" validate:"gt=0"`
	MomentumWeight    float64 `yaml:"momentum_weight" validate:"gte=0"`
	MaxPriceChangePct float64 `yaml:"max_price_change_pct" validate:"gt=0"`
	LTHWeight         float64 `yaml:"lth_weight" validate:"gte=0,lte=1"`

	// On-chain (LSD) path.
	LookbackWindow        int     `yaml:"lookback_window" validate:"gt=0"`
	MVRVWeight            float64 `yaml:"mvrv_weight" validate:"gte=0"`
	SOPRWeight            float64 `yaml:"sopr_weight" validate:"gte=0"`
	CapitulationThreshold float64 `yaml:"capitulation_threshold"`
	EuphoriaThreshold     float64 `yaml:"euphoria_threshold"`
}

// DefaultScoringConfig returns the production defaults.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		RetentionThreshold:    20.0,
		DistributionThreshold: 80.0,
		MomentumWindow:        30,
		MomentumWeight:        1.0,
		MaxPriceChangePct:     100.0,
		LTHWeight:             0.0,
		LookbackWindow:        365 * 2,
		MVRVWeight:            0.6,
		SOPRWeight:            0.4,
		CapitulationThreshold: 0.95,
		EuphoriaThreshold:     4.0,
	}
}
