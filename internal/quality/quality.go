package quality

import (
	"time"

	"TimingTerminal/internal/model"
)

// Config holds the data-quality thresholds.
type Config struct {
	ExpectedPointCount int `yaml:"expected_point_count" validate:"gte=0"`
	MaxAgeHours        int `yaml:"max_age_hours" validate:"gt=0"`
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{ExpectedPointCount: 4, MaxAgeHours: 24}
}

// Evaluate decides whether points are complete, partial or stale as of now.
//
// Staleness is checked before the point count: a small but fresh set is
// partial, a large but old set is stale.
func Evaluate(points []model.ScorePoint, now time.Time, cfg Config) model.DataQuality {
	if len(points) == 0 {
		return model.QualityStale
	}

	latest := points[0].Timestamp
	for _, p := range points[1:] {
		if p.Timestamp.After(latest) {
			latest = p.Timestamp
		}
	}

	maxAge := time.Duration(cfg.MaxAgeHours) * time.Hour
	if now.Sub(latest) > maxAge {
		return model.QualityStale
	}
	if len(points) < cfg.ExpectedPointCount {
		return model.QualityPartial
	}
	return model.QualityComplete
}
