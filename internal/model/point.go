package model

import "time"

// Zone is the categorical regime a phase score falls into.
type Zone string

const (
	ZoneRetention    Zone = "retention"
	ZoneNeutral      Zone = "neutral"
	ZoneDistribution Zone = "distribution"
)

// ScorePoint is a single timestamped phase score with its reference price.
// Zone is derived from Score by the zone classifier and never set directly.
type ScorePoint struct {
	Timestamp      time.Time
	ReferencePrice float64
	Score          float64
	Zone           Zone
}

// HistoryRecord is one persisted ledger row.
type HistoryRecord struct {
	Timestamp      time.Time `db:"timestamp"`
	Score          float64   `db:"score"`
	ReferencePrice float64   `db:"reference_price"`
}

// Record strips the zone from a point for persistence. The timestamp is
// truncated to whole seconds, the resolution of the published chart axis,
// so two points in the same second share one ledger row.
func (p ScorePoint) Record() HistoryRecord {
	return HistoryRecord{
		Timestamp:      p.Timestamp.UTC().Truncate(time.Second),
		Score:          p.Score,
		ReferencePrice: p.ReferencePrice,
	}
}

// DataQuality is the trust verdict attached to an exported artifact.
type DataQuality string

const (
	QualityComplete DataQuality = "complete"
	QualityPartial  DataQuality = "partial"
	QualityStale    DataQuality = "stale"
)
