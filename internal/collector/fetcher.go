package collector

import (
	"context"

	"TimingTerminal/internal/model"
)

// Provider supplies the raw series the scorers consume.
//
// AuxiliarySeries and OnChainSeries may return empty slices when the source
// has no such data; the pipeline then falls back to price momentum.
type Provider interface {
	PriceSeries(ctx context.Context) ([]model.SeriesPoint, error)
	AuxiliarySeries(ctx context.Context) ([]model.SeriesPoint, error)
	OnChainSeries(ctx context.Context) (sopr, mvrv []model.SeriesPoint, err error)
	Name() string
}

// Snapshot holds every series of one acquisition.
type Snapshot struct {
	Price     []model.SeriesPoint
	Auxiliary []model.SeriesPoint
	SOPR      []model.SeriesPoint
	MVRV      []model.SeriesPoint
}

// SnapshotProvider is implemented by providers that can return all series
// from a single download of each upstream source. The Collector prefers it
// so one run never mixes two snapshots of the same chart.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}
