package collector

import (
	"context"
	"time"

	"TimingTerminal/internal/model"
)

// FixtureProvider returns fixed in-memory series for development and tests.
type FixtureProvider struct {
	Price     []model.SeriesPoint
	Auxiliary []model.SeriesPoint
	SOPR      []model.SeriesPoint
	MVRV      []model.SeriesPoint
}

// NewFixtureProvider returns the default four-day fixture: a small BTC price
// path and an auxiliary series proportional to price. It has no on-chain data.
func NewFixtureProvider() *FixtureProvider {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	prices := []float64{40000, 42000, 45000, 43000}

	f := &FixtureProvider{}
	for i, p := range prices {
		ts := start.AddDate(0, 0, i)
		f.Price = append(f.Price, model.SeriesPoint{Timestamp: ts, Value: p})
		f.Auxiliary = append(f.Auxiliary, model.SeriesPoint{Timestamp: ts, Value: p * 0.0005})
	}
	return f
}

func (f *FixtureProvider) Name() string { return "fixture" }

func (f *FixtureProvider) PriceSeries(_ context.Context) ([]model.SeriesPoint, error) {
	return clonePoints(f.Price), nil
}

func (f *FixtureProvider) AuxiliarySeries(_ context.Context) ([]model.SeriesPoint, error) {
	return clonePoints(f.Auxiliary), nil
}

func (f *FixtureProvider) OnChainSeries(_ context.Context) ([]model.SeriesPoint, []model.SeriesPoint, error) {
	return clonePoints(f.SOPR), clonePoints(f.MVRV), nil
}

func clonePoints(in []model.SeriesPoint) []model.SeriesPoint {
	if in == nil {
		return nil
	}
	out := make([]model.SeriesPoint, len(in))
	copy(out, in)
	return out
}
