package collector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"TimingTerminal/internal/model"
)

// ErrNoPriceData is returned when the provider has no reference price.
var ErrNoPriceData = errors.New("no price data")

// Collector fetches provider series and aligns them into scorer inputs.
type Collector struct {
	Provider Provider
	Log      zerolog.Logger
}

// NewCollector creates a new Collector.
func NewCollector(provider Provider, log zerolog.Logger) *Collector {
	return &Collector{Provider: provider, Log: log}
}

// Collect fetches all series and aligns them by timestamp.
//
// With both on-chain series present the rows are the SOPR timestamps that
// also have an MVRV value and a price. Otherwise the rows are the price
// timestamps, and the auxiliary series (if any) is aligned onto them with
// missing values left undefined.
func (c *Collector) Collect(ctx context.Context) (*model.Inputs, error) {
	snap, err := c.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if len(snap.Price) == 0 {
		return nil, ErrNoPriceData
	}

	if len(snap.SOPR) > 0 && len(snap.MVRV) > 0 {
		in := alignOnChain(snap.SOPR, snap.MVRV, snap.Price)
		c.Log.Info().
			Str("provider", c.Provider.Name()).
			Int("sopr", len(snap.SOPR)).Int("mvrv", len(snap.MVRV)).Int("price", len(snap.Price)).
			Int("aligned", in.Len()).
			Msg("on-chain inputs collected")
		return in, nil
	}

	in := alignPrice(snap.Price, snap.Auxiliary)
	c.Log.Info().
		Str("provider", c.Provider.Name()).
		Int("price", in.Len()).Int("auxiliary", len(snap.Auxiliary)).
		Msg("price inputs collected")
	return in, nil
}

// snapshot gathers all series once. The auxiliary series is only requested
// when the on-chain pair is incomplete.
func (c *Collector) snapshot(ctx context.Context) (*Snapshot, error) {
	if sp, ok := c.Provider.(SnapshotProvider); ok {
		snap, err := sp.Snapshot(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch snapshot: %w", err)
		}
		return snap, nil
	}

	snap := &Snapshot{}
	var err error
	snap.SOPR, snap.MVRV, err = c.Provider.OnChainSeries(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch on-chain series: %w", err)
	}
	snap.Price, err = c.Provider.PriceSeries(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch price series: %w", err)
	}
	if len(snap.Price) == 0 || (len(snap.SOPR) > 0 && len(snap.MVRV) > 0) {
		return snap, nil
	}
	snap.Auxiliary, err = c.Provider.AuxiliarySeries(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch auxiliary series: %w", err)
	}
	return snap, nil
}

func index(points []model.SeriesPoint) map[int64]float64 {
	m := make(map[int64]float64, len(points))
	for _, p := range points {
		if p.Timestamp.IsZero() {
			continue
		}
		m[p.Timestamp.UTC().UnixNano()] = p.Value
	}
	return m
}

func sortedKeys(m map[int64]float64) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func alignOnChain(sopr, mvrv, price []model.SeriesPoint) *model.Inputs {
	soprIdx, mvrvIdx, priceIdx := index(sopr), index(mvrv), index(price)
	in := &model.Inputs{}
	for _, k := range sortedKeys(soprIdx) {
		m, okM := mvrvIdx[k]
		p, okP := priceIdx[k]
		s := soprIdx[k]
		if !okM || !okP || math.IsNaN(s) || math.IsNaN(m) || math.IsNaN(p) {
			continue
		}
		in.Timestamps = append(in.Timestamps, time.Unix(0, k).UTC())
		in.SOPR = append(in.SOPR, s)
		in.MVRV = append(in.MVRV, m)
		in.Price = append(in.Price, p)
	}
	return in
}

func alignPrice(price, aux []model.SeriesPoint) *model.Inputs {
	priceIdx := index(price)
	in := &model.Inputs{}
	for _, k := range sortedKeys(priceIdx) {
		p := priceIdx[k]
		if math.IsNaN(p) {
			continue
		}
		in.Timestamps = append(in.Timestamps, time.Unix(0, k).UTC())
		in.Price = append(in.Price, p)
	}
	if len(aux) == 0 {
		return in
	}
	auxIdx := index(aux)
	in.Auxiliary = make([]float64, in.Len())
	for i, ts := range in.Timestamps {
		v, ok := auxIdx[ts.UnixNano()]
		if !ok {
			v = model.Undefined()
		}
		in.Auxiliary[i] = v
	}
	return in
}
