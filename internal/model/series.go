package model

import (
	"math"
	"time"
)

// SeriesPoint is a single provider observation.
type SeriesPoint struct {
	Timestamp time.Time
	Value     float64
}

// Inputs is the aligned per-timestamp input table handed to a scorer.
// SOPR, MVRV and Auxiliary are nil when the provider has no such series;
// when present they have the same length as Timestamps.
type Inputs struct {
	Timestamps []time.Time
	Price      []float64
	SOPR       []float64
	MVRV       []float64
	Auxiliary  []float64
}

// Len returns the number of aligned rows.
func (in *Inputs) Len() int { return len(in.Timestamps) }

// HasOnChain reports whether both on-chain series are available.
func (in *Inputs) HasOnChain() bool {
	return len(in.SOPR) > 0 && len(in.MVRV) > 0
}

// Undefined is the marker for values that cannot be computed yet,
// e.g. a rolling window without enough history.
func Undefined() float64 { return math.NaN() }

// IsUndefined reports whether v carries the undefined marker.
func IsUndefined(v float64) bool { return math.IsNaN(v) }
