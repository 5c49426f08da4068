package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TimingTerminal/internal/model"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func zoneOf(score float64) model.Zone {
	switch {
	case score < 20:
		return model.ZoneRetention
	case score > 80:
		return model.ZoneDistribution
	default:
		return model.ZoneNeutral
	}
}

func point(at time.Time, score, price float64) model.ScorePoint {
	return model.ScorePoint{Timestamp: at, Score: score, ReferencePrice: price, Zone: zoneOf(score)}
}

// history is one point per day: two retention, neutral, two distribution, neutral.
func history() []model.ScorePoint {
	scores := []float64{10, 15, 50, 85, 90, 50}
	prices := []float64{100, 200, 300, 400, 500, 250}
	pts := make([]model.ScorePoint, len(scores))
	for i := range scores {
		pts[i] = point(day0.AddDate(0, 0, i), scores[i], prices[i])
	}
	return pts
}

func TestZoneStatistics(t *testing.T) {
	stats := ZoneStatistics(history())
	require.Len(t, stats, 3)

	tests := []struct {
		zone                model.Zone
		days                int
		avg, med, min, max  float64
	}{
		{model.ZoneRetention, 2, 150, 150, 100, 200},
		{model.ZoneNeutral, 2, 275, 275, 250, 300},
		{model.ZoneDistribution, 2, 450, 450, 400, 500},
	}
	for i, tt := range tests {
		t.Run(string(tt.zone), func(t *testing.T) {
			s := stats[i]
			assert.Equal(t, tt.zone, s.Zone)
			assert.Equal(t, tt.days, s.Days)
			assert.InDelta(t, 100.0/3, s.Share, 1e-9)
			assert.InDelta(t, tt.avg, s.AvgPrice, 1e-9)
			assert.InDelta(t, tt.med, s.MedianPrice, 1e-9)
			assert.Equal(t, tt.min, s.MinPrice)
			assert.Equal(t, tt.max, s.MaxPrice)
		})
	}
}

func TestZoneStatistics_OddMedianAndEmptyZone(t *testing.T) {
	pts := []model.ScorePoint{
		point(day0, 5, 300),
		point(day0.AddDate(0, 0, 1), 6, 100),
		point(day0.AddDate(0, 0, 2), 7, 1000),
	}
	stats := ZoneStatistics(pts)

	assert.Equal(t, 300.0, stats[0].MedianPrice)
	assert.Equal(t, 100.0, stats[0].Share)
	assert.Equal(t, 0, stats[2].Days)
	assert.Equal(t, 0.0, stats[2].Share)
	assert.True(t, math.IsNaN(stats[2].AvgPrice))
	assert.True(t, math.IsNaN(stats[2].MedianPrice))
}

func TestForwardReturns(t *testing.T) {
	tests := []struct {
		name       string
		zone       model.Zone
		horizon    int
		maxEntries int
		samples    int
		avg        float64
		median     float64
		winRate    float64
	}{
		{"retention next day", model.ZoneRetention, 1, 20, 2, 75, 100, 100},
		{"retention three days", model.ZoneRetention, 3, 20, 2, 225, 300, 100},
		{"retention first entry only", model.ZoneRetention, 1, 1, 1, 100, 100, 100},
		{"distribution next day", model.ZoneDistribution, 1, 20, 2, -12.5, 25, 50},
		{"distribution unlimited entries", model.ZoneDistribution, 1, 0, 2, -12.5, 25, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ForwardReturns(history(), tt.zone, []int{tt.horizon}, tt.maxEntries)
			require.Len(t, got, 1)
			fr := got[0]
			assert.Equal(t, tt.zone, fr.Zone)
			assert.Equal(t, tt.horizon, fr.HorizonDays)
			assert.Equal(t, tt.samples, fr.Samples)
			assert.InDelta(t, tt.avg, fr.Avg, 1e-9)
			assert.InDelta(t, tt.median, fr.Median, 1e-9)
			assert.InDelta(t, tt.winRate, fr.WinRate, 1e-9)
		})
	}
}

func TestForwardReturns_HorizonBeyondHistory(t *testing.T) {
	got := ForwardReturns(history(), model.ZoneRetention, []int{90, 180, 365}, 20)
	require.Len(t, got, 3)
	for _, fr := range got {
		assert.Equal(t, 0, fr.Samples)
		assert.True(t, math.IsNaN(fr.Avg))
		assert.True(t, math.IsNaN(fr.Median))
		assert.True(t, math.IsNaN(fr.WinRate))
	}
}

func TestForwardReturns_ExitIsFirstPointAtOrAfterHorizon(t *testing.T) {
	entry := day0.Add(12 * time.Hour)
	pts := []model.ScorePoint{
		point(entry, 10, 100),
		point(day0.AddDate(0, 0, 1), 50, 999),                   // before entry+1d
		point(day0.AddDate(0, 0, 1).Add(18*time.Hour), 50, 150), // first at or after
		point(day0.AddDate(0, 0, 2), 50, 400),
	}
	got := ForwardReturns(pts, model.ZoneRetention, []int{1}, 20)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Samples)
	assert.InDelta(t, 50.0, got[0].Avg, 1e-9)
}

func TestForwardReturns_SkipsZeroEntryPrice(t *testing.T) {
	pts := []model.ScorePoint{
		point(day0, 10, 0),
		point(day0.AddDate(0, 0, 1), 10, 100),
		point(day0.AddDate(0, 0, 2), 50, 110),
	}
	got := ForwardReturns(pts, model.ZoneRetention, []int{1}, 20)
	assert.Equal(t, 1, got[0].Samples)
	assert.InDelta(t, 10.0, got[0].Avg, 1e-9)
}

func TestExtremes(t *testing.T) {
	top, bottom := Extremes(history(), 2)
	require.Len(t, top, 2)
	require.Len(t, bottom, 2)
	assert.Equal(t, []float64{90, 85}, []float64{top[0].Score, top[1].Score})
	assert.Equal(t, []float64{10, 15}, []float64{bottom[0].Score, bottom[1].Score})

	top, _ = Extremes(history(), 4)
	assert.Equal(t, day0.AddDate(0, 0, 2), top[2].Timestamp, "ties keep chronological order")
	assert.Equal(t, day0.AddDate(0, 0, 5), top[3].Timestamp)

	top, bottom = Extremes(history(), 100)
	assert.Len(t, top, 6)
	assert.Len(t, bottom, 6)

	top, bottom = Extremes(history(), 0)
	assert.Nil(t, top)
	assert.Nil(t, bottom)
}

func TestNearest(t *testing.T) {
	p, off, ok := Nearest(history(), day0.AddDate(0, 0, 2).Add(10*time.Hour))
	require.True(t, ok)
	assert.Equal(t, day0.AddDate(0, 0, 2), p.Timestamp)
	assert.Equal(t, -10*time.Hour, off)

	p, _, _ = Nearest(history(), day0.AddDate(0, 0, 2).Add(12*time.Hour))
	assert.Equal(t, day0.AddDate(0, 0, 2), p.Timestamp, "earlier point wins a tie")

	_, _, ok = Nearest(nil, day0)
	assert.False(t, ok)
}

func TestAnalyze(t *testing.T) {
	pts := history()
	// reversed input with one undefined score
	in := make([]model.ScorePoint, 0, len(pts)+1)
	for i := len(pts) - 1; i >= 0; i-- {
		in = append(in, pts[i])
	}
	in = append(in, point(day0.AddDate(0, 0, 10), math.NaN(), 100))

	r := Analyze(in, Options{Horizons: []int{1, 3}, MaxEntries: 20, TopN: 1})
	assert.Equal(t, 6, r.Points)
	assert.Equal(t, day0, r.From)
	assert.Equal(t, day0.AddDate(0, 0, 5), r.To)
	assert.Len(t, r.Zones, 3)
	require.Len(t, r.Returns, 4)
	assert.Equal(t, model.ZoneRetention, r.Returns[0].Zone)
	assert.Equal(t, model.ZoneDistribution, r.Returns[3].Zone)
	assert.Equal(t, 90.0, r.Top[0].Score)
	assert.Equal(t, 10.0, r.Bottom[0].Score)
}

func TestAnalyze_Empty(t *testing.T) {
	r := Analyze(nil, DefaultOptions())
	assert.Zero(t, r.Points)
	assert.Empty(t, r.Zones)
	assert.Empty(t, r.Returns)
}
