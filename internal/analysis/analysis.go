// Package analysis summarises a score history against its reference price:
// how much time each zone covers, what the price did after zone entries and
// where the score peaked and bottomed.
package analysis

import (
	"math"
	"sort"
	"time"

	"TimingTerminal/internal/model"
)

// Options controls the forward-return and extremes sections of a Report.
type Options struct {
	// Horizons are the forward windows in days.
	Horizons []int
	// MaxEntries caps how many zone points are used as entries.
	MaxEntries int
	// TopN is the number of highest and lowest scores listed.
	TopN int
}

// DefaultOptions returns 90/180/365-day horizons, 20 entries and top 10.
func DefaultOptions() Options {
	return Options{
		Horizons:   []int{90, 180, 365},
		MaxEntries: 20,
		TopN:       10,
	}
}

// ZoneStats describes the points that fall into one zone.
// Price fields are NaN when the zone is empty.
type ZoneStats struct {
	Zone        model.Zone
	Days        int
	Share       float64 // percent of all usable points
	AvgPrice    float64
	MedianPrice float64
	MinPrice    float64
	MaxPrice    float64
}

// ForwardReturn is the percent price change HorizonDays after entering Zone.
// Avg, Median and WinRate are NaN when no entry had a point far enough ahead.
type ForwardReturn struct {
	Zone        model.Zone
	HorizonDays int
	Samples     int
	Avg         float64
	Median      float64
	WinRate     float64 // percent of samples with a positive return
}

// Report bundles every section for one history window.
type Report struct {
	Points  int
	From    time.Time
	To      time.Time
	Zones   []ZoneStats
	Returns []ForwardReturn
	Top     []model.ScorePoint
	Bottom  []model.ScorePoint
}

var zoneOrder = []model.Zone{model.ZoneRetention, model.ZoneNeutral, model.ZoneDistribution}

// Analyze builds a Report. Points need not be sorted; points without a
// finite score or price are ignored.
func Analyze(points []model.ScorePoint, opts Options) Report {
	pts := usable(points)
	r := Report{Points: len(pts)}
	if len(pts) == 0 {
		return r
	}
	r.From, r.To = pts[0].Timestamp, pts[len(pts)-1].Timestamp
	r.Zones = ZoneStatistics(pts)
	for _, z := range []model.Zone{model.ZoneRetention, model.ZoneDistribution} {
		r.Returns = append(r.Returns, ForwardReturns(pts, z, opts.Horizons, opts.MaxEntries)...)
	}
	r.Top, r.Bottom = Extremes(pts, opts.TopN)
	return r
}

// ZoneStatistics returns one entry per zone in retention, neutral,
// distribution order, including empty zones.
func ZoneStatistics(points []model.ScorePoint) []ZoneStats {
	pts := usable(points)
	prices := make(map[model.Zone][]float64, len(zoneOrder))
	for _, p := range pts {
		prices[p.Zone] = append(prices[p.Zone], p.ReferencePrice)
	}

	out := make([]ZoneStats, 0, len(zoneOrder))
	for _, z := range zoneOrder {
		v := prices[z]
		s := ZoneStats{
			Zone:        z,
			Days:        len(v),
			Share:       math.NaN(),
			AvgPrice:    math.NaN(),
			MedianPrice: math.NaN(),
			MinPrice:    math.NaN(),
			MaxPrice:    math.NaN(),
		}
		if len(pts) > 0 {
			s.Share = float64(len(v)) / float64(len(pts)) * 100
		}
		if len(v) > 0 {
			sorted := append([]float64(nil), v...)
			sort.Float64s(sorted)
			s.AvgPrice = mean(sorted)
			s.MedianPrice = median(sorted)
			s.MinPrice = sorted[0]
			s.MaxPrice = sorted[len(sorted)-1]
		}
		out = append(out, s)
	}
	return out
}

// ForwardReturns measures, for the first maxEntries points of zone, the
// return to the first point at least h days later, for each horizon h.
// maxEntries <= 0 uses every zone point.
func ForwardReturns(points []model.ScorePoint, zone model.Zone, horizons []int, maxEntries int) []ForwardReturn {
	pts := usable(points)
	var entries []model.ScorePoint
	for _, p := range pts {
		if p.Zone != zone {
			continue
		}
		entries = append(entries, p)
		if maxEntries > 0 && len(entries) == maxEntries {
			break
		}
	}

	out := make([]ForwardReturn, 0, len(horizons))
	for _, h := range horizons {
		var returns []float64
		for _, e := range entries {
			if e.ReferencePrice <= 0 {
				continue
			}
			target := e.Timestamp.Add(time.Duration(h) * 24 * time.Hour)
			i := sort.Search(len(pts), func(i int) bool { return !pts[i].Timestamp.Before(target) })
			if i == len(pts) {
				continue
			}
			returns = append(returns, (pts[i].ReferencePrice-e.ReferencePrice)/e.ReferencePrice*100)
		}
		out = append(out, summarise(zone, h, returns))
	}
	return out
}

func summarise(zone model.Zone, horizon int, returns []float64) ForwardReturn {
	fr := ForwardReturn{
		Zone:        zone,
		HorizonDays: horizon,
		Samples:     len(returns),
		Avg:         math.NaN(),
		Median:      math.NaN(),
		WinRate:     math.NaN(),
	}
	if len(returns) == 0 {
		return fr
	}
	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)
	wins := 0
	for _, r := range sorted {
		if r > 0 {
			wins++
		}
	}
	fr.Avg = mean(sorted)
	// upper middle element for even counts
	fr.Median = sorted[len(sorted)/2]
	fr.WinRate = float64(wins) / float64(len(sorted)) * 100
	return fr
}

// Extremes returns the n highest and n lowest scoring points. Ties keep
// chronological order.
func Extremes(points []model.ScorePoint, n int) (top, bottom []model.ScorePoint) {
	pts := usable(points)
	if n <= 0 || len(pts) == 0 {
		return nil, nil
	}
	if n > len(pts) {
		n = len(pts)
	}

	desc := append([]model.ScorePoint(nil), pts...)
	sort.SliceStable(desc, func(i, j int) bool { return desc[i].Score > desc[j].Score })
	asc := append([]model.ScorePoint(nil), pts...)
	sort.SliceStable(asc, func(i, j int) bool { return asc[i].Score < asc[j].Score })
	return desc[:n], asc[:n]
}

// Nearest returns the point closest to t and its signed distance from t.
// On a tie the earlier point wins.
func Nearest(points []model.ScorePoint, t time.Time) (model.ScorePoint, time.Duration, bool) {
	pts := usable(points)
	if len(pts) == 0 {
		return model.ScorePoint{}, 0, false
	}
	best, bestDist := 0, absDuration(pts[0].Timestamp.Sub(t))
	for i := 1; i < len(pts); i++ {
		if d := absDuration(pts[i].Timestamp.Sub(t)); d < bestDist {
			best, bestDist = i, d
		}
	}
	return pts[best], pts[best].Timestamp.Sub(t), true
}

// usable returns the finite points sorted by timestamp.
func usable(points []model.ScorePoint) []model.ScorePoint {
	out := make([]model.ScorePoint, 0, len(points))
	for _, p := range points {
		if math.IsNaN(p.Score) || math.IsInf(p.Score, 0) || math.IsNaN(p.ReferencePrice) || math.IsInf(p.ReferencePrice, 0) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

func mean(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

// median averages the two middle values of an even-length sorted slice.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
