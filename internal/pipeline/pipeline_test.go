package pipeline

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TimingTerminal/internal/collector"
	"TimingTerminal/internal/metrics"
	"TimingTerminal/internal/model"
	"TimingTerminal/internal/quality"
	"TimingTerminal/internal/recorder"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type captureAlerter struct{ msgs []string }

func (c *captureAlerter) Alert(_ context.Context, text string) error {
	c.msgs = append(c.msgs, text)
	return nil
}

func series(values ...float64) []model.SeriesPoint {
	out := make([]model.SeriesPoint, len(values))
	for i, v := range values {
		out[i] = model.SeriesPoint{Timestamp: day0.AddDate(0, 0, i), Value: v}
	}
	return out
}

func newPipeline(t *testing.T, provider collector.Provider, ledger recorder.Ledger, alerter *captureAlerter) (*Pipeline, string) {
	t.Helper()
	out := filepath.Join(t.TempDir(), "out", "chart-data.json")
	opts := Options{
		Mode:         "auto",
		PostFilter:   "none",
		FilterWindow: 3,
		Scoring:      model.DefaultScoringConfig(),
		Quality:      quality.DefaultConfig(),
		OutputPath:   out,
	}
	log := zerolog.Nop()
	p := New(collector.NewCollector(provider, log), recorder.NewStore(ledger, log), alerter, metrics.New(), opts, log)
	p.Now = func() time.Time { return day0.AddDate(0, 0, 3).Add(12 * time.Hour) }
	return p, out
}

func TestRun_FixtureEndToEnd(t *testing.T) {
	ledger := recorder.NewMemoryLedger()
	p, out := newPipeline(t, collector.NewFixtureProvider(), ledger, &captureAlerter{})

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "momentum", res.Strategy)
	assert.Equal(t, 4, res.Scored)
	assert.Equal(t, 4, res.LedgerSize)
	assert.Equal(t, model.QualityComplete, res.Quality)
	require.NotNil(t, res.Latest)
	assert.InDelta(t, 53.75, res.Latest.Score, 1e-9)
	assert.Equal(t, model.ZoneNeutral, res.Latest.Zone)
	assert.Same(t, res, p.Last())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var payload struct {
		BTCPrice []struct {
			Time  int64   `json:"time"`
			Value float64 `json:"value"`
		} `json:"btcPrice"`
		LSD []struct {
			Time  int64   `json:"time"`
			Value float64 `json:"value"`
		} `json:"lsd"`
		LastUpdated string `json:"lastUpdated"`
		DataQuality string `json:"dataQuality"`
		Strategy    string `json:"strategy"`
	}
	require.NoError(t, json.Unmarshal(data, &payload))
	require.Len(t, payload.BTCPrice, 4)
	require.Len(t, payload.LSD, 4)
	assert.Equal(t, 40000.0, payload.BTCPrice[0].Value)
	assert.Equal(t, 50.0, payload.LSD[0].Value)
	assert.Equal(t, "2024-01-04T12:00:00Z", payload.LastUpdated)
	assert.Equal(t, "complete", payload.DataQuality)
	assert.Equal(t, "momentum", payload.Strategy)

	assert.Equal(t, 1.0, testutil.ToFloat64(p.Metrics.Runs.WithLabelValues("momentum", "ok")))
}

func TestRun_IsIdempotent(t *testing.T) {
	ledger := recorder.NewMemoryLedger()
	p, _ := newPipeline(t, collector.NewFixtureProvider(), ledger, &captureAlerter{})

	first, err := p.Run(context.Background())
	require.NoError(t, err)
	second, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.LedgerSize, second.LedgerSize)
	assert.Equal(t, first.Points, second.Points)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRun_StaleWhenOld(t *testing.T) {
	p, _ := newPipeline(t, collector.NewFixtureProvider(), recorder.NewMemoryLedger(), &captureAlerter{})
	p.Now = func() time.Time { return day0.AddDate(0, 1, 0) }

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.QualityStale, res.Quality)
}

func TestRun_HistoryWindowLimitsPublishedPoints(t *testing.T) {
	ledger := recorder.NewMemoryLedger()
	p, _ := newPipeline(t, collector.NewFixtureProvider(), ledger, &captureAlerter{})
	p.Options.HistoryWindowDays = 2

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, res.LedgerSize)
	assert.Len(t, res.Points, 2)
	assert.Equal(t, model.QualityPartial, res.Quality)
}

func TestRun_ZoneChangeAlertsOnce(t *testing.T) {
	provider := &collector.FixtureProvider{Price: series(100, 100, 300)}
	alerts := &captureAlerter{}
	p, _ := newPipeline(t, provider, recorder.NewMemoryLedger(), alerts)
	p.Now = func() time.Time { return day0.AddDate(0, 0, 2) }

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.ZoneDistribution, res.Latest.Zone)
	require.Len(t, alerts.msgs, 1)
	assert.Contains(t, alerts.msgs[0], "neutral → <b>distribution</b>")

	_, err = p.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, alerts.msgs, 1)
}

func TestRun_OnChainUsesLSD(t *testing.T) {
	n := 60
	price := make([]float64, n)
	sopr := make([]float64, n)
	mvrv := make([]float64, n)
	for i := 0; i < n; i++ {
		price[i] = 30000 + 500*float64(i)
		sopr[i] = 1 + 0.05*math.Sin(float64(i)/5)
		mvrv[i] = 1.5 + 0.5*math.Cos(float64(i)/7)
	}
	provider := &collector.FixtureProvider{Price: series(price...), SOPR: series(sopr...), MVRV: series(mvrv...)}
	p, _ := newPipeline(t, provider, recorder.NewMemoryLedger(), &captureAlerter{})
	p.Options.Scoring.LookbackWindow = 10
	p.Now = func() time.Time { return day0.AddDate(0, 0, n-1) }

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "lsd", res.Strategy)
	assert.Greater(t, res.Scored, 0)
	assert.LessOrEqual(t, res.Scored, n)
	for _, pt := range res.Points {
		assert.GreaterOrEqual(t, pt.Score, 0.0)
		assert.LessOrEqual(t, pt.Score, 100.0)
	}
}

func TestRun_PostFilterKeepsBounds(t *testing.T) {
	p, _ := newPipeline(t, collector.NewFixtureProvider(), recorder.NewMemoryLedger(), &captureAlerter{})
	p.Options.PostFilter = "ema"

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Points, 4)
	assert.Equal(t, 50.0, res.Points[0].Score)
	// adjusted EMA, alpha 0.5: (53.75 + 56.25/2 + 52.5/4 + 50/8) / 1.875
	assert.InDelta(t, 54.0, res.Points[3].Score, 1e-9)
}

func TestRun_SaveFailureIsReported(t *testing.T) {
	ledger := recorder.NewMemoryLedger()
	ledger.SaveErr = os.ErrPermission
	p, out := newPipeline(t, collector.NewFixtureProvider(), ledger, &captureAlerter{})

	_, err := p.Run(context.Background())
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.Nil(t, p.Last())
	assert.NoFileExists(t, out)
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Metrics.Runs.WithLabelValues("momentum", "error")))
}

func TestRun_LSDModeWithoutOnChainFails(t *testing.T) {
	p, _ := newPipeline(t, collector.NewFixtureProvider(), recorder.NewMemoryLedger(), &captureAlerter{})
	p.Options.Mode = "lsd"

	_, err := p.Run(context.Background())
	assert.ErrorContains(t, err, "requires sopr and mvrv")
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Metrics.Runs.WithLabelValues("unknown", "error")))
}
