package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"TimingTerminal/internal/model"
)

// Metrics holds the pipeline's Prometheus collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	LatestScore  prometheus.Gauge
	LatestPrice  prometheus.Gauge
	Zone         *prometheus.GaugeVec
	Quality      *prometheus.GaugeVec
	Runs         *prometheus.CounterVec
	LedgerPoints prometheus.Gauge
	LastSuccess  prometheus.Gauge
	StepDuration *prometheus.HistogramVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		LatestScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "timingterminal_latest_score",
			Help: "Most recent phase score (0-100)",
		}),
		LatestPrice: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "timingterminal_latest_reference_price",
			Help: "Reference price at the most recent score",
		}),
		Zone: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "timingterminal_zone",
			Help: "1 for the zone of the most recent score, 0 otherwise",
		}, []string{"zone"}),
		Quality: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "timingterminal_data_quality",
			Help: "1 for the data quality of the last artifact, 0 otherwise",
		}, []string{"quality"}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timingterminal_runs_total",
			Help: "Pipeline runs by strategy and result",
		}, []string{"strategy", "result"}),
		LedgerPoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "timingterminal_ledger_points",
			Help: "Number of records in the history ledger after the last merge",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "timingterminal_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run",
		}),
		StepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "timingterminal_step_duration_seconds",
			Help:    "Duration of each pipeline step in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"step"}),
	}
	m.Registry.MustRegister(
		m.LatestScore, m.LatestPrice, m.Zone, m.Quality,
		m.Runs, m.LedgerPoints, m.LastSuccess, m.StepDuration,
	)
	return m
}

// ObserveStep records how long a step took.
func (m *Metrics) ObserveStep(step string, start time.Time) {
	m.StepDuration.WithLabelValues(step).Observe(time.Since(start).Seconds())
}

// RunFailed counts a failed run.
func (m *Metrics) RunFailed(strategy string) {
	m.Runs.WithLabelValues(strategy, "error").Inc()
}

// RunSucceeded publishes the outcome of a successful run.
func (m *Metrics) RunSucceeded(strategy string, latest *model.ScorePoint, q model.DataQuality, ledgerPoints int, now time.Time) {
	m.Runs.WithLabelValues(strategy, "ok").Inc()
	m.LedgerPoints.Set(float64(ledgerPoints))
	m.LastSuccess.Set(float64(now.Unix()))

	for _, z := range []model.Zone{model.ZoneRetention, model.ZoneNeutral, model.ZoneDistribution} {
		v := 0.0
		if latest != nil && latest.Zone == z {
			v = 1
		}
		m.Zone.WithLabelValues(string(z)).Set(v)
	}
	for _, dq := range []model.DataQuality{model.QualityComplete, model.QualityPartial, model.QualityStale} {
		v := 0.0
		if dq == q {
			v = 1
		}
		m.Quality.WithLabelValues(string(dq)).Set(v)
	}
	if latest != nil {
		m.LatestScore.Set(latest.Score)
		m.LatestPrice.Set(latest.ReferencePrice)
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// WriteTextfile dumps the registry for the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
