package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"TimingTerminal/internal/artifact"
	"TimingTerminal/internal/collector"
	"TimingTerminal/internal/metrics"
	"TimingTerminal/internal/model"
	"TimingTerminal/internal/notifier"
	"TimingTerminal/internal/quality"
	"TimingTerminal/internal/recorder"
	"TimingTerminal/internal/strategy"
)

// Options parametrizes a pipeline run. Fixed for the lifetime of a Pipeline.
type Options struct {
	Mode         string
	PostFilter   string
	FilterWindow int

	Scoring model.ScoringConfig
	Quality quality.Config

	// HistoryWindowDays limits the published series; 0 publishes the whole ledger.
	HistoryWindowDays int

	OutputPath string
	PriceKey   string
	ScoreKey   string

	// MetricsTextfile, when set, receives a Prometheus text dump after each run.
	MetricsTextfile string
}

// Result describes one completed run.
type Result struct {
	RunID       string
	Strategy    string
	Scored      int
	LedgerSize  int
	Points      []model.ScorePoint
	Latest      *model.ScorePoint
	Quality     model.DataQuality
	GeneratedAt time.Time
	OutputPath  string
}

// Pipeline runs collect, score, store and publish.
type Pipeline struct {
	Collector *collector.Collector
	Store     *recorder.Store
	Alerter   notifier.Alerter
	Metrics   *metrics.Metrics
	Options   Options
	Log       zerolog.Logger
	Now       func() time.Time

	mu          sync.Mutex
	last        *Result
	lastAlerted time.Time
}

// New creates a Pipeline. A nil alerter disables zone alerts.
func New(col *collector.Collector, store *recorder.Store, alerter notifier.Alerter, m *metrics.Metrics, opts Options, log zerolog.Logger) *Pipeline {
	if alerter == nil {
		alerter = notifier.NoopAlerter{}
	}
	if m == nil {
		m = metrics.New()
	}
	if opts.PriceKey == "" {
		opts.PriceKey = artifact.DefaultPriceKey
	}
	if opts.ScoreKey == "" {
		opts.ScoreKey = artifact.DefaultScoreKey
	}
	if opts.OutputPath == "" {
		opts.OutputPath = artifact.DefaultPath
	}
	return &Pipeline{
		Collector: col,
		Store:     store,
		Alerter:   alerter,
		Metrics:   m,
		Options:   opts,
		Log:       log,
		Now:       time.Now,
	}
}

// Last returns the result of the most recent successful run, or nil.
func (p *Pipeline) Last() *Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Run executes one pipeline run to completion.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	log := p.Log.With().Str("run_id", runID).Logger()
	now := p.Now().UTC()
	log.Info().Str("mode", p.Options.Mode).Msg("pipeline run started")

	name := "unknown"
	res, err := p.run(ctx, log, runID, now, &name)
	if err != nil {
		p.Metrics.RunFailed(name)
		log.Error().Err(err).Str("strategy", name).Msg("pipeline run failed")
		return nil, err
	}

	p.Metrics.RunSucceeded(name, res.Latest, res.Quality, res.LedgerSize, now)
	if p.Options.MetricsTextfile != "" {
		if err := p.Metrics.WriteTextfile(p.Options.MetricsTextfile); err != nil {
			log.Warn().Err(err).Str("path", p.Options.MetricsTextfile).Msg("write metrics textfile")
		}
	}
	p.alertOnZoneChange(ctx, log, res)

	p.mu.Lock()
	p.last = res
	p.mu.Unlock()

	ev := log.Info().
		Str("strategy", res.Strategy).
		Int("scored", res.Scored).
		Int("published", len(res.Points)).
		Int("ledger", res.LedgerSize).
		Str("quality", string(res.Quality))
	if res.Latest != nil {
		ev = ev.Float64("latest_score", res.Latest.Score).Str("zone", string(res.Latest.Zone))
	}
	ev.Msg("pipeline run finished")
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, log zerolog.Logger, runID string, now time.Time, name *string) (*Result, error) {
	opts := p.Options

	start := time.Now()
	in, err := p.Collector.Collect(ctx)
	p.Metrics.ObserveStep("collect", start)
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start = time.Now()
	scorer, err := strategy.Select(opts.Mode, in, opts.Scoring)
	if err != nil {
		return nil, fmt.Errorf("select strategy: %w", err)
	}
	*name = scorer.Name()
	scores, err := scorer.Score(in)
	if err != nil {
		return nil, fmt.Errorf("score %s: %w", scorer.Name(), err)
	}
	scores, err = strategy.PostFilter(scores, opts.PostFilter, opts.FilterWindow)
	if err != nil {
		return nil, err
	}

	base := make([]model.ScorePoint, 0, len(scores))
	defined := make([]float64, 0, len(scores))
	for i, s := range scores {
		if model.IsUndefined(s) {
			continue
		}
		base = append(base, model.ScorePoint{Timestamp: in.Timestamps[i], ReferencePrice: in.Price[i]})
		defined = append(defined, s)
	}
	points, err := strategy.Enrich(base, defined, opts.Scoring)
	if err != nil {
		return nil, fmt.Errorf("classify zones: %w", err)
	}
	p.Metrics.ObserveStep("score", start)
	log.Info().
		Str("strategy", scorer.Name()).
		Int("rows", in.Len()).
		Int("defined", len(points)).
		Msg("scores computed")

	start = time.Now()
	merged, err := p.Store.Merge(points)
	p.Metrics.ObserveStep("store", start)
	if err != nil {
		return nil, err
	}

	window := strategy.FromRecords(recorder.Trailing(merged, now, opts.HistoryWindowDays), opts.Scoring)
	q := quality.Evaluate(window, now, opts.Quality)

	start = time.Now()
	cd := artifact.Build(window, q, now, scorer.Name())
	cd.PriceKey = opts.PriceKey
	cd.ScoreKey = opts.ScoreKey
	if err := artifact.Write(opts.OutputPath, cd); err != nil {
		return nil, fmt.Errorf("write artifact: %w", err)
	}
	p.Metrics.ObserveStep("publish", start)

	res := &Result{
		RunID:       runID,
		Strategy:    scorer.Name(),
		Scored:      len(points),
		LedgerSize:  len(merged),
		Points:      window,
		Quality:     q,
		GeneratedAt: now,
		OutputPath:  opts.OutputPath,
	}
	if len(window) > 0 {
		latest := window[len(window)-1]
		res.Latest = &latest
	}
	return res, nil
}

// alertOnZoneChange notifies when the newest point sits in a different zone
// than the one before it. Each newest timestamp is alerted at most once per process.
func (p *Pipeline) alertOnZoneChange(ctx context.Context, log zerolog.Logger, res *Result) {
	n := len(res.Points)
	if n < 2 {
		return
	}
	prev, latest := res.Points[n-2], res.Points[n-1]
	if prev.Zone == latest.Zone {
		return
	}

	p.mu.Lock()
	if latest.Timestamp.Equal(p.lastAlerted) {
		p.mu.Unlock()
		return
	}
	p.lastAlerted = latest.Timestamp
	p.mu.Unlock()

	log.Info().Str("from", string(prev.Zone)).Str("to", string(latest.Zone)).Msg("zone changed")
	msg := notifier.FormatZoneChange(prev, latest, res.Quality, res.Strategy)
	if err := p.Alerter.Alert(ctx, msg); err != nil {
		log.Warn().Err(err).Msg("send zone alert")
	}
}
