package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"TimingTerminal/internal/collector"
	"TimingTerminal/internal/config"
	"TimingTerminal/internal/logger"
	"TimingTerminal/internal/metrics"
	"TimingTerminal/internal/notifier"
	"TimingTerminal/internal/pipeline"
	"TimingTerminal/internal/recorder"
)

// app holds the wired collaborators shared by the subcommands.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	ledger   recorder.Ledger
	store    *recorder.Store
	metrics  *metrics.Metrics
	telegram *notifier.TelegramNotifier
	alerter  notifier.Alerter
	pipeline *pipeline.Pipeline
}

func loadConfig() (*config.Config, error) {
	path := configFile
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = config.DefaultPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newProvider(cfg *config.Config, log zerolog.Logger) collector.Provider {
	if cfg.Provider.Source == "chartinspect" {
		return collector.NewChartInspectProvider(cfg.Provider.SOPRURL, cfg.Provider.MVRVURL, cfg.Proxy, cfg.Provider.RPS, log)
	}
	return collector.NewFixtureProvider()
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ledger, err := recorder.OpenLedger(cfg.History.Path, log)
	if err != nil {
		return nil, fmt.Errorf("open history ledger: %w", err)
	}

	a := &app{
		cfg:     cfg,
		log:     log,
		ledger:  ledger,
		store:   recorder.NewStore(ledger, log.With().Str("component", "history").Logger()),
		metrics: metrics.New(),
		alerter: notifier.NoopAlerter{},
	}
	if cfg.TelegramEnabled() {
		a.telegram = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy,
			log.With().Str("component", "telegram").Logger())
		a.alerter = a.telegram
	}

	provider := newProvider(cfg, log.With().Str("component", "provider").Logger())
	log.Info().Str("provider", provider.Name()).Str("history", cfg.History.Path).Msg("timingterminal starting")

	opts := pipeline.Options{
		Mode:              cfg.Strategy.Mode,
		PostFilter:        cfg.Strategy.PostFilter,
		FilterWindow:      cfg.Strategy.FilterWindow,
		Scoring:           cfg.Scoring,
		Quality:           cfg.Quality,
		HistoryWindowDays: cfg.History.WindowDays,
		OutputPath:        cfg.Output.Path,
		PriceKey:          cfg.Output.PriceKey,
		ScoreKey:          cfg.Output.ScoreKey,
		MetricsTextfile:   cfg.Metrics.TextfilePath,
	}
	a.pipeline = pipeline.New(collector.NewCollector(provider, log), a.store, a.alerter, a.metrics, opts, log)
	return a, nil
}

func (a *app) Close() {
	if err := a.ledger.Close(); err != nil {
		a.log.Warn().Err(err).Msg("close history ledger")
	}
}
