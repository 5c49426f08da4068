package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"TimingTerminal/internal/model"
	"TimingTerminal/internal/quality"
)

// DefaultPath is used when no --config flag or CONFIG_PATH is given.
const DefaultPath = "configs/config.yaml"

// CronParser accepts the six-field (with seconds) cron expressions the scheduler uses.
var CronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Config holds all application configuration.
type Config struct {
	Scoring model.ScoringConfig `yaml:"scoring"`
	Quality quality.Config      `yaml:"quality"`

	Strategy struct {
		Mode         string `yaml:"mode" validate:"oneof=auto lsd momentum"`
		PostFilter   string `yaml:"post_filter" validate:"oneof=none sma ema dema"`
		FilterWindow int    `yaml:"filter_window" validate:"gte=1"`
	} `yaml:"strategy"`
	History struct {
		Path       string `yaml:"path" validate:"required"`
		WindowDays int    `yaml:"window_days" validate:"gte=0"`
	} `yaml:"history"`
	Output struct {
		Path     string `yaml:"path" validate:"required"`
		PriceKey string `yaml:"price_key" validate:"required"`
		ScoreKey string `yaml:"score_key" validate:"required,nefield=PriceKey"`
	} `yaml:"output"`
	Provider struct {
		Source  string  `yaml:"source" validate:"oneof=fixture chartinspect"`
		SOPRURL string  `yaml:"sopr_url" validate:"omitempty,url"`
		MVRVURL string  `yaml:"mvrv_url" validate:"omitempty,url"`
		RPS     float64 `yaml:"rps" validate:"gte=0"`
	} `yaml:"provider"`
	Schedule struct {
		Cron       string `yaml:"cron" validate:"required"`
		RunOnStart bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Metrics struct {
		TextfilePath string `yaml:"textfile_path"`
	} `yaml:"metrics"`
	Server struct {
		Addr string `yaml:"addr" validate:"required"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" validate:"oneof=debug info warn warning error"`
		Format string `yaml:"format" validate:"oneof=json console pretty"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{
		Scoring: model.DefaultScoringConfig(),
		Quality: quality.DefaultConfig(),
	}
	cfg.applyDefaults()
	return cfg
}

// Load reads an optional .env file, the YAML file at path, then applies
// environment variable overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	loadDotEnv(path)

	cfg := &Config{
		Scoring: model.DefaultScoringConfig(),
		Quality: quality.DefaultConfig(),
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// loadDotEnv loads .env from the working directory or next to the config
// file. Variables already set in the environment win.
func loadDotEnv(cfgPath string) {
	for _, p := range []string{".env", filepath.Join(filepath.Dir(cfgPath), ".env")} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}

func (c *Config) applyEnv() error {
	floats := []struct {
		key string
		dst *float64
	}{
		{"TT_RETENTION_THRESHOLD", &c.Scoring.RetentionThreshold},
		{"TT_DISTRIBUTION_THRESHOLD", &c.Scoring.DistributionThreshold},
		{"TT_MOMENTUM_WEIGHT", &c.Scoring.MomentumWeight},
		{"TT_MAX_PRICE_CHANGE_PCT", &c.Scoring.MaxPriceChangePct},
		{"TT_LTH_WEIGHT", &c.Scoring.LTHWeight},
	}
	for _, f := range floats {
		if v := os.Getenv(f.key); v != "" {
			n, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", f.key, v, err)
			}
			*f.dst = n
		}
	}
	if v := os.Getenv("TT_MOMENTUM_WINDOW"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid TT_MOMENTUM_WINDOW %q: %w", v, err)
		}
		c.Scoring.MomentumWindow = n
	}

	strs := []struct {
		key string
		dst *string
	}{
		{"TT_SCORING_MODE", &c.Strategy.Mode},
		{"TT_HISTORY_PATH", &c.History.Path},
		{"TT_OUTPUT_PATH", &c.Output.Path},
		{"TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken},
		{"TELEGRAM_CHAT_ID", &c.Telegram.ChatID},
		{"HTTPS_PROXY", &c.Proxy},
		{"CRON_SCHEDULE", &c.Schedule.Cron},
	}
	for _, s := range strs {
		if v := os.Getenv(s.key); v != "" {
			*s.dst = v
		}
	}
	if os.Getenv("RUN_ON_START") == "true" {
		c.Schedule.RunOnStart = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Strategy.Mode == "" {
		c.Strategy.Mode = "auto"
	}
	if c.Strategy.PostFilter == "" {
		c.Strategy.PostFilter = "none"
	}
	if c.Strategy.FilterWindow == 0 {
		c.Strategy.FilterWindow = 7
	}
	if c.History.Path == "" {
		c.History.Path = "data/lsd_history.csv"
	}
	if c.Output.Path == "" {
		c.Output.Path = "pipeline/out/chart-data.json"
	}
	if c.Output.PriceKey == "" {
		c.Output.PriceKey = "btcPrice"
	}
	if c.Output.ScoreKey == "" {
		c.Output.ScoreKey = "lsd"
	}
	if c.Provider.Source == "" {
		c.Provider.Source = "fixture"
	}
	if c.Provider.RPS == 0 {
		c.Provider.RPS = 1
	}
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = "0 0 1 * * *"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	if _, err := CronParser.Parse(c.Schedule.Cron); err != nil {
		return fmt.Errorf("schedule.cron %q: %w", c.Schedule.Cron, err)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// TelegramEnabled reports whether zone alerts should be sent.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
