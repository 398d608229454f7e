// Package config loads application configuration from YAML, .env and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"MarketScreener/internal/collector"
	"MarketScreener/internal/model"
	"MarketScreener/internal/screener"
	"MarketScreener/internal/universe"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Scan struct {
		Profile     string  `yaml:"profile"`
		Lookback    string  `yaml:"lookback"`
		RSIPeriod   int     `yaml:"rsi_period"`
		MAWindows   []int   `yaml:"ma_windows"`
		MinHistory  int     `yaml:"min_history"`
		SortBy      string  `yaml:"sort_by"`
		Concurrency int     `yaml:"concurrency"`
		Oversold    float64 `yaml:"oversold"`
		Overbought  float64 `yaml:"overbought"`
	} `yaml:"scan"`
	Provider struct {
		BaseURL       string        `yaml:"base_url"`
		APIKey        string        `yaml:"api_key"`
		Timeout       time.Duration `yaml:"timeout"`
		RatePerSecond float64       `yaml:"rate_per_second"`
		Burst         int           `yaml:"burst"`
		Retries       int           `yaml:"retries"`
	} `yaml:"provider"`
	Universe struct {
		Source       string        `yaml:"source"`
		URL          string        `yaml:"url"`
		SymbolColumn string        `yaml:"symbol_column"`
		TTL          time.Duration `yaml:"ttl"`
		SQLitePath   string        `yaml:"sqlite_path"`
		RedisURL     string        `yaml:"redis_url"`
	} `yaml:"universe"`
	Schedule struct {
		ScanCron   string `yaml:"scan_cron"`
		RunOnStart bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
		TopN     int    `yaml:"top_n"`
	} `yaml:"telegram"`
	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads .env (if present) and config from a YAML file, then applies
// environment variable overrides and defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Scan.Profile, "SCAN_PROFILE")
	setString(&c.Scan.Lookback, "SCAN_LOOKBACK")
	setString(&c.Scan.SortBy, "SCAN_SORT_BY")
	setInt(&c.Scan.Concurrency, "SCAN_CONCURRENCY")
	setString(&c.Provider.BaseURL, "PROVIDER_BASE_URL")
	setString(&c.Provider.APIKey, "PROVIDER_API_KEY")
	setString(&c.Universe.Source, "UNIVERSE_SOURCE")
	setString(&c.Universe.URL, "UNIVERSE_URL")
	setString(&c.Universe.SQLitePath, "SQLITE_PATH")
	setString(&c.Universe.RedisURL, "REDIS_URL")
	setString(&c.Schedule.ScanCron, "CRON_SCAN")
	setString(&c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setString(&c.Telegram.ChatID, "TELEGRAM_CHAT_ID")
	setString(&c.Kafka.Topic, "KAFKA_TOPIC")
	setString(&c.HTTP.Addr, "HTTP_ADDR")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Proxy, "HTTPS_PROXY")
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("RUN_ON_START"); v != "" {
		c.Schedule.RunOnStart = v == "true"
	}
}

func (c *Config) applyDefaults() {
	if c.Scan.Profile == "" {
		c.Scan.Profile = string(screener.ProfileRSI)
	}
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = 30 * time.Second
	}
	if c.Provider.RatePerSecond == 0 {
		c.Provider.RatePerSecond = 5
	}
	if c.Provider.Burst == 0 {
		c.Provider.Burst = 1
	}
	if c.Provider.Retries == 0 {
		c.Provider.Retries = 2
	}
	if c.Universe.Source == "" {
		c.Universe.Source = "static"
	}
	if c.Universe.URL == "" {
		c.Universe.URL = universe.DefaultURL
	}
	if c.Universe.SymbolColumn == "" {
		c.Universe.SymbolColumn = "Symbol"
	}
	if c.Universe.TTL == 0 {
		c.Universe.TTL = universe.DefaultTTL
	}
	if c.Schedule.ScanCron == "" {
		c.Schedule.ScanCron = "0 30 21 * * 1-5"
	}
	if c.Telegram.TopN == 0 {
		c.Telegram.TopN = 25
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "screener.scans"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// ScanOptions builds pipeline options from the profile and explicit overrides.
func (c *Config) ScanOptions() (screener.Options, error) {
	opts, err := screener.ProfileOptions(screener.Profile(c.Scan.Profile))
	if err != nil {
		return screener.Options{}, err
	}
	if c.Scan.Lookback != "" {
		opts.Lookback = model.Lookback(c.Scan.Lookback)
	}
	if c.Scan.RSIPeriod != 0 {
		opts.RSIPeriod = c.Scan.RSIPeriod
	}
	if c.Scan.MAWindows != nil {
		opts.MAWindows = c.Scan.MAWindows
	}
	if c.Scan.MinHistory != 0 {
		opts.MinHistory = c.Scan.MinHistory
	}
	if c.Scan.SortBy != "" {
		opts.SortBy = model.SortKey(c.Scan.SortBy)
	}
	if c.Scan.Concurrency != 0 {
		opts.Concurrency = c.Scan.Concurrency
	}
	if c.Scan.Oversold != 0 {
		opts.Thresholds.Oversold = c.Scan.Oversold
	}
	if c.Scan.Overbought != 0 {
		opts.Thresholds.Overbought = c.Scan.Overbought
	}
	opts = opts.Normalize()
	return opts, opts.Validate()
}

// ProviderOptions returns the price provider settings.
func (c *Config) ProviderOptions() collector.Options {
	return collector.Options{
		BaseURL:       c.Provider.BaseURL,
		Proxy:         c.Proxy,
		Timeout:       c.Provider.Timeout,
		RatePerSecond: c.Provider.RatePerSecond,
		Burst:         c.Provider.Burst,
		Retries:       c.Provider.Retries,
	}
}

// Validate checks the fields needed by a one-shot scan. Serve mode adds
// ValidateServe.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.ScanOptions(); err != nil {
		errs = append(errs, fmt.Errorf("scan: %w", err))
	}
	switch c.Universe.Source {
	case "static", "html", "csv":
	default:
		errs = append(errs, fmt.Errorf("universe.source must be static, html or csv, got %q", c.Universe.Source))
	}
	if c.Provider.RatePerSecond < 0 {
		errs = append(errs, fmt.Errorf("provider.rate_per_second must not be negative"))
	}
	return errors.Join(errs...)
}

// ValidateServe checks the fields required by the long-running service.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	if c.Schedule.ScanCron == "" {
		return fmt.Errorf("schedule.scan_cron is required")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
