package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"StockPulse/internal/model"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Supported market-data providers.
const (
	ProviderYahoo     = "yahoo"
	ProviderFinanceGo = "financego"
	ProviderMock      = "mock"
)

// DefaultSymbols is the registry used when the config file lists none.
var DefaultSymbols = []model.Listing{
	{Ticker: "RELIANCE.NS", CompanyName: "Reliance Industries"},
	{Ticker: "TCS.NS", CompanyName: "Tata Consultancy Services"},
	{Ticker: "HDFCBANK.NS", CompanyName: "HDFC Bank"},
	{Ticker: "INFY.NS", CompanyName: "Infosys"},
	{Ticker: "ICICIBANK.NS", CompanyName: "ICICI Bank"},
	{Ticker: "HINDUNILVR.NS", CompanyName: "Hindustan Unilever"},
	{Ticker: "ITC.NS", CompanyName: "ITC"},
	{Ticker: "SBIN.NS", CompanyName: "State Bank of India"},
	{Ticker: "BHARTIARTL.NS", CompanyName: "Bharti Airtel"},
	{Ticker: "KOTAKBANK.NS", CompanyName: "Kotak Mahindra Bank"},
	{Ticker: "LT.NS", CompanyName: "Larsen & Toubro"},
	{Ticker: "AXISBANK.NS", CompanyName: "Axis Bank"},
}

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	DataSource struct {
		Provider     string        `yaml:"provider"`
		BaseURL      string        `yaml:"base_url"`
		Timeout      time.Duration `yaml:"timeout"`
		LookbackDays int           `yaml:"lookback_days"`
		Timezone     string        `yaml:"timezone"`
	} `yaml:"data_source"`
	Schedule struct {
		IngestCron string `yaml:"ingest_cron"`
		RunOnStart bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Proxy   string          `yaml:"proxy"`
	Symbols []model.Listing `yaml:"symbols"`
}

// Load reads config from a YAML file, then applies .env and environment variable
// overrides and fills defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
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

	// Variables already set in the environment win over .env entries.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("STOCKPULSE_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("STOCKPULSE_PROVIDER"); v != "" {
		c.DataSource.Provider = v
	}
	if v := os.Getenv("STOCKPULSE_TIMEZONE"); v != "" {
		c.DataSource.Timezone = v
	}
	if v := os.Getenv("STOCKPULSE_FETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse STOCKPULSE_FETCH_TIMEOUT: %w", err)
		}
		c.DataSource.Timeout = d
	}
	if v := os.Getenv("STOCKPULSE_LOOKBACK_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse STOCKPULSE_LOOKBACK_DAYS: %w", err)
		}
		c.DataSource.LookbackDays = n
	}
	if v := os.Getenv("STOCKPULSE_INGEST_CRON"); v != "" {
		c.Schedule.IngestCron = v
	}
	if v := os.Getenv("RUN_ON_START"); v != "" {
		c.Schedule.RunOnStart = v == "true"
	}
	if v := os.Getenv("STOCKPULSE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("STOCKPULSE_SYMBOLS"); v != "" {
		c.Symbols = parseSymbols(v)
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	return nil
}

// parseSymbols reads a comma separated list of TICKER or TICKER=Company Name entries.
func parseSymbols(v string) []model.Listing {
	var out []model.Listing
	for _, entry := range strings.Split(v, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		ticker, name, _ := strings.Cut(entry, "=")
		out = append(out, model.Listing{Ticker: strings.TrimSpace(ticker), CompanyName: strings.TrimSpace(name)})
	}
	return out
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = ProviderYahoo
	}
	if c.DataSource.Timeout == 0 {
		c.DataSource.Timeout = 30 * time.Second
	}
	if c.DataSource.LookbackDays == 0 {
		c.DataSource.LookbackDays = 90
	}
	if c.DataSource.Timezone == "" {
		c.DataSource.Timezone = "Asia/Kolkata"
	}
	if c.Schedule.IngestCron == "" {
		// Weekdays after the NSE close.
		c.Schedule.IngestCron = "0 30 16 * * 1-5"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/stockpulse.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if len(c.Symbols) == 0 {
		c.Symbols = append([]model.Listing(nil), DefaultSymbols...)
	}
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs error

	switch c.DataSource.Provider {
	case ProviderYahoo, ProviderFinanceGo, ProviderMock:
	default:
		errs = errors.Join(errs, fmt.Errorf("data_source.provider %q is not supported", c.DataSource.Provider))
	}
	if c.DataSource.Timeout <= 0 {
		errs = errors.Join(errs, fmt.Errorf("data_source.timeout must be positive"))
	}
	if c.DataSource.LookbackDays <= 0 {
		errs = errors.Join(errs, fmt.Errorf("data_source.lookback_days must be positive"))
	}
	if _, err := time.LoadLocation(c.DataSource.Timezone); err != nil {
		errs = errors.Join(errs, fmt.Errorf("data_source.timezone: %w", err))
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.Schedule.IngestCron); err != nil {
		errs = errors.Join(errs, fmt.Errorf("schedule.ingest_cron: %w", err))
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		errs = errors.Join(errs, fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together"))
	}
	seen := make(map[string]bool, len(c.Symbols))
	for _, s := range c.Symbols {
		if s.Ticker == "" {
			errs = errors.Join(errs, fmt.Errorf("symbols: ticker cannot be empty"))
			continue
		}
		if seen[s.Ticker] {
			errs = errors.Join(errs, fmt.Errorf("symbols: %s listed twice", s.Ticker))
		}
		seen[s.Ticker] = true
	}

	return errs
}

// Location returns the configured market time zone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.DataSource.Timezone)
}

// TelegramEnabled reports whether notifications are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
