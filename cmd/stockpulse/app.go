package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"StockPulse/internal/collector"
	"StockPulse/internal/config"
	"StockPulse/internal/metrics"
	"StockPulse/internal/model"
	"StockPulse/internal/store"

	"github.com/rs/zerolog"
)

// app holds the components shared by every command.
type app struct {
	cfg       *config.Config
	logger    *zerolog.Logger
	store     store.Store
	metrics   *metrics.Metrics
	collector *collector.Collector
}

// newLogger builds the process logger from the log config.
func newLogger(level string, pretty bool) (*zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	var logger zerolog.Logger
	if pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	logger = logger.Level(lvl).With().Timestamp().Logger()
	return &logger, nil
}

// newFetcher picks the market-data provider.
func newFetcher(cfg *config.Config, loc *time.Location) collector.Fetcher {
	switch cfg.DataSource.Provider {
	case config.ProviderFinanceGo:
		return collector.NewFinanceGoFetcher(loc)
	case config.ProviderMock:
		today := model.Date(time.Now(), loc)
		tables := make(map[string]*model.RawTable, len(cfg.Symbols))
		for i, s := range cfg.Symbols {
			tables[s.Ticker] = collector.GenerateMockTable(s.Ticker, today, cfg.DataSource.LookbackDays, 100*float64(i+1))
		}
		return &collector.MockFetcher{Tables: tables}
	default:
		return collector.NewYahooFetcher(cfg.DataSource.BaseURL, cfg.Proxy, cfg.DataSource.Timeout)
	}
}

// newApp wires the store, metrics and collector.
func newApp(cfg *config.Config, logger *zerolog.Logger) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	if dir := filepath.Dir(cfg.Database.SQLitePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	st, err := store.NewSQLiteStore(cfg.Database.SQLitePath, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	m := metrics.NewMetrics()
	fetcher := newFetcher(cfg, loc)
	logger.Info().Str("provider", fetcher.Name()).Int("symbols", len(cfg.Symbols)).Msg("data source ready")

	col, err := collector.NewCollector(collector.Config{
		Fetcher:      fetcher,
		Store:        st,
		Registry:     cfg.Symbols,
		LookbackDays: cfg.DataSource.LookbackDays,
		FetchTimeout: cfg.DataSource.Timeout,
		Location:     loc,
		Metrics:      m,
		Logger:       logger,
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, store: st, metrics: m, collector: col}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error().Err(err).Msg("close store")
	}
}
