package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"StockPulse/internal/calculator"
	"StockPulse/internal/metrics"
	"StockPulse/internal/model"
	"StockPulse/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultFetchTimeout bounds a single provider call.
const DefaultFetchTimeout = 30 * time.Second

// Config represents the configuration of the collector.
type Config struct {
	// Fetcher supplies raw daily tables.
	Fetcher Fetcher
	// Store persists symbols and bars.
	Store store.Store
	// Registry is the ordered set of symbols ingested each cycle.
	Registry []model.Listing
	// LookbackDays is how far back the first fetch for a symbol reaches.
	LookbackDays int
	// FetchTimeout bounds each provider call.
	FetchTimeout time.Duration
	// Location decides which calendar day "today" is.
	Location *time.Location
	// Now returns the current time.
	Now func() time.Time
	// Metrics records cycle statistics, optional.
	Metrics *metrics.Metrics
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	if cfg.Fetcher == nil {
		errs = errors.Join(errs, fmt.Errorf("fetcher cannot be nil"))
	}
	if cfg.Store == nil {
		errs = errors.Join(errs, fmt.Errorf("store cannot be nil"))
	}
	if len(cfg.Registry) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no symbols provided for the registry"))
	}
	seen := make(map[string]bool, len(cfg.Registry))
	for _, l := range cfg.Registry {
		if strings.TrimSpace(l.Ticker) == "" {
			errs = errors.Join(errs, fmt.Errorf("registry ticker cannot be an empty string"))
			continue
		}
		if seen[l.Ticker] {
			errs = errors.Join(errs, fmt.Errorf("registry ticker %s listed twice", l.Ticker))
		}
		seen[l.Ticker] = true
	}
	if cfg.LookbackDays < 0 {
		errs = errors.Join(errs, fmt.Errorf("lookback days cannot be negative"))
	}
	if cfg.FetchTimeout < 0 {
		errs = errors.Join(errs, fmt.Errorf("fetch timeout cannot be negative"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Collector runs ingestion cycles: for every registry symbol it plans, fetches,
// normalizes and stores the missing daily bars.
type Collector struct {
	cfg   Config
	names map[string]string
	// cycleMtx serializes cycles.
	cycleMtx sync.Mutex
}

// NewCollector initializes a new collector.
func NewCollector(cfg Config) (*Collector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating collector config: %w", err)
	}
	if cfg.LookbackDays == 0 {
		cfg.LookbackDays = DefaultLookbackDays
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	names := make(map[string]string, len(cfg.Registry))
	for _, l := range cfg.Registry {
		names[l.Ticker] = l.CompanyName
	}
	cfg.Metrics.SetSymbols(len(cfg.Registry))

	return &Collector{cfg: cfg, names: names}, nil
}

// Registry returns the ordered symbol registry.
func (c *Collector) Registry() []model.Listing {
	return append([]model.Listing(nil), c.cfg.Registry...)
}

// today returns the current calendar date in the configured location.
func (c *Collector) today() time.Time {
	return model.Date(c.cfg.Now(), c.cfg.Location)
}

// displayName is the name a symbol should carry when its stored name is blank.
func (c *Collector) displayName(ticker string) string {
	if name := strings.TrimSpace(c.names[ticker]); name != "" {
		return name
	}
	return ticker
}

// RunCycle ingests every registry symbol in order. Per-symbol failures are recorded
// in the report and never abort the cycle; an error is returned only when the cycle
// itself could not run.
func (c *Collector) RunCycle(ctx context.Context) (*model.CycleReport, error) {
	c.cycleMtx.Lock()
	defer c.cycleMtx.Unlock()

	report := &model.CycleReport{
		ID:        uuid.NewString(),
		StartedAt: c.cfg.Now().UTC(),
	}
	log := c.cfg.Logger.With().Str("cycle", report.ID).Logger()
	log.Info().Int("symbols", len(c.cfg.Registry)).Msg("ingestion cycle started")

	healed, err := c.healNames(ctx)
	if err != nil {
		c.cfg.Metrics.CycleFailed()
		return nil, fmt.Errorf("heal symbol names: %w", err)
	}
	if healed > 0 {
		log.Info().Int("healed", healed).Msg("backfilled blank company names")
	}

	for _, listing := range c.cfg.Registry {
		if err := ctx.Err(); err != nil {
			c.cfg.Metrics.CycleFailed()
			return nil, fmt.Errorf("ingestion cycle interrupted: %w", err)
		}
		out := c.ingestSymbol(ctx, listing, &log)
		report.Symbols = append(report.Symbols, out)
	}

	report.FinishedAt = c.cfg.Now().UTC()
	c.cfg.Metrics.ObserveCycle(report)

	log.Info().
		Int("inserted", report.Inserted()).
		Int("ingested", report.Count(model.OutcomeIngested)).
		Int("up_to_date", report.Count(model.OutcomeUpToDate)).
		Int("empty", report.Count(model.OutcomeEmpty)).
		Int("failed", len(report.Symbols)-report.Count(model.OutcomeIngested)-
			report.Count(model.OutcomeUpToDate)-report.Count(model.OutcomeEmpty)).
		Dur("took", report.FinishedAt.Sub(report.StartedAt)).
		Msg("ingestion cycle finished")

	return report, nil
}

// HealNames backfills blank company names of every stored symbol and returns how
// many were updated.
func (c *Collector) HealNames(ctx context.Context) (int, error) {
	c.cycleMtx.Lock()
	defer c.cycleMtx.Unlock()
	return c.healNames(ctx)
}

func (c *Collector) healNames(ctx context.Context) (int, error) {
	symbols, err := c.cfg.Store.AllSymbols(ctx)
	if err != nil {
		return 0, err
	}

	healed := 0
	for i := range symbols {
		sym := &symbols[i]
		if strings.TrimSpace(sym.CompanyName) != "" {
			continue
		}
		sym.CompanyName = c.displayName(sym.Ticker)
		if err := c.cfg.Store.UpdateSymbol(ctx, sym); err != nil {
			return healed, err
		}
		healed++
	}
	return healed, nil
}

// resolveSymbol finds or creates the stored symbol for a registry listing.
func (c *Collector) resolveSymbol(ctx context.Context, listing model.Listing) (*model.Symbol, error) {
	sym, err := c.cfg.Store.FindSymbol(ctx, listing.Ticker)
	if err != nil {
		return nil, err
	}
	if sym == nil {
		return c.cfg.Store.CreateSymbol(ctx, listing.Ticker, c.displayName(listing.Ticker))
	}
	if strings.TrimSpace(sym.CompanyName) == "" {
		sym.CompanyName = c.displayName(listing.Ticker)
		if err := c.cfg.Store.UpdateSymbol(ctx, sym); err != nil {
			return nil, err
		}
	}
	return sym, nil
}

// fetch calls the provider with a bounded timeout. Every failure is a *model.FetchError.
func (c *Collector) fetch(ctx context.Context, ticker string, plan Plan) (*model.RawTable, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
	defer cancel()

	provider := c.cfg.Fetcher.Name()
	began := time.Now()
	table, err := c.cfg.Fetcher.FetchDailyBars(fetchCtx, ticker, plan.Start, plan.End)
	c.cfg.Metrics.ObserveFetch(provider, time.Since(began))

	if err == nil && fetchCtx.Err() != nil {
		err = fetchCtx.Err()
	}
	if err != nil {
		var fetchErr *model.FetchError
		if errors.As(err, &fetchErr) {
			return nil, err
		}
		return nil, &model.FetchError{Ticker: ticker, Provider: provider, Err: err}
	}
	return table, nil
}

// ingestSymbol runs one symbol through plan, fetch, normalize, indicators and store.
func (c *Collector) ingestSymbol(ctx context.Context, listing model.Listing, logger *zerolog.Logger) (out model.SymbolOutcome) {
	ticker := listing.Ticker
	log := logger.With().Str("symbol", ticker).Logger()
	out.Ticker = ticker

	fail := func(outcome model.Outcome, err error) model.SymbolOutcome {
		out.Outcome = outcome
		out.Error = err.Error()
		log.Error().Err(err).Str("outcome", string(outcome)).Msg("symbol skipped")
		return out
	}

	defer func() {
		if r := recover(); r != nil {
			out.Inserted, out.Duplicates = 0, 0
			fail(model.OutcomeFailed, fmt.Errorf("panic: %v", r))
		}
	}()

	sym, err := c.resolveSymbol(ctx, listing)
	if err != nil {
		return fail(model.OutcomeFailed, fmt.Errorf("resolve symbol: %w", err))
	}

	latest, hasLatest, err := c.cfg.Store.LatestBarDate(ctx, sym.ID)
	if err != nil {
		return fail(model.OutcomeFailed, fmt.Errorf("latest bar date: %w", err))
	}
	today := c.today()
	plan := PlanFetch(latest, hasLatest, today, c.cfg.LookbackDays)
	if plan.Empty() {
		out.Outcome = model.OutcomeUpToDate
		log.Debug().Msg("already up to date")
		return out
	}

	table, err := c.fetch(ctx, ticker, plan)
	if err != nil {
		return fail(model.OutcomeFetchError, err)
	}
	if table.Len() == 0 {
		out.Outcome = model.OutcomeEmpty
		log.Info().
			Str("start", plan.Start.Format(model.DateLayout)).
			Str("end", plan.End.Format(model.DateLayout)).
			Msg("no data returned")
		return out
	}

	frame, err := Normalize(table, ticker)
	if err != nil {
		return fail(model.OutcomeSchemaError, err)
	}
	rows, skipped, err := Rows(frame, ticker)
	if err != nil {
		return fail(model.OutcomeSchemaError, err)
	}
	if skipped > 0 {
		c.cfg.Metrics.SkippedRows(skipped)
		log.Warn().Int("skipped", skipped).Msg("dropped rows with invalid values")
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	kept := rows[:0]
	for _, r := range rows {
		if !r.Date.After(today) {
			kept = append(kept, r)
		}
	}
	rows = kept
	if len(rows) == 0 {
		out.Outcome = model.OutcomeEmpty
		log.Info().Msg("no usable rows returned")
		return out
	}

	bars := calculator.ComputeIndicators(rows)
	inserted, duplicates := 0, 0
	err = c.cfg.Store.WithTx(ctx, func(tx store.Store) error {
		for i := range bars {
			bars[i].SymbolID = sym.ID
			err := tx.InsertBar(ctx, &bars[i])
			var dup *model.DuplicateBarError
			if errors.As(err, &dup) {
				duplicates++
				log.Debug().Str("date", bars[i].Date.Format(model.DateLayout)).Msg("bar already stored")
				continue
			}
			if err != nil {
				return err
			}
			inserted++
		}
		if inserted == 0 {
			return nil
		}

		price := bars[len(bars)-1].Close
		now := c.cfg.Now().UTC()
		sym.LatestPrice = &price
		sym.LastUpdated = &now
		return tx.UpdateSymbol(ctx, sym)
	})
	if err != nil {
		return fail(model.OutcomeFailed, fmt.Errorf("store bars: %w", err))
	}

	out.Inserted, out.Duplicates = inserted, duplicates
	out.Outcome = model.OutcomeIngested
	if inserted == 0 {
		out.Outcome = model.OutcomeUpToDate
	}
	log.Info().Int("inserted", inserted).Int("duplicates", duplicates).Msg("symbol ingested")
	return out
}
