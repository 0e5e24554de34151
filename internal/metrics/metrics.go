package metrics

import (
	"net/http"
	"time"

	"StockPulse/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the ingestion pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	CyclesTotal    prometheus.Counter
	CycleErrors    prometheus.Counter
	CycleDuration  prometheus.Histogram
	OutcomesTotal  *prometheus.CounterVec // labels: outcome
	BarsInserted   prometheus.Counter
	DuplicateBars  prometheus.Counter
	RowsSkipped    prometheus.Counter
	FetchDuration  *prometheus.HistogramVec // labels: provider
	AnalysesServed prometheus.Counter
	SymbolsTracked prometheus.Gauge
}

// NewMetrics creates the collectors on a dedicated registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stockpulse_cycles_total",
			Help: "Ingestion cycles completed",
		}),
		CycleErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stockpulse_cycle_errors_total",
			Help: "Ingestion cycles aborted by an orchestration-level error",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stockpulse_cycle_duration_seconds",
			Help:    "Wall time of one ingestion cycle",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		OutcomesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockpulse_symbol_outcomes_total",
			Help: "Per-symbol ingestion outcomes",
		}, []string{"outcome"}),
		BarsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stockpulse_bars_inserted_total",
			Help: "Daily bars persisted",
		}),
		DuplicateBars: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stockpulse_duplicate_bars_total",
			Help: "Daily bars rejected because the date was already stored",
		}),
		RowsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stockpulse_rows_skipped_total",
			Help: "Provider rows dropped for invalid values",
		}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stockpulse_fetch_duration_seconds",
			Help:    "Provider fetch latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		AnalysesServed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stockpulse_analyses_total",
			Help: "Analysis summaries computed",
		}),
		SymbolsTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stockpulse_symbols_tracked",
			Help: "Symbols in the registry",
		}),
	}

	m.registry.MustRegister(
		m.CyclesTotal, m.CycleErrors, m.CycleDuration, m.OutcomesTotal,
		m.BarsInserted, m.DuplicateBars, m.RowsSkipped, m.FetchDuration,
		m.AnalysesServed, m.SymbolsTracked,
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveCycle(report *model.CycleReport) {
	if m == nil || report == nil {
		return
	}
	m.CyclesTotal.Inc()
	m.CycleDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
	for _, s := range report.Symbols {
		m.OutcomesTotal.WithLabelValues(string(s.Outcome)).Inc()
		m.BarsInserted.Add(float64(s.Inserted))
		m.DuplicateBars.Add(float64(s.Duplicates))
	}
}

func (m *Metrics) CycleFailed() {
	if m == nil {
		return
	}
	m.CycleErrors.Inc()
}

func (m *Metrics) ObserveFetch(provider string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.WithLabelValues(provider).Observe(d.Seconds())
}

func (m *Metrics) SkippedRows(n int) {
	if m == nil || n == 0 {
		return
	}
	m.RowsSkipped.Add(float64(n))
}

func (m *Metrics) AnalysisServed() {
	if m == nil {
		return
	}
	m.AnalysesServed.Inc()
}

func (m *Metrics) SetSymbols(n int) {
	if m == nil {
		return
	}
	m.SymbolsTracked.Set(float64(n))
}
