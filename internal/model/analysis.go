package model

import "time"

// Trend labels.
const (
	TrendUp   = "Uptrend"
	TrendDown = "Downtrend"
)

// Volume analysis labels.
const (
	VolumeNormal        = "Normal"
	VolumeUnusuallyHigh = "Unusually high"
)

// Analysis is a read-only snapshot derived from the most recent bars of a symbol.
type Analysis struct {
	Symbol         string   `json:"symbol"`
	Price          float64  `json:"price"`
	SMA20          *float64 `json:"sma_20"`
	AboveSMA       *bool    `json:"above_sma"`
	Trend          string   `json:"trend"`
	VolumeAnalysis string   `json:"volume_analysis"`
	Volatility     *float64 `json:"volatility"`
	AvgVolume      *float64 `json:"avg_volume,omitempty"`
}

// Outcome is the result of ingesting one symbol in a cycle.
type Outcome string

const (
	OutcomeIngested    Outcome = "ingested"
	OutcomeUpToDate    Outcome = "up_to_date"
	OutcomeEmpty       Outcome = "empty"
	OutcomeSchemaError Outcome = "schema_error"
	OutcomeFetchError  Outcome = "fetch_error"
	OutcomeFailed      Outcome = "failed"
)

// SymbolOutcome summarizes one symbol's ingestion.
type SymbolOutcome struct {
	Ticker     string  `json:"symbol"`
	Outcome    Outcome `json:"outcome"`
	Inserted   int     `json:"inserted"`
	Duplicates int     `json:"duplicates"`
	Error      string  `json:"error,omitempty"`
}

// CycleReport summarizes one ingestion cycle.
type CycleReport struct {
	ID         string          `json:"cycle_id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Symbols    []SymbolOutcome `json:"symbols"`
}

// Count returns how many symbols ended with outcome o.
func (r *CycleReport) Count(o Outcome) int {
	n := 0
	for _, s := range r.Symbols {
		if s.Outcome == o {
			n++
		}
	}
	return n
}

// Inserted returns the total number of bars inserted in the cycle.
func (r *CycleReport) Inserted() int {
	n := 0
	for _, s := range r.Symbols {
		n += s.Inserted
	}
	return n
}
