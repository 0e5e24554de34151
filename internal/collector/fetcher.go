package collector

import (
	"context"
	"time"

	"StockPulse/internal/model"
)

// Fetcher defines the interface for fetching daily market data.
type Fetcher interface {
	// FetchDailyBars returns the provider's raw daily table for [start, end).
	// An empty table with a nil error means the provider has nothing for the range.
	FetchDailyBars(ctx context.Context, ticker string, start, end time.Time) (*model.RawTable, error)
	Name() string
}
