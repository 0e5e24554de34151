package store

import (
	"context"
	"time"

	"StockPulse/internal/model"
)

// Store persists symbols and their daily bars.
type Store interface {
	// FindSymbol returns the symbol for ticker, or nil if it is not stored.
	FindSymbol(ctx context.Context, ticker string) (*model.Symbol, error)
	CreateSymbol(ctx context.Context, ticker, name string) (*model.Symbol, error)
	UpdateSymbol(ctx context.Context, sym *model.Symbol) error
	AllSymbols(ctx context.Context) ([]model.Symbol, error)

	// LatestBarDate returns the most recent stored bar date; ok is false with no bars.
	LatestBarDate(ctx context.Context, symbolID int64) (date time.Time, ok bool, err error)
	// InsertBar stores a new bar. An existing (symbol, date) yields *model.DuplicateBarError
	// and leaves the stored bar untouched.
	InsertBar(ctx context.Context, bar *model.DailyBar) error
	// RecentBars returns up to limit bars with the latest dates, newest first when
	// mostRecentFirst is set and oldest first otherwise.
	RecentBars(ctx context.Context, symbolID int64, limit int, mostRecentFirst bool) ([]model.DailyBar, error)
	AllBars(ctx context.Context, symbolID int64, ascending bool) ([]model.DailyBar, error)

	// WithTx runs fn as one unit of work: all of its writes commit together, or none do
	// if fn returns an error.
	WithTx(ctx context.Context, fn func(tx Store) error) error
	Close() error
}
