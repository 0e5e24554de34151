package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"StockPulse/internal/model"

	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog"
)

func day(n int) time.Time {
	return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func bar(symbolID int64, n int, close float64) *model.DailyBar {
	return &model.DailyBar{
		SymbolID: symbolID,
		Row: model.Row{
			Date: day(n), Open: close, High: close + 1, Low: close - 1, Close: close, Volume: 100,
		},
	}
}

// stores returns a fresh instance of every Store implementation.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	logger := zerolog.Nop()
	sqlite, err := NewSQLiteStore(":memory:", &logger)
	assert.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestSymbols(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			sym, err := s.FindSymbol(ctx, "TCS.NS")
			assert.NoError(t, err)
			assert.True(t, sym == nil)

			created, err := s.CreateSymbol(ctx, "TCS.NS", "")
			assert.NoError(t, err)
			assert.Equal(t, created.Ticker, "TCS.NS")
			assert.True(t, created.LatestPrice == nil)
			assert.True(t, created.LastUpdated == nil)

			// Ensure a ticker is unique.
			_, err = s.CreateSymbol(ctx, "TCS.NS", "Tata Consultancy Services")
			assert.Error(t, err)

			price := 3890.5
			updated := time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)
			created.CompanyName = "Tata Consultancy Services"
			created.LatestPrice = &price
			created.LastUpdated = &updated
			assert.NoError(t, s.UpdateSymbol(ctx, created))

			found, err := s.FindSymbol(ctx, "TCS.NS")
			assert.NoError(t, err)
			assert.Equal(t, found.ID, created.ID)
			assert.Equal(t, found.CompanyName, "Tata Consultancy Services")
			assert.Equal(t, *found.LatestPrice, price)
			assert.True(t, found.LastUpdated.Equal(updated))

			_, err = s.CreateSymbol(ctx, "INFY.NS", "Infosys")
			assert.NoError(t, err)
			all, err := s.AllSymbols(ctx)
			assert.NoError(t, err)
			assert.Equal(t, len(all), 2)
			assert.Equal(t, all[0].Ticker, "TCS.NS")
			assert.Equal(t, all[1].Ticker, "INFY.NS")
		})
	}
}

func TestBars(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			sym, err := s.CreateSymbol(ctx, "INFY.NS", "Infosys")
			assert.NoError(t, err)

			_, ok, err := s.LatestBarDate(ctx, sym.ID)
			assert.NoError(t, err)
			assert.False(t, ok)

			// Insert out of order to ensure reads are ordered by date.
			for _, n := range []int{2, 0, 1, 3} {
				assert.NoError(t, s.InsertBar(ctx, bar(sym.ID, n, 100+float64(n))))
			}

			latest, ok, err := s.LatestBarDate(ctx, sym.ID)
			assert.NoError(t, err)
			assert.True(t, ok)
			assert.True(t, latest.Equal(day(3)))

			asc, err := s.AllBars(ctx, sym.ID, true)
			assert.NoError(t, err)
			assert.Equal(t, len(asc), 4)
			for i, b := range asc {
				assert.True(t, b.Date.Equal(day(i)))
				assert.Equal(t, b.Close, 100+float64(i))
			}

			desc, err := s.AllBars(ctx, sym.ID, false)
			assert.NoError(t, err)
			assert.True(t, desc[0].Date.Equal(day(3)))

			recent, err := s.RecentBars(ctx, sym.ID, 2, true)
			assert.NoError(t, err)
			assert.Equal(t, len(recent), 2)
			assert.True(t, recent[0].Date.Equal(day(3)))
			assert.True(t, recent[1].Date.Equal(day(2)))

			recent, err = s.RecentBars(ctx, sym.ID, 3, false)
			assert.NoError(t, err)
			assert.Equal(t, len(recent), 3)
			assert.True(t, recent[0].Date.Equal(day(1)))
			assert.True(t, recent[2].Date.Equal(day(3)))
		})
	}
}

func TestInsertDuplicateBar(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			sym, err := s.CreateSymbol(ctx, "SBIN.NS", "State Bank of India")
			assert.NoError(t, err)

			sma := 801.25
			first := bar(sym.ID, 0, 800)
			first.SMA20 = &sma
			assert.NoError(t, s.InsertBar(ctx, first))

			// Ensure a second bar for the same date is rejected and the stored one kept.
			err = s.InsertBar(ctx, bar(sym.ID, 0, 999))
			var dup *model.DuplicateBarError
			assert.True(t, errors.As(err, &dup))
			assert.True(t, dup.Date.Equal(day(0)))

			bars, err := s.AllBars(ctx, sym.ID, true)
			assert.NoError(t, err)
			assert.Equal(t, len(bars), 1)
			assert.Equal(t, bars[0].Close, 800.0)
			assert.Equal(t, *bars[0].SMA20, sma)
			assert.True(t, bars[0].DailyReturn == nil)
		})
	}
}

func TestWithTxPanic(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sym, err := s.CreateSymbol(ctx, "TCS.NS", "TCS")
			assert.NoError(t, err)

			func() {
				defer func() { assert.NotNil(t, recover()) }()
				_ = s.WithTx(ctx, func(tx Store) error {
					assert.NoError(t, tx.InsertBar(ctx, bar(sym.ID, 0, 3900)))
					panic("unexpected provider payload")
				})
			}()

			// The store stays usable and the panicked unit left nothing behind.
			ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			bars, err := s.AllBars(ctx, sym.ID, true)
			assert.NoError(t, err)
			assert.Equal(t, len(bars), 0)
			assert.NoError(t, s.InsertBar(ctx, bar(sym.ID, 0, 3900)))
		})
	}
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			sym, err := s.CreateSymbol(ctx, "ITC.NS", "ITC")
			assert.NoError(t, err)

			// Ensure a failing unit of work leaves nothing behind.
			boom := errors.New("boom")
			err = s.WithTx(ctx, func(tx Store) error {
				assert.NoError(t, tx.InsertBar(ctx, bar(sym.ID, 0, 400)))
				price := 400.0
				sym.LatestPrice = &price
				assert.NoError(t, tx.UpdateSymbol(ctx, sym))
				return boom
			})
			assert.True(t, errors.Is(err, boom))

			bars, err := s.AllBars(ctx, sym.ID, true)
			assert.NoError(t, err)
			assert.Equal(t, len(bars), 0)
			found, err := s.FindSymbol(ctx, "ITC.NS")
			assert.NoError(t, err)
			assert.True(t, found.LatestPrice == nil)

			// Ensure a successful unit of work commits every write.
			err = s.WithTx(ctx, func(tx Store) error {
				if err := tx.InsertBar(ctx, bar(sym.ID, 0, 400)); err != nil {
					return err
				}
				return tx.InsertBar(ctx, bar(sym.ID, 1, 401))
			})
			assert.NoError(t, err)

			bars, err = s.AllBars(ctx, sym.ID, true)
			assert.NoError(t, err)
			assert.Equal(t, len(bars), 2)
		})
	}
}
