package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"StockPulse/internal/model"
)

// MemoryStore is an in-process Store for tests.
type MemoryStore struct {
	mu   *sync.Mutex
	data *memoryData
	inTx bool
}

type memoryData struct {
	nextSymbolID int64
	nextBarID    int64
	symbols      []model.Symbol
	bars         map[int64][]model.DailyBar // ascending by date
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mu:   &sync.Mutex{},
		data: &memoryData{bars: make(map[int64][]model.DailyBar)},
	}
}

func (m *MemoryStore) lock() func() {
	if m.inTx {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (d *memoryData) clone() *memoryData {
	c := &memoryData{
		nextSymbolID: d.nextSymbolID,
		nextBarID:    d.nextBarID,
		symbols:      append([]model.Symbol(nil), d.symbols...),
		bars:         make(map[int64][]model.DailyBar, len(d.bars)),
	}
	for id, bars := range d.bars {
		c.bars[id] = append([]model.DailyBar(nil), bars...)
	}
	return c
}

func (m *MemoryStore) FindSymbol(_ context.Context, ticker string) (*model.Symbol, error) {
	defer m.lock()()
	for _, s := range m.data.symbols {
		if s.Ticker == ticker {
			sym := s
			return &sym, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) CreateSymbol(_ context.Context, ticker, name string) (*model.Symbol, error) {
	defer m.lock()()
	for _, s := range m.data.symbols {
		if s.Ticker == ticker {
			return nil, &duplicateSymbolError{ticker: ticker}
		}
	}
	m.data.nextSymbolID++
	sym := model.Symbol{ID: m.data.nextSymbolID, Ticker: ticker, CompanyName: name}
	m.data.symbols = append(m.data.symbols, sym)
	return &sym, nil
}

type duplicateSymbolError struct{ ticker string }

func (e *duplicateSymbolError) Error() string { return "symbol " + e.ticker + " already exists" }

func (m *MemoryStore) UpdateSymbol(_ context.Context, sym *model.Symbol) error {
	defer m.lock()()
	for i := range m.data.symbols {
		if m.data.symbols[i].ID == sym.ID {
			m.data.symbols[i].CompanyName = sym.CompanyName
			m.data.symbols[i].LatestPrice = sym.LatestPrice
			m.data.symbols[i].LastUpdated = sym.LastUpdated
			return nil
		}
	}
	return nil
}

func (m *MemoryStore) AllSymbols(_ context.Context) ([]model.Symbol, error) {
	defer m.lock()()
	return append([]model.Symbol(nil), m.data.symbols...), nil
}

func (m *MemoryStore) LatestBarDate(_ context.Context, symbolID int64) (time.Time, bool, error) {
	defer m.lock()()
	bars := m.data.bars[symbolID]
	if len(bars) == 0 {
		return time.Time{}, false, nil
	}
	return bars[len(bars)-1].Date, true, nil
}

func (m *MemoryStore) InsertBar(_ context.Context, bar *model.DailyBar) error {
	defer m.lock()()
	bars := m.data.bars[bar.SymbolID]
	i := sort.Search(len(bars), func(i int) bool { return !bars[i].Date.Before(bar.Date) })
	if i < len(bars) && bars[i].Date.Equal(bar.Date) {
		return &model.DuplicateBarError{SymbolID: bar.SymbolID, Date: bar.Date}
	}
	m.data.nextBarID++
	bar.ID = m.data.nextBarID
	bars = append(bars, model.DailyBar{})
	copy(bars[i+1:], bars[i:])
	bars[i] = *bar
	m.data.bars[bar.SymbolID] = bars
	return nil
}

func (m *MemoryStore) RecentBars(_ context.Context, symbolID int64, limit int, mostRecentFirst bool) ([]model.DailyBar, error) {
	defer m.lock()()
	bars := m.data.bars[symbolID]
	if limit >= 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	out := append([]model.DailyBar(nil), bars...)
	if mostRecentFirst {
		reverse(out)
	}
	return out, nil
}

func (m *MemoryStore) AllBars(_ context.Context, symbolID int64, ascending bool) ([]model.DailyBar, error) {
	defer m.lock()()
	out := append([]model.DailyBar(nil), m.data.bars[symbolID]...)
	if !ascending {
		reverse(out)
	}
	return out, nil
}

func (m *MemoryStore) WithTx(_ context.Context, fn func(tx Store) error) error {
	if m.inTx {
		return fn(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	work := &MemoryStore{mu: m.mu, data: m.data.clone(), inTx: true}
	if err := fn(work); err != nil {
		return err
	}
	m.data = work.data
	return nil
}

func (m *MemoryStore) Close() error { return nil }
