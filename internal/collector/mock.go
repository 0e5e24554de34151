package collector

import (
	"context"
	"sync"
	"time"

	"StockPulse/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Tables map[string]*model.RawTable
	Errors map[string]error
	// Delay blocks each fetch until it elapses or the context is done.
	Delay time.Duration

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records one FetchDailyBars invocation.
type MockCall struct {
	Ticker string
	Start  time.Time
	End    time.Time
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(ctx context.Context, ticker string, start, end time.Time) (*model.RawTable, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Ticker: ticker, Start: start, End: end})
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, &model.FetchError{Ticker: ticker, Provider: m.Name(), Err: ctx.Err()}
		case <-time.After(m.Delay):
		}
	}
	if err := m.Errors[ticker]; err != nil {
		return nil, err
	}
	table, ok := m.Tables[ticker]
	if !ok {
		return &model.RawTable{}, nil
	}
	return sliceTable(table, start, end), nil
}

// Calls returns the recorded invocations.
func (m *MockFetcher) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

// sliceTable keeps the rows dated within [start, end).
func sliceTable(t *model.RawTable, start, end time.Time) *model.RawTable {
	out := &model.RawTable{Columns: t.Columns}
	for i, d := range t.Index {
		if d.Before(start) || !d.Before(end) {
			continue
		}
		out.Index = append(out.Index, d)
		out.Data = append(out.Data, t.Data[i])
	}
	return out
}

// GenerateMockTable builds a two-level labelled table of count consecutive daily bars
// ending the day before end, with closes rising from basePrice.
func GenerateMockTable(ticker string, end time.Time, count int, basePrice float64) *model.RawTable {
	t := &model.RawTable{Columns: []model.ColumnLabel{
		{"Open", ticker}, {"High", ticker}, {"Low", ticker}, {"Close", ticker}, {"Volume", ticker},
	}}
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i)*0.001)
		t.Index = append(t.Index, end.AddDate(0, 0, i-count))
		t.Data = append(t.Data, []float64{p * 0.999, p * 1.005, p * 0.995, p, 1000000})
	}
	return t
}
