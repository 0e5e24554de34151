package collector

import (
	"context"
	"fmt"
	"time"

	"StockPulse/internal/model"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/shopspring/decimal"
)

// FinanceGoFetcher implements Fetcher on top of the piquette/finance-go chart client.
// Its columns are single-level labels, including an adjusted close.
type FinanceGoFetcher struct {
	Location *time.Location
}

// NewFinanceGoFetcher creates a fetcher that dates bars in loc.
func NewFinanceGoFetcher(loc *time.Location) *FinanceGoFetcher {
	return &FinanceGoFetcher{Location: loc}
}

func (f *FinanceGoFetcher) Name() string { return "finance-go" }

var financeGoColumns = []model.ColumnLabel{
	{"Open"}, {"High"}, {"Low"}, {"Close"}, {"Adj Close"}, {"Volume"},
}

type chartResult struct {
	table *model.RawTable
	err   error
}

// FetchDailyBars downloads daily bars for [start, end). The underlying client has no
// context support, so cancellation abandons the in-flight iteration.
func (f *FinanceGoFetcher) FetchDailyBars(ctx context.Context, ticker string, start, end time.Time) (*model.RawTable, error) {
	done := make(chan chartResult, 1)
	go func() {
		table, err := f.download(ticker, start, end)
		done <- chartResult{table: table, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, &model.FetchError{Ticker: ticker, Provider: f.Name(), Err: ctx.Err()}
	case res := <-done:
		if res.err != nil {
			return nil, &model.FetchError{Ticker: ticker, Provider: f.Name(), Err: res.err}
		}
		return res.table, nil
	}
}

func (f *FinanceGoFetcher) download(ticker string, start, end time.Time) (*model.RawTable, error) {
	params := &chart.Params{
		Symbol:   ticker,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}

	table := &model.RawTable{Columns: financeGoColumns}
	iter := chart.Get(params)
	for iter.Next() {
		bar := iter.Bar()
		ts := time.Unix(int64(bar.Timestamp), 0)
		// End is exclusive.
		if !ts.Before(end) {
			continue
		}
		table.Index = append(table.Index, model.Date(ts, f.Location))
		table.Data = append(table.Data, []float64{
			price(bar.Open), price(bar.High), price(bar.Low), price(bar.Close), price(bar.AdjClose),
			float64(bar.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("chart %s: %w", ticker, err)
	}
	return table, nil
}

func price(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
