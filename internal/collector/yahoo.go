package collector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"StockPulse/internal/model"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooFetcher implements Fetcher using the Yahoo Finance chart API.
type YahooFetcher struct {
	Client    *resty.Client
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooFetcher creates a new Yahoo Finance fetcher with optional proxy support.
func NewYahooFetcher(baseURL, proxyURL string, timeout time.Duration) *YahooFetcher {
	if baseURL == "" {
		baseURL = yahooBaseURL
	}
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", "Mozilla/5.0")
	client.SetRetryCount(2)
	client.SetRetryWaitTime(500 * time.Millisecond)
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	return &YahooFetcher{
		Client: client,
		SymbolMap: map[string]string{
			"NIFTY50":   "^NSEI",
			"BANKNIFTY": "^NSEBANK",
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooFields are the quote series requested from the chart response, labelled the way
// the provider's own tabular exports label them.
var yahooFields = []struct {
	label string
	path  string
}{
	{"Adj Close", "indicators.adjclose.0.adjclose"},
	{"Close", "indicators.quote.0.close"},
	{"High", "indicators.quote.0.high"},
	{"Low", "indicators.quote.0.low"},
	{"Open", "indicators.quote.0.open"},
	{"Volume", "indicators.quote.0.volume"},
}

// FetchDailyBars downloads daily bars for [start, end). Columns are two-level labels
// of the form [field, ticker].
func (f *YahooFetcher) FetchDailyBars(ctx context.Context, ticker string, start, end time.Time) (*model.RawTable, error) {
	resp, err := f.Client.R().
		SetContext(ctx).
		SetPathParam("symbol", f.yahooSymbol(ticker)).
		SetQueryParams(map[string]string{
			"period1":              strconv.FormatInt(start.Unix(), 10),
			"period2":              strconv.FormatInt(end.Unix(), 10),
			"interval":             "1d",
			"includeAdjustedClose": "true",
		}).
		Get("/v8/finance/chart/{symbol}")
	if err != nil {
		return nil, &model.FetchError{Ticker: ticker, Provider: f.Name(), Err: err}
	}

	body := resp.Body()
	if desc := gjson.GetBytes(body, "chart.error.description"); desc.Exists() && desc.String() != "" {
		return nil, &model.FetchError{Ticker: ticker, Provider: f.Name(), Err: errors.New(desc.String())}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &model.FetchError{Ticker: ticker, Provider: f.Name(),
			Err: fmt.Errorf("status %d, body: %s", resp.StatusCode(), string(body))}
	}

	return parseYahooChart(body, ticker)
}

// parseYahooChart builds a raw table from a chart API response body.
func parseYahooChart(body []byte, ticker string) (*model.RawTable, error) {
	result := gjson.GetBytes(body, "chart.result.0")
	if !result.Exists() {
		return nil, &model.FetchError{Ticker: ticker, Provider: "yahoo", Err: errors.New("malformed chart response")}
	}

	timestamps := result.Get("timestamp").Array()
	table := &model.RawTable{}
	if len(timestamps) == 0 {
		return table, nil
	}

	// Bars are stamped at the exchange session open; the offset turns them into local dates.
	loc := time.FixedZone(result.Get("meta.exchangeTimezoneName").String(), int(result.Get("meta.gmtoffset").Int()))

	series := make([][]gjson.Result, 0, len(yahooFields))
	for _, field := range yahooFields {
		values := result.Get(field.path)
		if !values.Exists() {
			continue
		}
		table.Columns = append(table.Columns, model.ColumnLabel{field.label, ticker})
		series = append(series, values.Array())
	}

	table.Index = make([]time.Time, len(timestamps))
	table.Data = make([][]float64, len(timestamps))
	for i, ts := range timestamps {
		table.Index[i] = model.Date(time.Unix(ts.Int(), 0), loc)
		row := make([]float64, len(series))
		for c, values := range series {
			row[c] = math.NaN()
			if i < len(values) && values[i].Type == gjson.Number {
				row[c] = values[i].Float()
			}
		}
		table.Data[i] = row
	}
	return table, nil
}
