package model

import "time"

// DateLayout is the calendar date format used for storage and the API.
const DateLayout = "2006-01-02"

// Symbol is one tracked instrument.
type Symbol struct {
	ID          int64      `json:"-"`
	Ticker      string     `json:"symbol"`
	CompanyName string     `json:"company_name"`
	LatestPrice *float64   `json:"latest_price"`
	LastUpdated *time.Time `json:"last_updated"`
}

// Row is a canonical daily OHLCV record.
type Row struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// DailyBar is a stored row for one symbol on one calendar date.
type DailyBar struct {
	ID       int64 `json:"-"`
	SymbolID int64 `json:"-"`
	Row
	SMA20       *float64 `json:"sma_20"`
	DailyReturn *float64 `json:"daily_return"`
}

// Date truncates t to its calendar date in loc, expressed as UTC midnight.
func Date(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a DateLayout string into a UTC midnight date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// Listing is one entry of the configured symbol registry.
type Listing struct {
	Ticker      string `yaml:"symbol" json:"symbol"`
	CompanyName string `yaml:"company_name" json:"company_name"`
}
