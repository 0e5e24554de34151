package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrSymbolNotFound is returned when a ticker has no stored symbol.
var ErrSymbolNotFound = errors.New("symbol not found")

// SchemaError is returned when a provider response cannot be normalized.
type SchemaError struct {
	Ticker  string
	Columns []string
	Missing []string
}

func (e *SchemaError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("schema %s: missing fields [%s] in columns [%s]",
			e.Ticker, strings.Join(e.Missing, ", "), strings.Join(e.Columns, ", "))
	}
	return fmt.Sprintf("schema %s: no usable fields in columns [%s]",
		e.Ticker, strings.Join(e.Columns, ", "))
}

// FetchError wraps a network or provider failure for one ticker.
type FetchError struct {
	Ticker   string
	Provider string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s from %s: %v", e.Ticker, e.Provider, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DuplicateBarError is returned when a bar already exists for (symbol, date).
type DuplicateBarError struct {
	SymbolID int64
	Date     time.Time
}

func (e *DuplicateBarError) Error() string {
	return fmt.Sprintf("bar for symbol %d on %s already exists", e.SymbolID, e.Date.Format(DateLayout))
}

// InsufficientDataError is returned when an analysis has too few bars to work with.
type InsufficientDataError struct {
	Ticker string
	Have   int
	Need   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: have %d bars, need %d", e.Ticker, e.Have, e.Need)
}
