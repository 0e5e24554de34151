package model

import "time"

// ColumnLabel is a provider column label. Multi-level labels carry one part per level,
// e.g. ["Close", "RELIANCE.NS"].
type ColumnLabel []string

// RawTable is provider output before normalization. Missing cells are NaN.
type RawTable struct {
	Columns []ColumnLabel
	Index   []time.Time
	Data    [][]float64 // Data[row][column]
}

// Len returns the number of rows.
func (t *RawTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Index)
}

// Canonical field names in output order.
const (
	FieldOpen   = "open"
	FieldHigh   = "high"
	FieldLow    = "low"
	FieldClose  = "close"
	FieldVolume = "volume"
)

// CanonicalFields lists the normalized fields in their canonical order.
var CanonicalFields = []string{FieldOpen, FieldHigh, FieldLow, FieldClose, FieldVolume}

// Frame is a normalized table: the canonical fields that could be resolved, in
// canonical order, with their column values.
type Frame struct {
	Fields []string
	Index  []time.Time
	Values map[string][]float64
}

// Has reports whether field was resolved.
func (f *Frame) Has(field string) bool {
	_, ok := f.Values[field]
	return ok
}
