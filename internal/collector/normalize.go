package collector

import (
	"math"
	"strings"

	"StockPulse/internal/model"
)

// adjustedClose is the internal name an adjusted-close column resolves to.
const adjustedClose = "adj_close"

// flattenLabel joins the non-empty parts of a column label with "_" and lowercases it.
func flattenLabel(label model.ColumnLabel) string {
	parts := make([]string, 0, len(label))
	for _, p := range label {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.ToLower(strings.Join(parts, "_"))
}

// fieldName maps a flattened column name to a canonical field, stripping the ticker suffix.
func fieldName(flat, ticker string) string {
	if suffix := "_" + strings.ToLower(ticker); ticker != "" && strings.HasSuffix(flat, suffix) {
		flat = strings.TrimSuffix(flat, suffix)
	}
	switch flat {
	case model.FieldOpen, model.FieldHigh, model.FieldLow, model.FieldClose, model.FieldVolume:
		return flat
	case "adj close", "adj_close", "adjclose":
		return adjustedClose
	}
	return ""
}

// Normalize resolves a provider table into the canonical fields. Columns that do not
// map to a canonical field are discarded; values are left untouched.
func Normalize(table *model.RawTable, ticker string) (*model.Frame, error) {
	names := make([]string, len(table.Columns))
	columns := make(map[string]int, len(table.Columns))
	for i, label := range table.Columns {
		names[i] = flattenLabel(label)
		field := fieldName(names[i], ticker)
		if field == "" {
			continue
		}
		if _, seen := columns[field]; !seen {
			columns[field] = i
		}
	}

	if _, ok := columns[model.FieldClose]; !ok {
		if i, ok := columns[adjustedClose]; ok {
			columns[model.FieldClose] = i
		}
	}

	frame := &model.Frame{
		Index:  table.Index,
		Values: make(map[string][]float64),
	}
	for _, field := range model.CanonicalFields {
		col, ok := columns[field]
		if !ok {
			continue
		}
		values := make([]float64, len(table.Data))
		for r, row := range table.Data {
			if col < len(row) {
				values[r] = row[col]
			} else {
				values[r] = math.NaN()
			}
		}
		frame.Fields = append(frame.Fields, field)
		frame.Values[field] = values
	}

	if len(frame.Fields) == 0 {
		return nil, &model.SchemaError{Ticker: ticker, Columns: names}
	}
	return frame, nil
}

// Rows converts a normalized frame into canonical rows. Every canonical field is
// required; rows holding a non-finite or negative value are skipped and counted.
func Rows(frame *model.Frame, ticker string) ([]model.Row, int, error) {
	var missing []string
	for _, field := range model.CanonicalFields {
		if !frame.Has(field) {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, 0, &model.SchemaError{Ticker: ticker, Columns: frame.Fields, Missing: missing}
	}

	open := frame.Values[model.FieldOpen]
	high := frame.Values[model.FieldHigh]
	low := frame.Values[model.FieldLow]
	closes := frame.Values[model.FieldClose]
	volume := frame.Values[model.FieldVolume]

	rows := make([]model.Row, 0, len(frame.Index))
	skipped := 0
	for i, date := range frame.Index {
		if !validValue(open[i]) || !validValue(high[i]) || !validValue(low[i]) ||
			!validValue(closes[i]) || !validValue(volume[i]) {
			skipped++
			continue
		}
		rows = append(rows, model.Row{
			Date:   date,
			Open:   open[i],
			High:   high[i],
			Low:    low[i],
			Close:  closes[i],
			Volume: int64(math.Round(volume[i])),
		})
	}
	return rows, skipped, nil
}

func validValue(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
