package collector

import (
	"errors"
	"math"
	"testing"
	"time"

	"StockPulse/internal/model"

	"github.com/google/go-cmp/cmp"
	"github.com/peterldowns/testy/assert"
)

func dates(n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = time.Date(2025, 1, 2+i, 0, 0, 0, 0, time.UTC)
	}
	return out
}

func TestNormalizeSuffixedColumns(t *testing.T) {
	table := &model.RawTable{
		Columns: []model.ColumnLabel{{"Open_RELIANCE.NS"}, {"Close_RELIANCE.NS"}, {"Volume_RELIANCE.NS"}},
		Index:   dates(2),
		Data: [][]float64{
			{2850.5, 2861.25, 5123400},
			{2861.0, 2849.75, 4987100},
		},
	}

	frame, err := Normalize(table, "RELIANCE.NS")
	assert.NoError(t, err)
	assert.Equal(t, frame.Fields, []string{"open", "close", "volume"})
	assert.Equal(t, frame.Values["open"], []float64{2850.5, 2861.0})
	assert.Equal(t, frame.Values["close"], []float64{2861.25, 2849.75})
	assert.Equal(t, frame.Values["volume"], []float64{5123400, 4987100})
	assert.False(t, frame.Has("high"))
}

func TestNormalizeTwoLevelColumns(t *testing.T) {
	table := &model.RawTable{
		Columns: []model.ColumnLabel{
			{"Volume", "TCS.NS"}, {"Low", "TCS.NS"}, {"Price", "TCS.NS"}, {"High", "TCS.NS"},
			{"Close", "TCS.NS"}, {"Open", "TCS.NS"},
		},
		Index: dates(1),
		Data:  [][]float64{{1200, 3880, 3890, 3920, 3901, 3885}},
	}

	frame, err := Normalize(table, "TCS.NS")
	assert.NoError(t, err)

	// Ensure fields come back in canonical order and unknown columns are dropped.
	assert.Equal(t, frame.Fields, model.CanonicalFields)
	got := map[string]float64{}
	for _, f := range frame.Fields {
		got[f] = frame.Values[f][0]
	}
	want := map[string]float64{"open": 3885, "high": 3920, "low": 3880, "close": 3901, "volume": 1200}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected values (-want +got):\n%s", diff)
	}
}

func TestNormalizeAdjustedClose(t *testing.T) {
	table := &model.RawTable{
		Columns: []model.ColumnLabel{{"Open", ""}, {"Adj Close", ""}},
		Index:   dates(1),
		Data:    [][]float64{{10, 11}},
	}
	frame, err := Normalize(table, "INFY.NS")
	assert.NoError(t, err)
	assert.Equal(t, frame.Fields, []string{"open", "close"})
	assert.Equal(t, frame.Values["close"], []float64{11})

	// Ensure a real close wins over the adjusted one.
	table = &model.RawTable{
		Columns: []model.ColumnLabel{{"Adj Close"}, {"Close"}},
		Index:   dates(1),
		Data:    [][]float64{{9.5, 10}},
	}
	frame, err = Normalize(table, "INFY.NS")
	assert.NoError(t, err)
	assert.Equal(t, frame.Values["close"], []float64{10})
}

func TestNormalizeSchemaError(t *testing.T) {
	table := &model.RawTable{
		Columns: []model.ColumnLabel{{"Dividends"}, {"Stock Splits"}},
		Index:   dates(1),
		Data:    [][]float64{{0, 0}},
	}
	_, err := Normalize(table, "ITC.NS")
	var schemaErr *model.SchemaError
	assert.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, schemaErr.Columns, []string{"dividends", "stock splits"})
}

func TestRows(t *testing.T) {
	table := &model.RawTable{
		Columns: []model.ColumnLabel{
			{"Open", "SBIN.NS"}, {"High", "SBIN.NS"}, {"Low", "SBIN.NS"}, {"Close", "SBIN.NS"}, {"Volume", "SBIN.NS"},
		},
		Index: dates(3),
		Data: [][]float64{
			{800, 810, 795, 805, 1000.4},
			{math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN()},
			{805, 812, 801, 811, 1500},
		},
	}
	frame, err := Normalize(table, "SBIN.NS")
	assert.NoError(t, err)

	rows, skipped, err := Rows(frame, "SBIN.NS")
	assert.NoError(t, err)
	assert.Equal(t, skipped, 1)
	assert.Equal(t, len(rows), 2)
	assert.True(t, rows[0] == model.Row{Date: dates(3)[0], Open: 800, High: 810, Low: 795, Close: 805, Volume: 1000})
	assert.True(t, rows[1].Date.Equal(dates(3)[2]))
}

func TestRowsMissingFields(t *testing.T) {
	table := &model.RawTable{
		Columns: []model.ColumnLabel{{"Open_RELIANCE.NS"}, {"Close_RELIANCE.NS"}, {"Volume_RELIANCE.NS"}},
		Index:   dates(1),
		Data:    [][]float64{{1, 2, 3}},
	}
	frame, err := Normalize(table, "RELIANCE.NS")
	assert.NoError(t, err)

	_, _, err = Rows(frame, "RELIANCE.NS")
	var schemaErr *model.SchemaError
	assert.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, schemaErr.Missing, []string{"high", "low"})
}
