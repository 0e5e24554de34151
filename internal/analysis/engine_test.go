package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"StockPulse/internal/model"
	"StockPulse/internal/store"

	"github.com/peterldowns/testy/assert"
)

func barsFrom(closes []float64, volumes []int64) []model.DailyBar {
	start := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	bars := make([]model.DailyBar, len(closes))
	for i, c := range closes {
		v := int64(1000)
		if volumes != nil {
			v = volumes[i]
		}
		bars[i] = model.DailyBar{Row: model.Row{
			Date: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: v,
		}}
	}
	return bars
}

func TestAnalyzeUptrend(t *testing.T) {
	// Nine consecutive rises.
	a, err := Analyze("RELIANCE.NS", barsFrom([]float64{10, 11, 12, 13, 14, 15, 16, 17, 18, 19}, nil))
	assert.NoError(t, err)
	assert.Equal(t, a.Trend, model.TrendUp)
	assert.Equal(t, a.Price, 19.0)
	assert.True(t, a.SMA20 == nil)
	assert.True(t, a.AboveSMA == nil)
	assert.True(t, a.AvgVolume == nil)
	assert.Equal(t, a.VolumeAnalysis, model.VolumeNormal)
	assert.True(t, a.Volatility != nil)
}

func TestAnalyzeOnlyLastFiveReturnsDecideTrend(t *testing.T) {
	// The sixth-from-last return is negative.
	a, err := Analyze("TCS.NS", barsFrom([]float64{10, 12, 11, 12, 13, 14, 15, 16}, nil))
	assert.NoError(t, err)
	assert.Equal(t, a.Trend, model.TrendUp)

	// A flat step among the last five breaks the uptrend.
	a, err = Analyze("TCS.NS", barsFrom([]float64{10, 11, 12, 12, 13, 14}, nil))
	assert.NoError(t, err)
	assert.Equal(t, a.Trend, model.TrendDown)

	// Fewer than five returns is never an uptrend.
	a, err = Analyze("TCS.NS", barsFrom([]float64{10, 11, 12, 13, 14}, nil))
	assert.NoError(t, err)
	assert.Equal(t, a.Trend, model.TrendDown)
}

func TestAnalyzeInsufficientData(t *testing.T) {
	for _, closes := range [][]float64{nil, {100}} {
		a, err := Analyze("INFY.NS", barsFrom(closes, nil))
		assert.True(t, a == nil)
		var insufficient *model.InsufficientDataError
		assert.True(t, errors.As(err, &insufficient))
		assert.Equal(t, insufficient.Have, len(closes))
		assert.Equal(t, insufficient.Need, MinBars)
	}
}

func TestAnalyzeVolatility(t *testing.T) {
	// Returns of +10% and -10%.
	a, err := Analyze("ITC.NS", barsFrom([]float64{100, 110, 99}, nil))
	assert.NoError(t, err)
	assert.True(t, math.Abs(*a.Volatility-10) < 1e-9)

	// A single return has no spread.
	a, err = Analyze("ITC.NS", barsFrom([]float64{100, 90}, nil))
	assert.NoError(t, err)
	assert.Equal(t, *a.Volatility, 0.0)
	assert.Equal(t, a.Trend, model.TrendDown)
}

func TestAnalyzeZeroClose(t *testing.T) {
	a, err := Analyze("ZERO.NS", barsFrom([]float64{0, 10, 11}, nil))
	assert.NoError(t, err)
	assert.Equal(t, a.Price, 11.0)
	assert.NotNil(t, a.Volatility)
	assert.Equal(t, *a.Volatility, 0.0)

	_, err = json.Marshal(a)
	assert.NoError(t, err)

	// No defined return at all.
	a, err = Analyze("ZERO.NS", barsFrom([]float64{0, 0}, nil))
	assert.NoError(t, err)
	assert.True(t, a.Volatility == nil)
	assert.Equal(t, a.Trend, model.TrendDown)
}

// volumesEnding returns 21 volumes whose last 20 average 1000 and end with latest.
func volumesEnding(latest int64) []int64 {
	v := make([]int64, 21)
	v[0] = 999999
	rest := int64(20000) - latest - 18*950
	for i := 1; i <= 18; i++ {
		v[i] = 950
	}
	v[19] = rest
	v[20] = latest
	return v
}

func TestAnalyzeVolume(t *testing.T) {
	closes := make([]float64, 21)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}

	a, err := Analyze("SBIN.NS", barsFrom(closes, volumesEnding(1600)))
	assert.NoError(t, err)
	assert.Equal(t, *a.AvgVolume, 1000.0)
	assert.Equal(t, a.VolumeAnalysis, model.VolumeUnusuallyHigh)

	a, err = Analyze("SBIN.NS", barsFrom(closes, volumesEnding(1400)))
	assert.NoError(t, err)
	assert.Equal(t, *a.AvgVolume, 1000.0)
	assert.Equal(t, a.VolumeAnalysis, model.VolumeNormal)
}

func TestAnalyzeSMA(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	a, err := Analyze("HDFCBANK.NS", barsFrom(closes, nil))
	assert.NoError(t, err)

	// Mean of 6..25.
	assert.Equal(t, *a.SMA20, 15.5)
	assert.True(t, *a.AboveSMA)
	assert.Equal(t, a.Price, 25.0)

	closes[len(closes)-1] = 1
	a, err = Analyze("HDFCBANK.NS", barsFrom(closes, nil))
	assert.NoError(t, err)
	assert.False(t, *a.AboveSMA)
	assert.Equal(t, a.Trend, model.TrendDown)
}

func TestForSymbol(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	_, err := ForSymbol(ctx, st, "UNKNOWN.NS")
	assert.True(t, errors.Is(err, model.ErrSymbolNotFound))

	sym, err := st.CreateSymbol(ctx, "LT.NS", "Larsen & Toubro")
	assert.NoError(t, err)

	_, err = ForSymbol(ctx, st, "LT.NS")
	var insufficient *model.InsufficientDataError
	assert.True(t, errors.As(err, &insufficient))

	// Thirty rising closes; only the latest window is consulted.
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 3000 + float64(i)
	}
	for _, b := range barsFrom(closes, nil) {
		b.SymbolID = sym.ID
		assert.NoError(t, st.InsertBar(ctx, &b))
	}

	a, err := ForSymbol(ctx, st, "LT.NS")
	assert.NoError(t, err)
	assert.Equal(t, a.Symbol, "LT.NS")
	assert.Equal(t, a.Price, 3029.0)
	assert.Equal(t, *a.SMA20, 3019.5)
	assert.Equal(t, a.Trend, model.TrendUp)
}
