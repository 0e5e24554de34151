package analysis

import (
	"context"
	"fmt"

	"StockPulse/internal/calculator"
	"StockPulse/internal/model"
	"StockPulse/internal/store"
)

const (
	// WindowSize is the number of most recent bars an analysis looks at.
	WindowSize = SMAPeriod + 1
	// MinBars is the fewest bars an analysis can be computed from.
	MinBars = 2
)

// Analyze computes the summary for bars ordered oldest first. Only the last
// WindowSize bars are used.
func Analyze(ticker string, bars []model.DailyBar) (*model.Analysis, error) {
	if len(bars) > WindowSize {
		bars = bars[len(bars)-WindowSize:]
	}
	if len(bars) < MinBars {
		return nil, &model.InsufficientDataError{Ticker: ticker, Have: len(bars), Need: MinBars}
	}

	closes := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		volumes[i] = float64(b.Volume)
	}
	returns := calculator.StepReturns(closes)

	sma, above := smaSignal(closes)
	volumeAnalysis, avgVolume := volumeSignal(volumes)

	return &model.Analysis{
		Symbol:         ticker,
		Price:          closes[len(closes)-1],
		SMA20:          sma,
		AboveSMA:       above,
		Trend:          trendSignal(returns),
		VolumeAnalysis: volumeAnalysis,
		Volatility:     volatility(returns),
		AvgVolume:      avgVolume,
	}, nil
}

// ForSymbol loads the most recent bars of ticker and analyzes them. An unknown
// ticker yields model.ErrSymbolNotFound.
func ForSymbol(ctx context.Context, st store.Store, ticker string) (*model.Analysis, error) {
	sym, err := st.FindSymbol(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("find symbol: %w", err)
	}
	if sym == nil {
		return nil, fmt.Errorf("%s: %w", ticker, model.ErrSymbolNotFound)
	}

	bars, err := st.RecentBars(ctx, sym.ID, WindowSize, false)
	if err != nil {
		return nil, fmt.Errorf("load recent bars: %w", err)
	}
	return Analyze(sym.Ticker, bars)
}
