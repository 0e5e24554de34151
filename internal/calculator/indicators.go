package calculator

import "StockPulse/internal/model"

// ComputeIndicators attaches SMA-20 and daily return to a chronologically ordered batch.
// Only the batch itself is consulted, so a batch shorter than SMAPeriod carries no SMA.
// The returned bars have no SymbolID set.
func ComputeIndicators(rows []model.Row) []model.DailyBar {
	closes := extractCloses(rows)
	sma := SMASeries(closes, SMAPeriod)
	ret := ReturnSeries(closes)

	bars := make([]model.DailyBar, len(rows))
	for i, r := range rows {
		bars[i] = model.DailyBar{
			Row:         r,
			SMA20:       sma[i],
			DailyReturn: ret[i],
		}
	}
	return bars
}
