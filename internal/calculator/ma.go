package calculator

import (
	"errors"

	"StockPulse/internal/model"
)

// SMAPeriod is the window of the stored moving average.
const SMAPeriod = 20

// CalculateSMA computes the simple moving average of the last period prices.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// SMASeries returns the trailing simple moving average at every position.
// Positions before period-1 are nil.
func SMASeries(values []float64, period int) []*float64 {
	out := make([]*float64, len(values))
	if period <= 0 {
		return out
	}
	for i := period - 1; i < len(values); i++ {
		avg, err := CalculateSMA(values[:i+1], period)
		if err != nil {
			continue
		}
		out[i] = &avg
	}
	return out
}

func extractCloses(rows []model.Row) []float64 {
	closes := make([]float64, len(rows))
	for i, r := range rows {
		closes[i] = r.Close
	}
	return closes
}
