package analysis

import (
	"StockPulse/internal/calculator"
	"StockPulse/internal/model"
)

const (
	// SMAPeriod is the close and volume averaging window.
	SMAPeriod = calculator.SMAPeriod
	// TrendReturns is how many of the latest returns decide the trend.
	TrendReturns = 5
	// VolumeSpikeRatio is the multiple of average volume considered unusual.
	VolumeSpikeRatio = 1.5
)

// smaSignal returns the SMA of the last closes and whether the latest close is above it.
// Both are nil with fewer than SMAPeriod closes.
func smaSignal(closes []float64) (*float64, *bool) {
	sma, err := calculator.CalculateSMA(closes, SMAPeriod)
	if err != nil {
		return nil, nil
	}
	above := closes[len(closes)-1] > sma
	return &sma, &above
}

// volatility is the population standard deviation of the step returns, nil without returns.
func volatility(returns []float64) *float64 {
	sd, err := calculator.PopStdDev(returns)
	if err != nil {
		return nil
	}
	return &sd
}

// volumeSignal classifies the latest volume against the SMAPeriod average.
func volumeSignal(volumes []float64) (string, *float64) {
	avg, err := calculator.CalculateSMA(volumes, SMAPeriod)
	if err != nil {
		return model.VolumeNormal, nil
	}
	if volumes[len(volumes)-1] > VolumeSpikeRatio*avg {
		return model.VolumeUnusuallyHigh, &avg
	}
	return model.VolumeNormal, &avg
}

// trendSignal is an uptrend only when each of the last TrendReturns returns is positive.
func trendSignal(returns []float64) string {
	if len(returns) < TrendReturns {
		return model.TrendDown
	}
	for _, r := range returns[len(returns)-TrendReturns:] {
		if !(r > 0) {
			return model.TrendDown
		}
	}
	return model.TrendUp
}
