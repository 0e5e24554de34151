package calculator

import "math"

// PercentReturn is the percentage change from prev to cur.
func PercentReturn(prev, cur float64) float64 {
	return (cur - prev) / prev * 100
}

// ReturnSeries returns the single-period percentage return at every position.
// The first position is nil.
func ReturnSeries(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i := 1; i < len(values); i++ {
		r := PercentReturn(values[i-1], values[i])
		if math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		out[i] = &r
	}
	return out
}

// StepReturns returns the percentage returns between consecutive values.
// Steps from a zero value are undefined and left out.
func StepReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		r := PercentReturn(values[i-1], values[i])
		if math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		out = append(out, r)
	}
	return out
}
