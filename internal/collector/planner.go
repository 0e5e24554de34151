package collector

import "time"

// DefaultLookbackDays is how far back the first fetch for a symbol reaches.
const DefaultLookbackDays = 90

// Plan is the [Start, End) date range still missing from storage.
type Plan struct {
	Start time.Time
	End   time.Time
}

// Empty reports whether there is nothing to fetch.
func (p Plan) Empty() bool {
	return !p.Start.Before(p.End)
}

// PlanFetch computes the range to fetch given the latest stored date. With no stored
// history the range starts lookbackDays before today; otherwise the day after the last
// stored bar. End is always today, exclusive.
func PlanFetch(latest time.Time, hasLatest bool, today time.Time, lookbackDays int) Plan {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	start := today.AddDate(0, 0, -lookbackDays)
	if hasLatest {
		start = latest.AddDate(0, 0, 1)
	}
	return Plan{Start: start, End: today}
}
