package collector

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
)

func TestPlanFetch(t *testing.T) {
	today := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		latest    time.Time
		hasLatest bool
		lookback  int
		start     time.Time
		empty     bool
	}{{
		name:  "no history uses the default lookback",
		start: time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
	}, {
		name:     "no history with a custom lookback",
		lookback: 10,
		start:    time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC),
	}, {
		name:      "resumes the day after the last stored bar",
		latest:    time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC),
		hasLatest: true,
		start:     time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC),
	}, {
		name:      "last stored bar yesterday is up to date",
		latest:    time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC),
		hasLatest: true,
		start:     today,
		empty:     true,
	}, {
		name:      "last stored bar today is up to date",
		latest:    today,
		hasLatest: true,
		start:     today.AddDate(0, 0, 1),
		empty:     true,
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			plan := PlanFetch(test.latest, test.hasLatest, today, test.lookback)
			assert.True(t, plan.Start.Equal(test.start))
			assert.True(t, plan.End.Equal(today))
			assert.Equal(t, plan.Empty(), test.empty)
		})
	}
}
