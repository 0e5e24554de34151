package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"StockPulse/internal/model"
	"StockPulse/internal/store"

	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog"
)

type fakeRunner struct {
	err   error
	calls int
}

func (f *fakeRunner) RunCycle(context.Context) (*model.CycleReport, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &model.CycleReport{
		ID:      "cycle-7",
		Symbols: []model.SymbolOutcome{{Ticker: "TCS.NS", Outcome: model.OutcomeIngested, Inserted: 2}},
	}, nil
}

type recordingSender struct {
	sent []string
}

func (r *recordingSender) SendWithRetry(_ context.Context, text string, _ int) error {
	r.sent = append(r.sent, text)
	return nil
}

func newTestScheduler(runner CycleRunner, st store.Store, sender Sender) *Scheduler {
	logger := zerolog.Nop()
	return NewScheduler(context.Background(), runner, st, sender, &logger)
}

func TestRegisterAll(t *testing.T) {
	s := newTestScheduler(&fakeRunner{}, store.NewMemoryStore(), nil)
	assert.NoError(t, s.RegisterAll("0 30 16 * * 1-5"))
	assert.Equal(t, len(s.Cron.Entries()), 1)

	assert.Error(t, s.RegisterAll("not a schedule"))
}

func TestIngestTaskNotifies(t *testing.T) {
	runner := &fakeRunner{}
	sender := &recordingSender{}
	s := newTestScheduler(runner, store.NewMemoryStore(), sender)

	s.RunIngestNow()
	assert.Equal(t, runner.calls, 1)
	assert.Equal(t, len(sender.sent), 1)
	assert.True(t, strings.Contains(sender.sent[0], "cycle-7"))

	runner.err = errors.New("database is locked")
	s.RunIngestNow()
	assert.Equal(t, len(sender.sent), 2)
	assert.True(t, strings.Contains(sender.sent[1], "database is locked"))
}

func TestIngestTaskWithoutSender(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestScheduler(runner, store.NewMemoryStore(), nil)
	s.RunIngestNow()
	assert.Equal(t, runner.calls, 1)
}

func TestHandleCommand(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	runner := &fakeRunner{}
	s := newTestScheduler(runner, st, nil)

	assert.Equal(t, s.HandleCommand(ctx, "hello"), helpText)
	assert.Equal(t, s.HandleCommand(ctx, "  "), helpText)
	assert.Equal(t, s.HandleCommand(ctx, "/stocks"), "No stocks found.")

	reply := s.HandleCommand(ctx, "/fetch")
	assert.Equal(t, runner.calls, 1)
	assert.True(t, strings.Contains(reply, "Bars inserted: 2"))

	sym, err := st.CreateSymbol(ctx, "ITC.NS", "ITC")
	assert.NoError(t, err)
	assert.True(t, strings.Contains(s.HandleCommand(ctx, "/stocks"), "ITC.NS ITC"))

	assert.Equal(t, s.HandleCommand(ctx, "/analysis"), "Usage: /analysis TICKER")
	assert.True(t, strings.Contains(s.HandleCommand(ctx, "/analysis itc.ns"), "insufficient data"))

	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range []float64{400, 401, 402} {
		assert.NoError(t, st.InsertBar(ctx, &model.DailyBar{SymbolID: sym.ID, Row: model.Row{
			Date: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 100,
		}}))
	}
	reply = s.HandleCommand(ctx, "/analysis itc.ns")
	assert.True(t, strings.Contains(reply, "<b>ITC.NS</b>"))
	assert.True(t, strings.Contains(reply, "Price: 402.00"))
}
