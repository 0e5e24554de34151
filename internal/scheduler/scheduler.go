package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"StockPulse/internal/analysis"
	"StockPulse/internal/model"
	"StockPulse/internal/notifier"
	"StockPulse/internal/store"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// CycleRunner runs one ingestion cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) (*model.CycleReport, error)
}

// Sender delivers a chat message.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages the cron tasks and chat commands.
type Scheduler struct {
	Cron   *cron.Cron
	Runner CycleRunner
	Store  store.Store
	// Sender is optional; without it reports are only logged.
	Sender Sender
	Logger *zerolog.Logger
	Ctx    context.Context
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, runner CycleRunner, st store.Store, sender Sender, logger *zerolog.Logger) *Scheduler {
	return &Scheduler{
		Cron:   cron.New(cron.WithSeconds()),
		Runner: runner,
		Store:  st,
		Sender: sender,
		Logger: logger,
		Ctx:    ctx,
	}
}

// RegisterAll registers the ingestion task.
func (s *Scheduler) RegisterAll(ingestCron string) error {
	if _, err := s.Cron.AddFunc(ingestCron, s.ingestTask); err != nil {
		return fmt.Errorf("register ingest task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Logger.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Logger.Info().Msg("scheduler stopped")
}

// RunIngestNow executes the ingestion task immediately (for RUN_ON_START).
func (s *Scheduler) RunIngestNow() {
	s.ingestTask()
}

func (s *Scheduler) ingestTask() {
	s.Logger.Info().Msg("running scheduled ingestion")
	report, err := s.Runner.RunCycle(s.Ctx)
	if err != nil {
		s.Logger.Error().Err(err).Msg("scheduled ingestion")
		s.trySend(fmt.Sprintf("❌ Ingestion cycle failed: %v", err))
		return
	}
	s.trySend(notifier.FormatCycleReport(report))
}

const helpText = "Available commands:\n• /fetch\n• /stocks\n• /analysis TICKER"

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}

	switch fields[0] {
	case "/fetch":
		report, err := s.Runner.RunCycle(ctx)
		if err != nil {
			return fmt.Sprintf("❌ Ingestion cycle failed: %v", err)
		}
		return notifier.FormatCycleReport(report)
	case "/stocks":
		symbols, err := s.Store.AllSymbols(ctx)
		if err != nil {
			s.Logger.Error().Err(err).Msg("list stocks for command")
			return "❌ Could not list stocks."
		}
		return notifier.FormatSymbols(symbols)
	case "/analysis":
		if len(fields) < 2 {
			return "Usage: /analysis TICKER"
		}
		ticker := strings.ToUpper(fields[1])
		a, err := analysis.ForSymbol(ctx, s.Store, ticker)
		var insufficient *model.InsufficientDataError
		switch {
		case errors.Is(err, model.ErrSymbolNotFound), errors.As(err, &insufficient):
			return fmt.Sprintf("Stock '%s' not found or insufficient data for analysis.", ticker)
		case err != nil:
			s.Logger.Error().Err(err).Str("symbol", ticker).Msg("analysis for command")
			return "❌ Analysis failed."
		}
		return notifier.FormatAnalysis(a)
	default:
		return helpText
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Sender == nil {
		return
	}
	if err := s.Sender.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.Logger.Error().Err(err).Msg("send notification")
	}
}
