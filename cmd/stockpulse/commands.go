package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"StockPulse/internal/analysis"
	"StockPulse/internal/api"
	"StockPulse/internal/config"
	"StockPulse/internal/notifier"
	"StockPulse/internal/scheduler"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// newRootCmd creates the root command.
func newRootCmd() *cobra.Command {
	var (
		cfgPath string
		cfg     *config.Config
		logger  *zerolog.Logger
	)

	rootCmd := &cobra.Command{
		Use:           "stockpulse",
		Short:         "StockPulse - incremental daily stock data ingestion and analysis",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgPath == "" {
				cfgPath = "configs/config.yaml"
				if v := os.Getenv("CONFIG_PATH"); v != "" {
					cfgPath = v
				}
			}
			var err error
			if cfg, err = config.Load(cfgPath); err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config validation: %w", err)
			}
			if logger, err = newLogger(cfg.Log.Level, cfg.Log.Pretty); err != nil {
				return err
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Configuration file path (default configs/config.yaml or $CONFIG_PATH)")

	// Subcommands resolve cfg and logger lazily, after PersistentPreRunE has run.
	deps := func() (*config.Config, *zerolog.Logger) { return cfg, logger }

	rootCmd.AddCommand(newServeCmd(deps))
	rootCmd.AddCommand(newIngestCmd(deps))
	rootCmd.AddCommand(newAnalyzeCmd(deps))
	rootCmd.AddCommand(newHealNamesCmd(deps))

	return rootCmd
}

type depsFunc func() (*config.Config, *zerolog.Logger)

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newServeCmd(deps depsFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run scheduled ingestion",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := deps()
			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signalContext()
			defer cancel()

			var sender scheduler.Sender
			var tn *notifier.TelegramNotifier
			if cfg.TelegramEnabled() {
				tn = notifier.NewTelegramNotifier("", cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, logger)
				sender = tn
			}

			sched := scheduler.NewScheduler(ctx, a.collector, a.store, sender, logger)
			if err := sched.RegisterAll(cfg.Schedule.IngestCron); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			if tn != nil {
				go tn.StartPolling(ctx, sched.HandleCommand)
				logger.Info().Msg("telegram polling started")
			}
			if cfg.Schedule.RunOnStart {
				logger.Info().Msg("run_on_start enabled, ingesting now")
				go sched.RunIngestNow()
			}

			handler := api.NewHandler(a.collector, a.store, a.metrics, logger)
			srv := api.NewServer(cfg.Server.Addr, api.NewRouter(handler, logger), logger)
			logger.Info().Msg("StockPulse is running, press Ctrl+C to stop")
			return srv.Run(ctx)
		},
	}
}

func newIngestCmd(deps depsFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Run one ingestion cycle and print its report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := deps()
			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signalContext()
			defer cancel()

			report, err := a.collector.RunCycle(ctx)
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
}

func newAnalyzeCmd(deps depsFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [TICKER]",
		Short: "Print the analysis of a stored symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := deps()
			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			ticker := strings.ToUpper(args[0])
			result, err := analysis.ForSymbol(cmd.Context(), a.store, ticker)
			if err != nil {
				return fmt.Errorf("analyze %s: %w", ticker, err)
			}
			return printJSON(result)
		},
	}
}

func newHealNamesCmd(deps depsFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "heal-names",
		Short: "Backfill blank company names of stored symbols",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := deps()
			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			healed, err := a.collector.HealNames(cmd.Context())
			if err != nil {
				return fmt.Errorf("heal names: %w", err)
			}
			fmt.Printf("healed %d symbol name(s)\n", healed)
			return nil
		},
	}
}
