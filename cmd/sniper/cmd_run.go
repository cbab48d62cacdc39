package main

import (
	"context"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"sniperbot-go/internal/config"
	"sniperbot-go/internal/exchange"
	"sniperbot-go/internal/execution"
	"sniperbot-go/internal/metrics"
	"sniperbot-go/internal/notify"
	"sniperbot-go/internal/paper"
	"sniperbot-go/internal/polymarket"
	"sniperbot-go/internal/risk"
	"sniperbot-go/internal/runner"
	"sniperbot-go/internal/strategy"
	"sniperbot-go/internal/util"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the sniping loop until interrupted",
	RunE:  runSniper,
}

func runSniper(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, logCloser, err := util.NewFileLogger(cfg.App.LogLevel, cfg.App.LogFile)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	if cfg.App.MetricsAddr != "" {
		srv := metrics.Serve(cfg.App.MetricsAddr)
		defer srv.Close()
		log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")
	}

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stratCfg, err := cfg.StrategyConfig()
	if err != nil {
		return err
	}
	ev, err := strategy.NewEvaluator(stratCfg)
	if err != nil {
		return err
	}
	prices, err := exchange.NewSource(cfg.Exchange.Provider, cfg.ExchangeOptions(), log)
	if err != nil {
		return err
	}

	var (
		runnerQuotes runner.QuoteSource
		execQuotes   execution.QuoteSource
	)
	if cfg.Quotes.Enabled || !cfg.Execution.DryRun {
		client, err := polymarket.NewClient(cfg.Quotes.BaseURL, cfg.HTTPOptions(), log)
		if err != nil {
			return err
		}
		runnerQuotes, execQuotes = client, client
	}

	exec, err := execution.NewExecutor(cfg.ExecutionOptions(), execQuotes, log)
	if err != nil {
		return err
	}
	journal := paper.NewJournal(64)
	sinks := []execution.DecisionSink{journal, exec}

	if path := cfg.Paper.DecisionsPath; path != "" {
		rec, err := paper.NewJSONLRecorder(path)
		if err != nil {
			return fmt.Errorf("decisions journal: %w", err)
		}
		defer rec.Close()
		sinks = append(sinks, rec)
	}
	if cfg.Telegram.Enabled() {
		tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, cfg.Execution.DryRun, log)
		if err != nil {
			log.Warn().Err(err).Msg("telegram disabled")
		} else {
			sinks = append(sinks, tg)
		}
	}

	account, err := paper.NewAccount(
		decimal.NewFromFloat(cfg.Paper.StartingCash),
		decimal.NewFromFloat(cfg.Paper.BetSize),
		decimal.NewFromFloat(cfg.Paper.DefaultEntryPrice),
	)
	if err != nil {
		return err
	}
	var settlements runner.Recorder
	if path := cfg.Paper.SettlementsPath; path != "" {
		rec, err := paper.NewJSONLRecorder(path)
		if err != nil {
			return fmt.Errorf("settlements journal: %w", err)
		}
		defer rec.Close()
		settlements = rec
	}

	r, err := runner.New(runnerOptions(cfg), runner.Deps{
		Evaluator:   ev,
		Prices:      prices,
		Quotes:      runnerQuotes,
		Sink:        execution.NewFanout(log, sinks...),
		Cap:         risk.NewDailyCap(cfg.Risk.MaxDecisionsPerDay),
		Account:     account,
		Settlements: settlements,
		Log:         log,
	})
	if err != nil {
		return err
	}

	mode := "LIVE (intent only)"
	if cfg.Execution.DryRun {
		mode = "DRY RUN"
	}
	log.Info().Str("mode", mode).Str("env", cfg.App.Env).Msg("sniper starting")

	if err := r.Run(ctx); err != nil {
		return err
	}
	summarize(log, journal, account)
	return nil
}

func runnerOptions(cfg *config.Config) runner.Options {
	return runner.Options{
		Assets:         cfg.AssetSymbols(),
		CheckInterval:  time.Duration(cfg.Runner.CheckIntervalSecs) * time.Second,
		CaptureWindow:  time.Duration(cfg.Runner.CaptureSecs) * time.Second,
		FetchTimeout:   time.Duration(cfg.Runner.FetchTimeoutSecs) * time.Second,
		Priority:       runner.Priority(cfg.Runner.Priority),
		MinMomentum:    decimal.NewFromFloat(cfg.Runner.MinMomentumFraction),
		MomentumWindow: time.Duration(cfg.Runner.MomentumWindowSecs) * time.Second,
		OddsGate:       cfg.Quotes.Enabled,
		Odds:           cfg.OddsBounds(),
		SlugPrefixes:   cfg.SlugPrefixes(),
	}
}

func summarize(log zerolog.Logger, journal *paper.Journal, account *paper.Account) {
	stats := journal.Stats()
	snap := account.Snapshot()
	log.Info().
		Int("decisions", stats.Total).
		Interface("by_asset", stats.ByAsset).
		Interface("by_direction", stats.ByDirection).
		Int("wins", snap.Wins).
		Int("losses", snap.Losses).
		Float64("win_rate", snap.WinRate()).
		Int("open_bets", snap.OpenBets).
		Str("cash", snap.Cash.StringFixed(2)).
		Str("realized_pnl", snap.RealizedPnL.StringFixed(2)).
		Msg("session summary")
}
