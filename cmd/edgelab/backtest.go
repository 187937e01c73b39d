package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edgelab-quant/edgelab/internal/app"
	"github.com/edgelab-quant/edgelab/internal/config"
	"github.com/edgelab-quant/edgelab/internal/logger"
	"github.com/edgelab-quant/edgelab/internal/metrics"
)

var (
	backtestSymbols []string
	backtestFrom    string
	backtestTo      string
	backtestPreset  string
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run backtests for the configured symbols",
	Long:  "Fetch historical bars, evaluate the configured rules and replay them through the simulator",
	RunE:  runBacktest,
}

func init() {
	backtestCmd.Flags().StringSliceVar(&backtestSymbols, "symbol", nil, "symbols to backtest (overrides config)")
	backtestCmd.Flags().StringVar(&backtestFrom, "from", "", "start date YYYY-MM-DD (overrides config)")
	backtestCmd.Flags().StringVar(&backtestTo, "to", "", "end date YYYY-MM-DD (overrides config)")
	backtestCmd.Flags().StringVar(&backtestPreset, "preset", "", "rule preset: rsi, macd, obv or combined")

	rootCmd.AddCommand(backtestCmd)
}

func loadConfig(log *zap.Logger) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Defaults()
		log.Warn("no config file specified, using defaults")
	}

	if len(backtestSymbols) > 0 {
		cfg.Data.Symbols = backtestSymbols
	}
	if backtestFrom != "" {
		cfg.Data.Start = backtestFrom
	}
	if backtestTo != "" {
		cfg.Data.End = backtestTo
	}
	if backtestPreset != "" {
		cfg.Rules.Preset = backtestPreset
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func runBacktest(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	reg := metrics.NewRegistry()

	// Cancel the sweep on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsSrv *metrics.Server
	if cfg.Metrics.Enabled {
		metricsSrv = metrics.NewServer(reg, cfg.Metrics.Listen, cfg.Metrics.Path, log)
		go func() {
			if err := metricsSrv.Start(); err != nil {
				log.Error("metrics server error", zap.Error(err))
			}
		}()
	}

	a, err := app.New(cfg, log, reg)
	if err != nil {
		return err
	}

	runs, err := a.Run(ctx)
	if err != nil {
		return err
	}

	for _, run := range runs {
		fmt.Printf("=== %s (%s, %s to %s) ===\n",
			run.Symbol, run.Interval,
			run.Start.Format("2006-01-02"), run.End.Format("2006-01-02"))
		fmt.Println(run.Report.Format())
		fmt.Println()
	}

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn("metrics server shutdown failed", zap.Error(err))
		}
	}

	if len(runs) == 0 {
		fmt.Fprintln(os.Stderr, "no backtests completed")
		os.Exit(1)
	}
	return nil
}
