// Package app wires collectors, signal rules, the simulator and reporting
// into runnable backtests.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edgelab-quant/edgelab/internal/collector"
	"github.com/edgelab-quant/edgelab/internal/collector/binance"
	"github.com/edgelab-quant/edgelab/internal/config"
	"github.com/edgelab-quant/edgelab/internal/core"
	"github.com/edgelab-quant/edgelab/internal/indicator"
	"github.com/edgelab-quant/edgelab/internal/logger"
	"github.com/edgelab-quant/edgelab/internal/metrics"
	"github.com/edgelab-quant/edgelab/internal/perf"
	"github.com/edgelab-quant/edgelab/internal/report"
	"github.com/edgelab-quant/edgelab/internal/signal"
	"github.com/edgelab-quant/edgelab/internal/sim"
	"github.com/edgelab-quant/edgelab/internal/storage/archive"
	"github.com/edgelab-quant/edgelab/internal/storage/runstore"
)

// historySize bounds the in-memory run history.
const historySize = 1000

// App orchestrates backtests across the configured symbols.
type App struct {
	cfg       *config.Config
	log       *zap.Logger
	providers *collector.Registry
	metrics   *metrics.Registry
	writer    *report.Writer
	history   runstore.Store
}

// New creates an App from validated configuration. The default providers
// (binance behind a CSV cache, and the plain CSV reader) are registered;
// tests can override them via RegisterProvider.
func New(cfg *config.Config, log *zap.Logger, reg *metrics.Registry) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if reg == nil {
		reg = metrics.NewRegistry()
	}

	a := &App{
		cfg:       cfg,
		log:       log,
		providers: collector.NewRegistry(),
		metrics:   reg,
		history:   runstore.NewMemoryStore(historySize),
	}

	a.providers.Register(collector.NewCache(binance.New(), cfg.Data.Dir, log))
	a.providers.Register(collector.NewCSVProvider(cfg.Data.Dir))

	if cfg.Archive.Enabled {
		store, err := archive.New(archive.Config{
			Type: cfg.Archive.Type,
			Path: cfg.Archive.Path,
			S3: archive.S3Config{
				Bucket:    cfg.Archive.S3.Bucket,
				Endpoint:  cfg.Archive.S3.Endpoint,
				Region:    cfg.Archive.S3.Region,
				AccessKey: cfg.Archive.S3.AccessKey,
				SecretKey: cfg.Archive.S3.SecretKey,
				Prefix:    cfg.Archive.S3.Prefix,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("building archive: %w", err)
		}
		a.writer = report.NewWriter(store, log)
	}

	return a, nil
}

// RegisterProvider adds or replaces a history provider.
func (a *App) RegisterProvider(p collector.HistoryProvider) {
	a.providers.Register(p)
}

// Run backtests every configured symbol in order. Symbols fail
// independently: an error on one is logged and reported in its result,
// and the sweep moves on. Run stops early only when ctx is cancelled.
func (a *App) Run(ctx context.Context) ([]*report.Run, error) {
	start, end, err := a.cfg.DateRange()
	if err != nil {
		return nil, err
	}

	prov, ok := a.providers.Get(a.cfg.Data.Provider)
	if !ok {
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("no provider registered as %q", a.cfg.Data.Provider))
	}

	spec, err := a.cfg.RuleSpec()
	if err != nil {
		return nil, err
	}

	runs := make([]*report.Run, 0, len(a.cfg.Data.Symbols))
	var firstErr error

	for _, symbol := range a.cfg.Data.Symbols {
		if err := ctx.Err(); err != nil {
			return runs, err
		}

		run, err := a.runSymbol(ctx, prov, spec, symbol, start, end)
		if err != nil {
			a.metrics.RecordBacktest("error", 0)
			a.log.Error("backtest failed",
				zap.String("symbol", symbol),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		runs = append(runs, run)
	}

	if len(runs) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return runs, nil
}

func (a *App) runSymbol(ctx context.Context, prov collector.HistoryProvider, spec signal.RuleSpec, symbol string, start, end time.Time) (*report.Run, error) {
	runID := uuid.NewString()
	log := logger.ForRun(a.log, runID, symbol)
	began := time.Now()

	bars, err := prov.FetchHistory(ctx, symbol, start, end, a.cfg.Data.Interval)
	if err != nil {
		a.metrics.RecordFetch(prov.Name(), "error")
		return nil, err
	}
	a.metrics.RecordFetch(prov.Name(), "success")
	log.Info("bars loaded", zap.Int("count", len(bars)))

	frame, err := indicator.BuildFrame(bars, a.cfg.FrameConfig())
	if err != nil {
		return nil, err
	}

	actions, err := signal.Generate(frame, spec)
	if err != nil {
		return nil, err
	}
	for _, act := range actions {
		if act != core.ActionHold {
			a.metrics.RecordSignal(string(act))
		}
	}

	simulator, err := sim.New(a.cfg.SimConfig(), log)
	if err != nil {
		return nil, err
	}
	result, err := simulator.Run(frame, actions)
	if err != nil {
		return nil, err
	}

	a.metrics.RecordBars(len(bars))
	for _, tr := range result.Trades {
		a.metrics.RecordTrade(string(tr.Side))
	}
	for i := 0; i < result.Rejections; i++ {
		a.metrics.RecordRejection()
	}

	rep := perf.Analyze(result.EquityCurve, result.Trades, a.cfg.Backtest.InitialCapital)
	a.metrics.RecordBacktest("success", time.Since(began).Seconds())

	log.Info("backtest complete",
		zap.Float64("final_capital", rep.FinalCapital),
		zap.Float64("cumulative_return", rep.CumulativeReturn),
		zap.Int("trades", len(result.Trades)),
		zap.Duration("elapsed", time.Since(began)))

	run := &report.Run{
		ID:          runID,
		Symbol:      symbol,
		Interval:    a.cfg.Data.Interval,
		Start:       start,
		End:         end,
		CreatedAt:   time.Now().UTC(),
		Report:      rep,
		EquityCurve: result.EquityCurve,
		Trades:      result.Trades,
	}

	if err := a.history.Save(ctx, run); err != nil {
		log.Warn("failed to record run history", zap.Error(err))
	}

	if a.writer != nil {
		if err := a.writer.Save(ctx, run); err != nil {
			// Archiving is best effort; the in-memory result is still good.
			log.Warn("failed to archive run", zap.Error(err))
		}
	}

	return run, nil
}

// History lists completed runs from this process, newest first.
func (a *App) History(ctx context.Context, filter runstore.ListFilter) ([]*report.Run, error) {
	return a.history.List(ctx, filter)
}
