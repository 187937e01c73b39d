// Package sim replays a signal-annotated frame into simulated trades, a
// cash/position ledger and a per-bar equity curve. One Simulator instance
// owns all run state; runs are isolated values and deterministic.
package sim

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/edgelab-quant/edgelab/internal/core"
	"github.com/edgelab-quant/edgelab/internal/indicator"
)

// Config holds the execution parameters of one backtest run
type Config struct {
	InitialCapital float64
	CommissionRate float64 // charged on entry and exit notional
	SlippageRate   float64 // reduces buy-side investable cash and sell-side proceeds
	Sizer          SizerConfig

	DrawdownLimit  float64 // kill-switch threshold; 0 disables
	CooldownPeriod int     // bars frozen after a kill-switch trigger

	TrailingStop     bool
	TrailingStopMult float64
	ATRSeries        string // frame series used by the trailing stop
}

// Validate fails fast before any bar is processed
func (c Config) Validate() error {
	if c.InitialCapital <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("initial capital must be positive, got %v", c.InitialCapital))
	}
	if c.CommissionRate < 0 || c.CommissionRate >= 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("commission rate must be in [0, 1), got %v", c.CommissionRate))
	}
	if c.SlippageRate < 0 || c.SlippageRate >= 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("slippage rate must be in [0, 1), got %v", c.SlippageRate))
	}
	if c.DrawdownLimit < 0 || c.DrawdownLimit >= 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("drawdown limit must be in [0, 1), got %v", c.DrawdownLimit))
	}
	if c.CooldownPeriod < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("cooldown period cannot be negative, got %d", c.CooldownPeriod))
	}
	if c.TrailingStop && c.TrailingStopMult <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("trailing stop multiplier must be positive, got %v", c.TrailingStopMult))
	}
	return c.Sizer.Validate()
}

// Result is the full output of one run
type Result struct {
	EquityCurve []core.EquityPoint
	Trades      []core.Trade
	FinalCash   float64
	Rejections  int // orders skipped for insufficient cash or zero quantity
}

type state int

const (
	stateFlat state = iota
	stateLong
)

// Simulator is the per-run state machine
type Simulator struct {
	cfg    Config
	sizer  *Sizer
	logger *zap.Logger

	// position
	st       state
	quantity float64
	entry    float64
	highest  float64 // highest high since entry

	// ledger
	cash float64

	// risk overlay
	peakEquity float64
	cooldown   int

	trades     []core.Trade
	rejections int
}

// New creates a simulator for a single run
func New(cfg Config, logger *zap.Logger) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	sizer, err := NewSizer(cfg.Sizer)
	if err != nil {
		return nil, err
	}
	if cfg.ATRSeries == "" {
		cfg.ATRSeries = indicator.SeriesATR
	}
	return &Simulator{
		cfg:        cfg,
		sizer:      sizer,
		logger:     logger,
		st:         stateFlat,
		cash:       cfg.InitialCapital,
		peakEquity: cfg.InitialCapital,
	}, nil
}

// Run replays the frame in bar order. actions must align with frame.Bars.
// A zero-length frame yields an empty curve and trade log, not an error.
// Still LONG after the last bar forces a liquidation at the final close,
// logged as SELL_FINAL; the last equity point is restated to the realized
// cash so the curve keeps exactly one point per bar.
func (s *Simulator) Run(frame *indicator.Frame, actions []core.Action) (*Result, error) {
	if frame == nil || frame.Len() == 0 {
		return &Result{FinalCash: s.cash}, nil
	}
	if len(actions) != frame.Len() {
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("signal length %d does not match bar count %d", len(actions), frame.Len()))
	}

	curve := make([]core.EquityPoint, 0, frame.Len())
	for i, bar := range frame.Bars {
		s.step(frame, i, bar, actions[i])
		curve = append(curve, core.EquityPoint{
			Time:  bar.Time,
			Value: s.cash + s.quantity*bar.Close,
		})
	}

	if s.st == stateLong {
		last := frame.Bars[frame.Len()-1]
		s.sell(last, core.SideSellFinal, core.ExitEndOfData)
		curve[len(curve)-1].Value = s.cash
	}

	return &Result{
		EquityCurve: curve,
		Trades:      s.trades,
		FinalCash:   s.cash,
		Rejections:  s.rejections,
	}, nil
}

// step executes the per-bar algorithm. The equity point is recorded by the
// caller so that every bar emits one regardless of what happens here.
func (s *Simulator) step(frame *indicator.Frame, i int, bar core.Bar, action core.Action) {
	// 1. risk state update
	equity := s.cash + s.quantity*bar.Close
	if equity > s.peakEquity {
		s.peakEquity = equity
	}
	var drawdown float64
	if s.peakEquity > 0 {
		drawdown = (s.peakEquity - equity) / s.peakEquity
	}

	// 2. global kill-switch
	if s.cfg.DrawdownLimit > 0 && drawdown > s.cfg.DrawdownLimit {
		s.logger.Warn("drawdown limit breached, closing out",
			zap.Float64("drawdown", drawdown),
			zap.Float64("limit", s.cfg.DrawdownLimit),
			zap.Time("bar", bar.Time))
		if s.st == stateLong {
			s.sell(bar, core.SideSell, core.ExitDrawdown)
		}
		s.cooldown = s.cfg.CooldownPeriod
		return
	}

	// 3. cooldown freeze
	if s.cooldown > 0 {
		s.cooldown--
		return
	}

	// 4. entry
	if s.st == stateFlat {
		if action == core.ActionBuy && bar.Close > 0 {
			s.buy(bar)
		}
		return
	}

	// 5. exit evaluation, trailing stop first
	if bar.High > s.highest {
		s.highest = bar.High
	}
	if s.cfg.TrailingStop {
		if atr, ok := frame.Value(s.cfg.ATRSeries, i); ok {
			stop := s.highest - atr*s.cfg.TrailingStopMult
			if bar.Close < stop {
				s.logger.Debug("trailing stop hit",
					zap.Float64("close", bar.Close),
					zap.Float64("stop", stop),
					zap.Time("bar", bar.Time))
				s.sell(bar, core.SideSell, core.ExitTrailingStop)
				return
			}
		}
	}
	if action == core.ActionSell {
		s.sell(bar, core.SideSell, core.ExitSignal)
	}
}

// buy opens a position at the bar close. Buy-side slippage shrinks the
// investable cash before sizing; commission is charged on the raw
// notional. A rejected order is skipped, never retried.
func (s *Simulator) buy(bar core.Bar) {
	investable := s.cash * (1 - s.cfg.SlippageRate)
	qty := s.sizer.Size(investable, bar.Close)
	if qty <= 0 {
		s.rejections++
		s.logger.Debug("order rejected: sized to zero", zap.Time("bar", bar.Time))
		return
	}

	cost := qty * bar.Close
	commission := cost * s.cfg.CommissionRate
	if cost+commission > s.cash {
		s.rejections++
		s.logger.Debug("order rejected: insufficient cash",
			zap.Float64("cost", cost+commission),
			zap.Float64("cash", s.cash),
			zap.Time("bar", bar.Time))
		return
	}

	s.cash -= cost + commission
	s.quantity = qty
	s.entry = bar.Close
	s.highest = bar.High
	s.st = stateLong

	s.trades = append(s.trades, core.Trade{
		Time:          bar.Time,
		Side:          core.SideBuy,
		Price:         bar.Close,
		Quantity:      qty,
		Commission:    commission,
		CashAfter:     s.cash,
		QuantityAfter: s.quantity,
	})
	s.logger.Debug("buy",
		zap.Float64("price", bar.Close),
		zap.Float64("quantity", qty),
		zap.Time("bar", bar.Time))
}

// sell closes the full position at the bar close. Slippage is applied to
// the proceeds first; commission is charged on the slippage-adjusted
// notional.
func (s *Simulator) sell(bar core.Bar, side core.Side, reason core.ExitReason) {
	proceeds := s.quantity * bar.Close * (1 - s.cfg.SlippageRate)
	commission := proceeds * s.cfg.CommissionRate
	s.cash += proceeds - commission
	qty := s.quantity

	s.quantity = 0
	s.entry = 0
	s.highest = 0
	s.st = stateFlat

	s.trades = append(s.trades, core.Trade{
		Time:          bar.Time,
		Side:          side,
		Reason:        reason,
		Price:         bar.Close,
		Quantity:      qty,
		Commission:    commission,
		CashAfter:     s.cash,
		QuantityAfter: 0,
	})
	s.logger.Debug("sell",
		zap.String("reason", string(reason)),
		zap.Float64("price", bar.Close),
		zap.Float64("quantity", qty),
		zap.Time("bar", bar.Time))
}

// Equity returns the current marked value at the given price
func (s *Simulator) Equity(price float64) float64 {
	return s.cash + s.quantity*price
}
