// Package perf computes performance statistics from an equity curve and a
// trade log.
package perf

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/edgelab-quant/edgelab/internal/core"
)

const hoursPerYear = 24 * 365.25

// Report holds the metrics record for one backtest run. Ratio metrics that
// can be undefined carry a companion Valid flag instead of NaN so the
// report stays JSON-friendly.
type Report struct {
	InitialCapital float64 `json:"initial_capital"`
	FinalCapital   float64 `json:"final_capital"`

	CumulativeReturn float64 `json:"cumulative_return"` // fraction, final/initial - 1
	AnnualizedReturn float64 `json:"annualized_return"`

	MaxDrawdown     float64 `json:"max_drawdown"` // fraction of peak
	MaxDrawdownBars int     `json:"max_drawdown_bars"`

	SharpeRatio float64 `json:"sharpe_ratio"`
	SharpeValid bool    `json:"sharpe_valid"`

	TotalTrades   int     `json:"total_trades"` // closed round trips
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"` // fraction of closed trades

	ProfitLossRatio float64 `json:"profit_loss_ratio"`
	ProfitLossValid bool    `json:"profit_loss_valid"`
}

// Analyze computes the report. An empty trade log yields the defined
// default record (zero return, zero drawdown, zero Sharpe, zero trades)
// with the final capital taken from the curve when present.
func Analyze(curve []core.EquityPoint, trades []core.Trade, initialCapital float64) Report {
	rep := Report{
		InitialCapital: initialCapital,
		FinalCapital:   initialCapital,
	}
	if len(curve) > 0 {
		rep.FinalCapital = curve[len(curve)-1].Value
	}
	if len(trades) == 0 {
		rep.FinalCapital = defaultFinal(curve, initialCapital)
		return rep
	}

	if initialCapital > 0 {
		rep.CumulativeReturn = rep.FinalCapital/initialCapital - 1
	}
	rep.AnnualizedReturn = annualize(rep.CumulativeReturn, curveSpan(curve))
	rep.MaxDrawdown, rep.MaxDrawdownBars = maxDrawdown(curve)
	rep.SharpeRatio, rep.SharpeValid = sharpe(curve)

	wins, losses, avgWin, avgLoss := roundTrips(trades, initialCapital)
	rep.WinningTrades = wins
	rep.LosingTrades = losses
	rep.TotalTrades = wins + losses
	if rep.TotalTrades > 0 {
		rep.WinRate = float64(wins) / float64(rep.TotalTrades)
	}
	if avgLoss > 0 {
		rep.ProfitLossRatio = avgWin / avgLoss
		rep.ProfitLossValid = true
	}
	return rep
}

func defaultFinal(curve []core.EquityPoint, initial float64) float64 {
	if len(curve) > 0 {
		return curve[len(curve)-1].Value
	}
	return initial
}

func curveSpan(curve []core.EquityPoint) time.Duration {
	if len(curve) < 2 {
		return 0
	}
	return curve[len(curve)-1].Time.Sub(curve[0].Time)
}

// annualize compounds the cumulative return over the ratio of a calendar
// year to the elapsed span
func annualize(cumulative float64, span time.Duration) float64 {
	if span <= 0 || cumulative <= -1 {
		return 0
	}
	years := span.Hours() / hoursPerYear
	return math.Pow(1+cumulative, 1/years) - 1
}

// maxDrawdown finds the largest peak-to-trough decline and its duration in
// bars, measured from the peak to the bar where the peak value is regained
// (or to the series end if never regained).
func maxDrawdown(curve []core.EquityPoint) (float64, int) {
	if len(curve) == 0 {
		return 0, 0
	}

	var maxDD float64
	peakIdx, ddPeakIdx, troughIdx := 0, -1, -1
	peak := curve[0].Value

	for i, p := range curve {
		if p.Value >= peak {
			peak = p.Value
			peakIdx = i
			continue
		}
		if peak > 0 {
			dd := (peak - p.Value) / peak
			if dd > maxDD {
				maxDD = dd
				ddPeakIdx = peakIdx
				troughIdx = i
			}
		}
	}
	if ddPeakIdx < 0 {
		return 0, 0
	}

	duration := len(curve) - 1 - ddPeakIdx
	for j := troughIdx + 1; j < len(curve); j++ {
		if curve[j].Value >= curve[ddPeakIdx].Value {
			duration = j - ddPeakIdx
			break
		}
	}
	return maxDD, duration
}

// sharpe computes mean per-bar return over its standard deviation,
// annualized by sqrt(bars per year). Reported as invalid when the return
// variance is zero or the curve is too short.
func sharpe(curve []core.EquityPoint) (float64, bool) {
	if len(curve) < 3 {
		return 0, false
	}

	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Value
		if prev == 0 {
			return 0, false
		}
		returns = append(returns, curve[i].Value/prev-1)
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	stdDev := math.Sqrt(variance / float64(len(returns)-1))
	if stdDev == 0 {
		return 0, false
	}

	span := curveSpan(curve)
	if span <= 0 {
		return 0, false
	}
	barsPerYear := float64(len(returns)) * hoursPerYear / span.Hours()
	return mean / stdDev * math.Sqrt(barsPerYear), true
}

// roundTrips pairs each BUY with its subsequent SELL and classifies the
// pair by comparing net proceeds against net cost. Cash deltas are
// reconstructed from the CashAfter chain so commission and slippage are
// both accounted for.
func roundTrips(trades []core.Trade, initialCapital float64) (wins, losses int, avgWin, avgLoss float64) {
	running := initialCapital
	var openCost float64
	open := false
	var winSum, lossSum float64

	for _, tr := range trades {
		delta := tr.CashAfter - running
		running = tr.CashAfter

		switch tr.Side {
		case core.SideBuy:
			openCost = -delta
			open = true
		case core.SideSell, core.SideSellFinal:
			if !open {
				continue
			}
			pnl := delta - openCost
			if pnl > 0 {
				wins++
				winSum += pnl
			} else {
				losses++
				lossSum += -pnl
			}
			open = false
		}
	}

	if wins > 0 {
		avgWin = winSum / float64(wins)
	}
	if losses > 0 {
		avgLoss = lossSum / float64(losses)
	}
	return wins, losses, avgWin, avgLoss
}

// Format renders the report for terminal display, percentages to two
// decimals, unavailable ratios as N/A.
func (r Report) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Initial Capital:       %.2f\n", r.InitialCapital)
	fmt.Fprintf(&b, "Final Capital:         %.2f\n", r.FinalCapital)
	fmt.Fprintf(&b, "Cumulative Return:     %.2f%%\n", r.CumulativeReturn*100)
	fmt.Fprintf(&b, "Annualized Return:     %.2f%%\n", r.AnnualizedReturn*100)
	fmt.Fprintf(&b, "Max Drawdown:          %.2f%%\n", r.MaxDrawdown*100)
	fmt.Fprintf(&b, "Max Drawdown Duration: %d bars\n", r.MaxDrawdownBars)
	if r.SharpeValid {
		fmt.Fprintf(&b, "Sharpe Ratio:          %.2f\n", r.SharpeRatio)
	} else {
		b.WriteString("Sharpe Ratio:          N/A\n")
	}
	fmt.Fprintf(&b, "Total Trades:          %d\n", r.TotalTrades)
	fmt.Fprintf(&b, "Win Rate:              %.2f%%\n", r.WinRate*100)
	if r.ProfitLossValid {
		fmt.Fprintf(&b, "Profit/Loss Ratio:     %.2f\n", r.ProfitLossRatio)
	} else {
		b.WriteString("Profit/Loss Ratio:     N/A\n")
	}
	return b.String()
}
