// Package indicator computes technical indicator series over OHLCV bars.
//
// Every function returns a slice of the same length as its input with the
// leading warm-up entries set to NaN. Callers must check Defined before
// acting on a value. Inputs shorter than the warm-up fail with
// core.ErrInsufficientHistory.
package indicator

import (
	"fmt"
	"math"

	"github.com/edgelab-quant/edgelab/internal/core"
)

// Defined reports whether an indicator value is outside its warm-up
func Defined(v float64) bool {
	return !math.IsNaN(v)
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func checkPeriod(name string, period int) error {
	if period <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("%s period must be positive, got %d", name, period))
	}
	return nil
}

func checkHistory(name string, have, need int) error {
	if have < need {
		return core.WrapError(core.ErrInsufficientHistory,
			fmt.Errorf("%s needs %d bars, got %d", name, need, have))
	}
	return nil
}

// SMA calculates the Simple Moving Average.
// Warm-up: the first period-1 entries are NaN.
func SMA(values []float64, period int) ([]float64, error) {
	if err := checkPeriod("sma", period); err != nil {
		return nil, err
	}
	if err := checkHistory("sma", len(values), period); err != nil {
		return nil, err
	}

	out := nanSlice(len(values))

	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out, nil
}

// EMA calculates the Exponential Moving Average with alpha = 2/(period+1),
// seeded by the first value. The recurrence runs from the start but the
// first period-1 entries are still reported as warm-up.
func EMA(values []float64, period int) ([]float64, error) {
	if err := checkPeriod("ema", period); err != nil {
		return nil, err
	}
	if err := checkHistory("ema", len(values), period); err != nil {
		return nil, err
	}

	out := nanSlice(len(values))
	alpha := 2.0 / float64(period+1)

	ema := values[0]
	for i, v := range values {
		if i > 0 {
			ema = alpha*v + (1-alpha)*ema
		}
		if i >= period-1 {
			out[i] = ema
		}
	}
	return out, nil
}

// RSI calculates the Relative Strength Index with Wilder smoothing: the
// first average gain/loss is a simple mean of the first period changes,
// subsequent averages blend with weight (period-1)/period. RSI is 100 when
// the average loss is zero. Warm-up: the first period entries are NaN
// (period price changes require period+1 bars).
func RSI(closes []float64, period int) ([]float64, error) {
	if err := checkPeriod("rsi", period); err != nil {
		return nil, err
	}
	if err := checkHistory("rsi", len(closes), period+1); err != nil {
		return nil, err
	}

	out := nanSlice(len(closes))

	var avgGain, avgLoss float64
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}

		if i <= period {
			avgGain += gain / float64(period)
			avgLoss += loss / float64(period)
			if i < period {
				continue
			}
		} else {
			avgGain = (avgGain*float64(period-1) + gain) / float64(period)
			avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		}

		if avgLoss == 0 {
			out[i] = 100
			continue
		}
		rs := avgGain / avgLoss
		out[i] = 100 - 100/(1+rs)
	}
	return out, nil
}

// MACD calculates the MACD line, signal line and histogram.
// The line is EMA(close, fast) - EMA(close, slow); the signal line is an
// EMA of the line over its defined region. Warm-up: the line is NaN for the
// first slow-1 entries, the signal and histogram for slow+signal-2.
func MACD(closes []float64, fast, slow, signal int) (line, sig, hist []float64, err error) {
	if fast >= slow {
		return nil, nil, nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("macd fast period %d must be below slow period %d", fast, slow))
	}
	if err := checkPeriod("macd_signal", signal); err != nil {
		return nil, nil, nil, err
	}
	if err := checkHistory("macd", len(closes), slow+signal-1); err != nil {
		return nil, nil, nil, err
	}

	fastEMA, err := EMA(closes, fast)
	if err != nil {
		return nil, nil, nil, err
	}
	slowEMA, err := EMA(closes, slow)
	if err != nil {
		return nil, nil, nil, err
	}

	line = nanSlice(len(closes))
	for i := slow - 1; i < len(closes); i++ {
		line[i] = fastEMA[i] - slowEMA[i]
	}

	sigTail, err := EMA(line[slow-1:], signal)
	if err != nil {
		return nil, nil, nil, err
	}
	sig = nanSlice(len(closes))
	copy(sig[slow-1:], sigTail)

	hist = nanSlice(len(closes))
	for i := range hist {
		if Defined(line[i]) && Defined(sig[i]) {
			hist[i] = line[i] - sig[i]
		}
	}
	return line, sig, hist, nil
}

// OBV calculates On-Balance Volume as a forward scan with an accumulator:
// seeded with the first bar's volume, then adding volume when the close
// rises, subtracting when it falls, unchanged when flat. No warm-up.
func OBV(closes, volumes []float64) ([]float64, error) {
	if len(closes) == 0 {
		return nil, core.ErrEmptyInput
	}
	if len(closes) != len(volumes) {
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("obv close/volume length mismatch: %d vs %d", len(closes), len(volumes)))
	}

	out := make([]float64, len(closes))
	out[0] = volumes[0]
	for i := 1; i < len(closes); i++ {
		switch {
		case closes[i] > closes[i-1]:
			out[i] = out[i-1] + volumes[i]
		case closes[i] < closes[i-1]:
			out[i] = out[i-1] - volumes[i]
		default:
			out[i] = out[i-1]
		}
	}
	return out, nil
}

// ATR calculates the Average True Range as a simple moving average of the
// true range. The first bar's true range is high-low since it has no prior
// close. Warm-up: the first period-1 entries are NaN.
func ATR(bars []core.Bar, period int) ([]float64, error) {
	if err := checkPeriod("atr", period); err != nil {
		return nil, err
	}
	if err := checkHistory("atr", len(bars), period); err != nil {
		return nil, err
	}

	tr := make([]float64, len(bars))
	for i, b := range bars {
		if i == 0 {
			tr[i] = b.High - b.Low
			continue
		}
		prevClose := bars[i-1].Close
		tr[i] = math.Max(b.High-b.Low,
			math.Max(math.Abs(b.High-prevClose), math.Abs(b.Low-prevClose)))
	}
	return SMA(tr, period)
}
