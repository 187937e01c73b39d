package core

import (
	"sort"
	"time"
)

// Bar represents one OHLCV candle
type Bar struct {
	Symbol   string
	Interval string // "1m", "1h", "1d"
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
	Time     time.Time
}

// IsValid checks that the bar carries usable prices
func (b Bar) IsValid() bool {
	return b.Open > 0 && b.High > 0 && b.Low > 0 && b.Close > 0 && b.Volume >= 0
}

// Action represents a per-bar trading signal
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Side labels an executed fill in the trade log. SideSellFinal marks the
// forced liquidation at the end of the bar sequence so analyzers can tell
// it apart from signal-driven exits.
type Side string

const (
	SideBuy       Side = "BUY"
	SideSell      Side = "SELL"
	SideSellFinal Side = "SELL_FINAL"
)

// ExitReason records what triggered a sell fill.
type ExitReason string

const (
	ExitSignal       ExitReason = "signal"
	ExitTrailingStop ExitReason = "trailing_stop"
	ExitDrawdown     ExitReason = "drawdown"
	ExitEndOfData    ExitReason = "end_of_data"
)

// Trade is an immutable record of one executed fill
type Trade struct {
	Time          time.Time
	Side          Side
	Reason        ExitReason // empty for buys
	Price         float64    // raw close at fill time
	Quantity      float64
	Commission    float64
	CashAfter     float64
	QuantityAfter float64
}

// EquityPoint is one sample of the equity curve: cash plus marked position
type EquityPoint struct {
	Time  time.Time
	Value float64
}

// SortBars orders bars by ascending time and drops duplicate timestamps,
// keeping the last observation for each. Returns a new slice.
func SortBars(bars []Bar) []Bar {
	out := make([]Bar, len(bars))
	copy(out, bars)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })

	dedup := out[:0]
	for _, b := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Time.Equal(b.Time) {
			dedup[n-1] = b
			continue
		}
		dedup = append(dedup, b)
	}
	return dedup
}

// BarsSorted reports whether the sequence is strictly ascending in time
// with no duplicate timestamps.
func BarsSorted(bars []Bar) bool {
	for i := 1; i < len(bars); i++ {
		if !bars[i].Time.After(bars[i-1].Time) {
			return false
		}
	}
	return true
}

// Closes extracts the close series from a bar sequence
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
