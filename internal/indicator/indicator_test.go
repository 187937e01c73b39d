package indicator

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/edgelab-quant/edgelab/internal/core"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	out, err := SMA(values, 3)
	if err != nil {
		t.Fatalf("SMA() error = %v", err)
	}
	if len(out) != len(values) {
		t.Fatalf("len = %d, want %d", len(out), len(values))
	}
	if Defined(out[0]) || Defined(out[1]) {
		t.Error("first period-1 entries should be warm-up")
	}
	want := []float64{2, 3, 4}
	for i, w := range want {
		if !almostEqual(out[i+2], w) {
			t.Errorf("out[%d] = %v, want %v", i+2, out[i+2], w)
		}
	}
}

func TestSMA_InsufficientHistory(t *testing.T) {
	_, err := SMA([]float64{1, 2}, 3)
	if !errors.Is(err, core.ErrInsufficientHistory) {
		t.Errorf("err = %v, want INSUFFICIENT_HISTORY", err)
	}
}

func TestSMA_InvalidPeriod(t *testing.T) {
	_, err := SMA([]float64{1, 2, 3}, 0)
	if !errors.Is(err, core.ErrConfigInvalid) {
		t.Errorf("err = %v, want CONFIG_INVALID", err)
	}
}

func TestEMA(t *testing.T) {
	values := []float64{10, 11, 12, 13}
	out, err := EMA(values, 3)
	if err != nil {
		t.Fatalf("EMA() error = %v", err)
	}

	// alpha = 0.5, seeded with 10:
	// ema1 = 10.5, ema2 = 11.25, ema3 = 12.125
	if Defined(out[0]) || Defined(out[1]) {
		t.Error("first period-1 entries should be warm-up")
	}
	if !almostEqual(out[2], 11.25) {
		t.Errorf("out[2] = %v, want 11.25", out[2])
	}
	if !almostEqual(out[3], 12.125) {
		t.Errorf("out[3] = %v, want 12.125", out[3])
	}
}

func TestRSI_AllGains(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5, 6}
	out, err := RSI(closes, 3)
	if err != nil {
		t.Fatalf("RSI() error = %v", err)
	}
	// No losses anywhere: RSI pinned at 100 once defined.
	for i := 3; i < len(out); i++ {
		if out[i] != 100 {
			t.Errorf("out[%d] = %v, want 100", i, out[i])
		}
	}
	if Defined(out[2]) {
		t.Error("RSI needs period changes before it is defined")
	}
}

func TestRSI_Balanced(t *testing.T) {
	// Alternating +1/-1 over period 2: avg gain = avg loss, RSI = 50.
	closes := []float64{10, 11, 10, 11, 10}
	out, err := RSI(closes, 2)
	if err != nil {
		t.Fatalf("RSI() error = %v", err)
	}
	if !almostEqual(out[2], 50) {
		t.Errorf("out[2] = %v, want 50", out[2])
	}
}

func TestRSI_WilderSmoothing(t *testing.T) {
	// period 2, closes: 10, 12, 11, 13
	// changes: +2, -1, +2
	// seed (first 2 changes): avgGain=1, avgLoss=0.5 -> RS=2 -> RSI=66.666...
	// next: avgGain=(1*1+2)/2=1.5, avgLoss=(0.5*1+0)/2=0.25 -> RS=6 -> RSI=600/7*... = 100-100/7
	closes := []float64{10, 12, 11, 13}
	out, err := RSI(closes, 2)
	if err != nil {
		t.Fatalf("RSI() error = %v", err)
	}
	if !almostEqual(out[2], 100-100.0/3) {
		t.Errorf("out[2] = %v, want %v", out[2], 100-100.0/3)
	}
	if !almostEqual(out[3], 100-100.0/7) {
		t.Errorf("out[3] = %v, want %v", out[3], 100-100.0/7)
	}
}

func TestMACD(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}

	line, sig, hist, err := MACD(closes, 3, 6, 3)
	if err != nil {
		t.Fatalf("MACD() error = %v", err)
	}

	if Defined(line[4]) {
		t.Error("line should be warm-up before slow period")
	}
	if !Defined(line[5]) {
		t.Error("line should be defined at slow-1")
	}
	if Defined(sig[6]) || !Defined(sig[7]) {
		t.Error("signal should be defined from slow+signal-2")
	}
	for i := 7; i < len(closes); i++ {
		if !almostEqual(hist[i], line[i]-sig[i]) {
			t.Errorf("hist[%d] = %v, want %v", i, hist[i], line[i]-sig[i])
		}
	}
	// On a steady uptrend the fast EMA stays above the slow one.
	if line[len(line)-1] <= 0 {
		t.Errorf("line on uptrend = %v, want > 0", line[len(line)-1])
	}
}

func TestMACD_FastNotBelowSlow(t *testing.T) {
	closes := make([]float64, 40)
	_, _, _, err := MACD(closes, 26, 12, 9)
	if !errors.Is(err, core.ErrConfigInvalid) {
		t.Errorf("err = %v, want CONFIG_INVALID", err)
	}
}

func TestOBV(t *testing.T) {
	closes := []float64{10, 11, 11, 9, 12}
	volumes := []float64{100, 200, 300, 400, 500}

	out, err := OBV(closes, volumes)
	if err != nil {
		t.Fatalf("OBV() error = %v", err)
	}

	want := []float64{100, 300, 300, -100, 400}
	for i, w := range want {
		if !almostEqual(out[i], w) {
			t.Errorf("out[%d] = %v, want %v", i, out[i], w)
		}
	}
}

func TestOBV_Empty(t *testing.T) {
	_, err := OBV(nil, nil)
	if !errors.Is(err, core.ErrEmptyInput) {
		t.Errorf("err = %v, want EMPTY_INPUT", err)
	}
}

func TestATR(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := []core.Bar{
		{High: 12, Low: 10, Close: 11, Time: t0},
		{High: 14, Low: 11, Close: 13, Time: t0.AddDate(0, 0, 1)}, // TR = max(3, 3, 0) = 3
		{High: 13, Low: 9, Close: 10, Time: t0.AddDate(0, 0, 2)},  // TR = max(4, 0, 4) = 4
	}

	out, err := ATR(bars, 2)
	if err != nil {
		t.Fatalf("ATR() error = %v", err)
	}
	if Defined(out[0]) {
		t.Error("first period-1 entries should be warm-up")
	}
	// tr = [2, 3, 4]
	if !almostEqual(out[1], 2.5) {
		t.Errorf("out[1] = %v, want 2.5", out[1])
	}
	if !almostEqual(out[2], 3.5) {
		t.Errorf("out[2] = %v, want 3.5", out[2])
	}
}

func TestATR_GapTrueRange(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	// Gap down: prior close far above today's range.
	bars := []core.Bar{
		{High: 102, Low: 100, Close: 101, Time: t0},
		{High: 95, Low: 93, Close: 94, Time: t0.AddDate(0, 0, 1)}, // TR = |95-101| = 6
	}
	out, err := ATR(bars, 1)
	if err != nil {
		t.Fatalf("ATR() error = %v", err)
	}
	if !almostEqual(out[1], 6) {
		t.Errorf("out[1] = %v, want 6 (gap uses prior close)", out[1])
	}
}
