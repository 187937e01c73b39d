package indicator

import (
	"sync"

	"github.com/edgelab-quant/edgelab/internal/core"
)

// Canonical series names used by signal rules and the simulator.
const (
	SeriesClose      = "close"
	SeriesRSI        = "rsi"
	SeriesMACD       = "macd"
	SeriesMACDSignal = "macd_signal"
	SeriesMACDHist   = "macd_hist"
	SeriesOBV        = "obv"
	SeriesOBVMA      = "obv_ma"
	SeriesATR        = "atr"
	SeriesMAShort    = "ma_short"
	SeriesMALong     = "ma_long"
)

// Config holds the indicator periods for a frame build
type Config struct {
	RSIPeriod   int
	MACDFast    int
	MACDSlow    int
	MACDSignal  int
	ATRPeriod   int
	OBVMAPeriod int
	MAShort     int
	MALong      int
}

// Frame is a bar sequence annotated with named indicator series. Each
// series has the same length as Bars, NaN inside its warm-up.
type Frame struct {
	Bars   []core.Bar
	Series map[string][]float64
}

// Len returns the number of bars in the frame
func (f *Frame) Len() int {
	return len(f.Bars)
}

// Value returns the series value at bar i, or false when the series is
// unknown or the value is inside its warm-up.
func (f *Frame) Value(name string, i int) (float64, bool) {
	s, ok := f.Series[name]
	if !ok || i < 0 || i >= len(s) {
		return 0, false
	}
	if !Defined(s[i]) {
		return 0, false
	}
	return s[i], true
}

// BuildFrame computes every configured indicator over the bar sequence.
// Indicators are independent pure functions of the same input, so they run
// concurrently; the sequential simulation only starts once the frame is
// fully materialized.
func BuildFrame(bars []core.Bar, cfg Config) (*Frame, error) {
	if len(bars) == 0 {
		return nil, core.ErrEmptyInput
	}

	closes := core.Closes(bars)
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		volumes[i] = b.Volume
	}

	frame := &Frame{
		Bars:   bars,
		Series: map[string][]float64{SeriesClose: closes},
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)
	record := func(err error, series map[string][]float64) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return
		}
		for name, s := range series {
			frame.Series[name] = s
		}
	}
	run := func(fn func() (map[string][]float64, error)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := fn()
			record(err, s)
		}()
	}

	if cfg.RSIPeriod > 0 {
		run(func() (map[string][]float64, error) {
			s, err := RSI(closes, cfg.RSIPeriod)
			return map[string][]float64{SeriesRSI: s}, err
		})
	}
	if cfg.MACDSlow > 0 {
		run(func() (map[string][]float64, error) {
			line, sig, hist, err := MACD(closes, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal)
			return map[string][]float64{
				SeriesMACD:       line,
				SeriesMACDSignal: sig,
				SeriesMACDHist:   hist,
			}, err
		})
	}
	if cfg.OBVMAPeriod > 0 {
		run(func() (map[string][]float64, error) {
			obv, err := OBV(closes, volumes)
			if err != nil {
				return nil, err
			}
			ma, err := SMA(obv, cfg.OBVMAPeriod)
			return map[string][]float64{SeriesOBV: obv, SeriesOBVMA: ma}, err
		})
	}
	if cfg.ATRPeriod > 0 {
		run(func() (map[string][]float64, error) {
			s, err := ATR(bars, cfg.ATRPeriod)
			return map[string][]float64{SeriesATR: s}, err
		})
	}
	if cfg.MAShort > 0 {
		run(func() (map[string][]float64, error) {
			s, err := SMA(closes, cfg.MAShort)
			return map[string][]float64{SeriesMAShort: s}, err
		})
	}
	if cfg.MALong > 0 {
		run(func() (map[string][]float64, error) {
			s, err := SMA(closes, cfg.MALong)
			return map[string][]float64{SeriesMALong: s}, err
		})
	}

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return frame, nil
}

// Warmup returns the index of the first bar where every series in the
// frame is defined, or the frame length if no such bar exists.
func (f *Frame) Warmup() int {
	for i := 0; i < f.Len(); i++ {
		defined := true
		for _, s := range f.Series {
			if !Defined(s[i]) {
				defined = false
				break
			}
		}
		if defined {
			return i
		}
	}
	return f.Len()
}
