package indicator

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/edgelab-quant/edgelab/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBars(n int) []core.Bar {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]core.Bar, n)
	for i := range bars {
		price := 100 + 10*math.Sin(float64(i)/5)
		bars[i] = core.Bar{
			Symbol:   "ETHUSDT",
			Interval: "1d",
			Open:     price,
			High:     price + 2,
			Low:      price - 2,
			Close:    price + 1,
			Volume:   1000 + float64(i%7)*100,
			Time:     t0.AddDate(0, 0, i),
		}
	}
	return bars
}

func TestBuildFrame(t *testing.T) {
	bars := testBars(60)
	cfg := Config{
		RSIPeriod:   14,
		MACDFast:    12,
		MACDSlow:    26,
		MACDSignal:  9,
		ATRPeriod:   14,
		OBVMAPeriod: 20,
		MAShort:     5,
		MALong:      20,
	}

	frame, err := BuildFrame(bars, cfg)
	require.NoError(t, err)
	require.Equal(t, 60, frame.Len())

	for _, name := range []string{
		SeriesClose, SeriesRSI, SeriesMACD, SeriesMACDSignal, SeriesMACDHist,
		SeriesOBV, SeriesOBVMA, SeriesATR, SeriesMAShort, SeriesMALong,
	} {
		s, ok := frame.Series[name]
		require.True(t, ok, "missing series %s", name)
		assert.Len(t, s, 60, "series %s length", name)
	}

	// Every series is defined by the time the combined warm-up has passed.
	w := frame.Warmup()
	assert.Greater(t, w, 0)
	for name := range frame.Series {
		_, ok := frame.Value(name, w)
		assert.True(t, ok, "series %s undefined at warm-up boundary", name)
	}
	_, ok := frame.Value(SeriesMACDSignal, 0)
	assert.False(t, ok, "macd signal should be undefined at bar 0")
}

func TestBuildFrame_Deterministic(t *testing.T) {
	bars := testBars(60)
	cfg := Config{RSIPeriod: 14, MACDFast: 12, MACDSlow: 26, MACDSignal: 9, ATRPeriod: 14, OBVMAPeriod: 20}

	a, err := BuildFrame(bars, cfg)
	require.NoError(t, err)
	b, err := BuildFrame(bars, cfg)
	require.NoError(t, err)

	for name, s := range a.Series {
		other := b.Series[name]
		require.Len(t, other, len(s))
		for i := range s {
			if math.IsNaN(s[i]) {
				assert.True(t, math.IsNaN(other[i]))
				continue
			}
			assert.Equal(t, s[i], other[i], "series %s index %d", name, i)
		}
	}
}

func TestBuildFrame_InsufficientHistory(t *testing.T) {
	bars := testBars(10)
	cfg := Config{MACDFast: 12, MACDSlow: 26, MACDSignal: 9}

	_, err := BuildFrame(bars, cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInsufficientHistory))
}

func TestBuildFrame_Empty(t *testing.T) {
	_, err := BuildFrame(nil, Config{RSIPeriod: 14})
	assert.True(t, errors.Is(err, core.ErrEmptyInput))
}

func TestFrame_Value_OutOfRange(t *testing.T) {
	frame, err := BuildFrame(testBars(30), Config{RSIPeriod: 14})
	require.NoError(t, err)

	_, ok := frame.Value(SeriesRSI, -1)
	assert.False(t, ok)
	_, ok = frame.Value(SeriesRSI, 30)
	assert.False(t, ok)
	_, ok = frame.Value("unknown", 20)
	assert.False(t, ok)
}
