package app

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgelab-quant/edgelab/internal/config"
	"github.com/edgelab-quant/edgelab/internal/core"
	"github.com/edgelab-quant/edgelab/internal/storage/archive"
	"github.com/edgelab-quant/edgelab/internal/storage/runstore"
)

var t0 = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

type fakeProvider struct {
	name  string
	bars  []core.Bar
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) FetchHistory(_ context.Context, symbol string, _, _ time.Time, interval string) ([]core.Bar, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]core.Bar, len(f.bars))
	for i, b := range f.bars {
		b.Symbol = symbol
		b.Interval = interval
		out[i] = b
	}
	return out, nil
}

// syntheticBars builds a wave long enough to clear every indicator warm-up
// and noisy enough to fire entries and exits.
func syntheticBars(n int) []core.Bar {
	bars := make([]core.Bar, n)
	for i := 0; i < n; i++ {
		price := 100 + 20*math.Sin(float64(i)/6) + float64(i)/10
		bars[i] = core.Bar{
			Open:   price * 0.995,
			High:   price * 1.01,
			Low:    price * 0.99,
			Close:  price,
			Volume: 1000 + 50*float64(i%7),
			Time:   t0.AddDate(0, 0, i),
		}
	}
	return bars
}

func testConfig(t *testing.T, symbols ...string) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Data.Symbols = symbols
	cfg.Data.Start = "2023-01-01"
	cfg.Data.End = "2023-06-30"
	cfg.Data.Dir = t.TempDir()
	cfg.Backtest.DrawdownLimit = 0 // keep the kill-switch out of orchestration tests
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestApp_Run(t *testing.T) {
	cfg := testConfig(t, "BTCUSDT")
	a, err := New(cfg, nil, nil)
	require.NoError(t, err)

	fake := &fakeProvider{name: "binance", bars: syntheticBars(180)}
	a.RegisterProvider(fake)

	runs, err := a.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)

	run := runs[0]
	assert.Equal(t, "BTCUSDT", run.Symbol)
	assert.NotEmpty(t, run.ID)
	assert.Len(t, run.EquityCurve, 180)
	assert.Equal(t, cfg.Backtest.InitialCapital, run.Report.InitialCapital)
	assert.Equal(t, 1, fake.calls)
}

func TestApp_Run_MultipleSymbols(t *testing.T) {
	cfg := testConfig(t, "BTCUSDT", "ETHUSDT", "SOLUSDT")
	a, err := New(cfg, nil, nil)
	require.NoError(t, err)
	a.RegisterProvider(&fakeProvider{name: "binance", bars: syntheticBars(120)})

	runs, err := a.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "ETHUSDT", runs[1].Symbol)
}

func TestApp_Run_SymbolsFailIndependently(t *testing.T) {
	cfg := testConfig(t, "BTCUSDT", "ETHUSDT")
	a, err := New(cfg, nil, nil)
	require.NoError(t, err)

	fake := &fakeProvider{name: "binance", bars: syntheticBars(120)}
	a.RegisterProvider(&flakyProvider{inner: fake, failOn: 1})

	runs, err := a.Run(context.Background())
	require.NoError(t, err, "one good symbol should keep the sweep alive")
	require.Len(t, runs, 1)
	assert.Equal(t, "ETHUSDT", runs[0].Symbol)
}

// flakyProvider fails the nth call and delegates the rest.
type flakyProvider struct {
	inner  *fakeProvider
	failOn int
	calls  int
}

func (f *flakyProvider) Name() string { return f.inner.Name() }

func (f *flakyProvider) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.Bar, error) {
	f.calls++
	if f.calls == f.failOn {
		return nil, core.ErrCollectorFailed
	}
	return f.inner.FetchHistory(ctx, symbol, start, end, interval)
}

func TestApp_Run_AllSymbolsFail(t *testing.T) {
	cfg := testConfig(t, "BTCUSDT")
	a, err := New(cfg, nil, nil)
	require.NoError(t, err)
	a.RegisterProvider(&fakeProvider{name: "binance", err: core.ErrCollectorFailed})

	_, err = a.Run(context.Background())
	assert.ErrorIs(t, err, core.ErrCollectorFailed)
}

func TestApp_Run_ContextCancelled(t *testing.T) {
	cfg := testConfig(t, "BTCUSDT", "ETHUSDT")
	a, err := New(cfg, nil, nil)
	require.NoError(t, err)
	a.RegisterProvider(&fakeProvider{name: "binance", bars: syntheticBars(120)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = a.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestApp_Run_UnknownProvider(t *testing.T) {
	cfg := testConfig(t, "BTCUSDT")
	cfg.Data.Provider = "csv" // registered, but no files on disk

	a, err := New(cfg, nil, nil)
	require.NoError(t, err)

	_, err = a.Run(context.Background())
	assert.ErrorIs(t, err, core.ErrNoData)
}

func TestApp_Run_RecordsHistory(t *testing.T) {
	cfg := testConfig(t, "BTCUSDT", "ETHUSDT")
	a, err := New(cfg, nil, nil)
	require.NoError(t, err)
	a.RegisterProvider(&fakeProvider{name: "binance", bars: syntheticBars(120)})

	_, err = a.Run(context.Background())
	require.NoError(t, err)

	all, err := a.History(context.Background(), runstore.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	btc, err := a.History(context.Background(), runstore.ListFilter{Symbol: "BTCUSDT"})
	require.NoError(t, err)
	require.Len(t, btc, 1)
	assert.Equal(t, "BTCUSDT", btc[0].Symbol)
}

func TestApp_Run_ArchivesWhenEnabled(t *testing.T) {
	cfg := testConfig(t, "BTCUSDT")
	cfg.Archive.Enabled = true
	cfg.Archive.Type = "localfs"
	cfg.Archive.Path = t.TempDir()

	a, err := New(cfg, nil, nil)
	require.NoError(t, err)
	a.RegisterProvider(&fakeProvider{name: "binance", bars: syntheticBars(120)})

	runs, err := a.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)

	// The writer should have stored run.json, equity.csv and trades.csv.
	store, err := archive.NewLocalFS(cfg.Archive.Path)
	require.NoError(t, err)
	paths, err := store.List(context.Background(), "runs/"+runs[0].ID)
	require.NoError(t, err)
	assert.Len(t, paths, 3)
}
