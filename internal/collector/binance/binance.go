package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/edgelab-quant/edgelab/internal/core"
)

const (
	baseURL  = "https://api.binance.com"
	pageSize = 1000
)

// Binance fetches historical klines from the Binance spot API.
type Binance struct {
	client  *http.Client
	baseURL string
}

// New creates a new Binance provider
func New() *Binance {
	return &Binance{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: baseURL,
	}
}

// NewWithBaseURL creates a Binance provider with custom base URL (for testing)
func NewWithBaseURL(url string) *Binance {
	b := New()
	b.baseURL = url
	return b
}

func (b *Binance) Name() string {
	return "binance"
}

// FetchHistory fetches historical OHLCV bars from Binance. The klines
// endpoint caps each response at 1000 rows, so long ranges are paged by
// advancing the start cursor past the last open time returned.
func (b *Binance) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.Bar, error) {
	binanceInterval := toInterval(interval)

	var bars []core.Bar
	cursor := start.UnixMilli()
	endMs := end.UnixMilli()

	for cursor <= endMs {
		page, err := b.fetchPage(ctx, symbol, binanceInterval, cursor, endMs)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		for _, k := range page {
			bar, ok := klineToBar(symbol, interval, k)
			if !ok {
				continue
			}
			bars = append(bars, bar)
		}
		if len(bars) == 0 {
			break
		}

		last := bars[len(bars)-1].Time.UnixMilli()
		if len(page) < pageSize || last >= endMs {
			break
		}
		cursor = last + 1
	}

	if len(bars) == 0 {
		return nil, core.WrapError(core.ErrNoData,
			fmt.Errorf("no klines for %s between %s and %s", symbol, start.Format(time.DateOnly), end.Format(time.DateOnly)))
	}

	return core.SortBars(bars), nil
}

func (b *Binance) fetchPage(ctx context.Context, symbol, interval string, startMs, endMs int64) ([][]any, error) {
	url := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=%s&startTime=%d&endTime=%d&limit=%d",
		b.baseURL, symbol, interval, startMs, endMs, pageSize)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("fetching klines: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, core.WrapError(core.ErrCollectorFailed,
			fmt.Errorf("unexpected status %d from %s", resp.StatusCode, b.baseURL))
	}

	var klines [][]any
	if err := json.NewDecoder(resp.Body).Decode(&klines); err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("decoding response: %w", err))
	}
	return klines, nil
}

func klineToBar(symbol, interval string, k []any) (core.Bar, bool) {
	var bar core.Bar
	if len(k) < 6 {
		return bar, false
	}

	openTime, _ := k[0].(float64)
	openStr, _ := k[1].(string)
	highStr, _ := k[2].(string)
	lowStr, _ := k[3].(string)
	closeStr, _ := k[4].(string)
	volumeStr, _ := k[5].(string)

	bar.Symbol = symbol
	bar.Interval = interval
	bar.Open, _ = strconv.ParseFloat(openStr, 64)
	bar.High, _ = strconv.ParseFloat(highStr, 64)
	bar.Low, _ = strconv.ParseFloat(lowStr, 64)
	bar.Close, _ = strconv.ParseFloat(closeStr, 64)
	bar.Volume, _ = strconv.ParseFloat(volumeStr, 64)
	bar.Time = time.UnixMilli(int64(openTime)).UTC()
	return bar, true
}

func toInterval(interval string) string {
	switch interval {
	case "1m", "5m", "15m", "30m", "1h", "2h", "4h", "1d", "1w":
		return interval
	default:
		return "1d"
	}
}
