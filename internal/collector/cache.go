package collector

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/edgelab-quant/edgelab/internal/core"
)

// Cache wraps a provider with a local CSV store. A request is served from
// disk when the cached range covers it; otherwise the full range is fetched
// again and the file rewritten. One file per symbol and interval.
type Cache struct {
	provider HistoryProvider
	dir      string
	log      *zap.Logger
}

// NewCache creates a caching layer over the given provider
func NewCache(provider HistoryProvider, dir string, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{provider: provider, dir: dir, log: log}
}

func (c *Cache) Name() string {
	return c.provider.Name()
}

// FetchHistory serves bars from the CSV cache, falling back to the wrapped
// provider when the cache misses or does not cover the requested range.
func (c *Cache) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.Bar, error) {
	path := c.filePath(symbol, interval)

	if cached, err := readBarsCSV(path, symbol, interval); err == nil && covers(cached, start, end) {
		c.log.Info("serving bars from cache",
			zap.String("symbol", symbol),
			zap.String("path", path))
		return window(cached, start, end), nil
	}

	c.log.Info("downloading bars",
		zap.String("symbol", symbol),
		zap.String("provider", c.provider.Name()),
		zap.String("interval", interval))

	bars, err := c.provider.FetchHistory(ctx, symbol, start, end, interval)
	if err != nil {
		return nil, err
	}

	if err := writeBarsCSV(path, bars); err != nil {
		// A failed cache write should not fail the fetch.
		c.log.Warn("failed to write bar cache", zap.String("path", path), zap.Error(err))
	}

	return window(bars, start, end), nil
}

func (c *Cache) filePath(symbol, interval string) string {
	return filepath.Join(c.dir, fmt.Sprintf("%s_%s.csv", symbol, interval))
}

// covers reports whether the cached bars span the requested range.
func covers(bars []core.Bar, start, end time.Time) bool {
	if len(bars) == 0 {
		return false
	}
	return !bars[0].Time.After(start) && !bars[len(bars)-1].Time.Before(end)
}

// window trims bars to the requested range.
func window(bars []core.Bar, start, end time.Time) []core.Bar {
	out := make([]core.Bar, 0, len(bars))
	for _, b := range bars {
		if b.Time.Before(start) || b.Time.After(end) {
			continue
		}
		out = append(out, b)
	}
	return out
}

var csvHeader = []string{"time", "open", "high", "low", "close", "volume"}

func writeBarsCSV(path string, bars []core.Bar) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, b := range bars {
		record := []string{
			b.Time.UTC().Format(time.RFC3339),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatFloat(b.Volume, 'f', -1, 64),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func readBarsCSV(path, symbol, interval string) ([]core.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("cache file %s is empty", path))
	}

	bars := make([]core.Bar, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) != len(csvHeader) {
			return nil, fmt.Errorf("malformed cache row in %s", path)
		}
		ts, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			return nil, fmt.Errorf("parsing cached time %q: %w", rec[0], err)
		}
		bar := core.Bar{Symbol: symbol, Interval: interval, Time: ts}
		if bar.Open, err = strconv.ParseFloat(rec[1], 64); err != nil {
			return nil, err
		}
		if bar.High, err = strconv.ParseFloat(rec[2], 64); err != nil {
			return nil, err
		}
		if bar.Low, err = strconv.ParseFloat(rec[3], 64); err != nil {
			return nil, err
		}
		if bar.Close, err = strconv.ParseFloat(rec[4], 64); err != nil {
			return nil, err
		}
		if bar.Volume, err = strconv.ParseFloat(rec[5], 64); err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}
	return core.SortBars(bars), nil
}
