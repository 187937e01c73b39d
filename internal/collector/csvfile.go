package collector

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/edgelab-quant/edgelab/internal/core"
)

// CSVProvider serves bars from pre-existing CSV files and never touches the
// network. Files follow the cache layout: <dir>/<symbol>_<interval>.csv.
type CSVProvider struct {
	dir string
}

// NewCSVProvider creates a provider backed by local CSV files
func NewCSVProvider(dir string) *CSVProvider {
	return &CSVProvider{dir: dir}
}

func (p *CSVProvider) Name() string {
	return "csv"
}

// FetchHistory loads bars from the symbol's CSV file, trimmed to the
// requested range.
func (p *CSVProvider) FetchHistory(_ context.Context, symbol string, start, end time.Time, interval string) ([]core.Bar, error) {
	path := filepath.Join(p.dir, fmt.Sprintf("%s_%s.csv", symbol, interval))

	bars, err := readBarsCSV(path, symbol, interval)
	if err != nil {
		return nil, core.WrapError(core.ErrNoData,
			fmt.Errorf("loading %s: %w", path, err))
	}

	out := window(bars, start, end)
	if len(out) == 0 {
		return nil, core.WrapError(core.ErrNoData,
			fmt.Errorf("no bars for %s between %s and %s in %s",
				symbol, start.Format(time.DateOnly), end.Format(time.DateOnly), path))
	}
	return out, nil
}
