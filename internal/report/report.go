// Package report renders and archives backtest run artifacts.
package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/edgelab-quant/edgelab/internal/core"
	"github.com/edgelab-quant/edgelab/internal/perf"
	"github.com/edgelab-quant/edgelab/internal/storage/archive"
)

// Run bundles everything produced by one symbol's backtest.
type Run struct {
	ID        string      `json:"id"`
	Symbol    string      `json:"symbol"`
	Interval  string      `json:"interval"`
	Start     time.Time   `json:"start"`
	End       time.Time   `json:"end"`
	CreatedAt time.Time   `json:"created_at"`
	Report    perf.Report `json:"report"`

	EquityCurve []core.EquityPoint `json:"-"`
	Trades      []core.Trade       `json:"-"`
}

// EquityCSV renders the equity curve as CSV.
func EquityCSV(curve []core.EquityPoint) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"time", "equity"}); err != nil {
		return nil, err
	}
	for _, p := range curve {
		record := []string{
			p.Time.UTC().Format(time.RFC3339),
			strconv.FormatFloat(p.Value, 'f', -1, 64),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// TradesCSV renders the trade log as CSV.
func TradesCSV(trades []core.Trade) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"time", "side", "reason", "price", "quantity", "commission", "cash_after", "quantity_after"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, tr := range trades {
		record := []string{
			tr.Time.UTC().Format(time.RFC3339),
			string(tr.Side),
			string(tr.Reason),
			strconv.FormatFloat(tr.Price, 'f', -1, 64),
			strconv.FormatFloat(tr.Quantity, 'f', -1, 64),
			strconv.FormatFloat(tr.Commission, 'f', -1, 64),
			strconv.FormatFloat(tr.CashAfter, 'f', -1, 64),
			strconv.FormatFloat(tr.QuantityAfter, 'f', -1, 64),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// Writer archives run artifacts to a storage backend. Each run gets its
// own directory: runs/<id>/{run.json,equity.csv,trades.csv}.
type Writer struct {
	store archive.Storage
	log   *zap.Logger
}

// NewWriter creates an archiving writer
func NewWriter(store archive.Storage, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{store: store, log: log}
}

// Save persists all artifacts of one run.
func (w *Writer) Save(ctx context.Context, run *Run) error {
	base := fmt.Sprintf("runs/%s", run.ID)

	meta, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding run metadata: %w", err)
	}
	if err := w.store.Write(ctx, base+"/run.json", meta); err != nil {
		return fmt.Errorf("writing run metadata: %w", err)
	}

	equity, err := EquityCSV(run.EquityCurve)
	if err != nil {
		return fmt.Errorf("encoding equity curve: %w", err)
	}
	if err := w.store.Write(ctx, base+"/equity.csv", equity); err != nil {
		return fmt.Errorf("writing equity curve: %w", err)
	}

	trades, err := TradesCSV(run.Trades)
	if err != nil {
		return fmt.Errorf("encoding trades: %w", err)
	}
	if err := w.store.Write(ctx, base+"/trades.csv", trades); err != nil {
		return fmt.Errorf("writing trades: %w", err)
	}

	w.log.Info("archived run",
		zap.String("run_id", run.ID),
		zap.String("symbol", run.Symbol),
		zap.Int("equity_points", len(run.EquityCurve)),
		zap.Int("trades", len(run.Trades)))
	return nil
}
