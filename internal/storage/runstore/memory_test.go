package runstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/edgelab-quant/edgelab/internal/report"
)

func runAt(id, symbol string, created time.Time) *report.Run {
	return &report.Run{ID: id, Symbol: symbol, Interval: "1d", CreatedAt: created}
}

func TestMemoryStore_SaveAndGet(t *testing.T) {
	store := NewMemoryStore(10)
	ctx := context.Background()

	run := runAt("r1", "BTCUSDT", time.Now())
	if err := store.Save(ctx, run); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.GetByID(ctx, "r1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Symbol != "BTCUSDT" {
		t.Errorf("expected BTCUSDT, got %s", got.Symbol)
	}

	if _, err := store.GetByID(ctx, "missing"); err != ErrRunNotFound {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestMemoryStore_Capacity(t *testing.T) {
	store := NewMemoryStore(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		store.Save(ctx, runAt(fmt.Sprintf("r%d", i), "BTCUSDT", time.Now()))
	}

	count, _ := store.Count(ctx, ListFilter{})
	if count != 3 {
		t.Errorf("expected 3 runs after eviction, got %d", count)
	}

	// Oldest should be gone
	if _, err := store.GetByID(ctx, "r0"); err != ErrRunNotFound {
		t.Error("expected r0 evicted")
	}
	if _, err := store.GetByID(ctx, "r4"); err != nil {
		t.Errorf("expected r4 present, got %v", err)
	}
}

func TestMemoryStore_ListNewestFirst(t *testing.T) {
	store := NewMemoryStore(10)
	ctx := context.Background()
	base := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

	store.Save(ctx, runAt("r1", "BTCUSDT", base))
	store.Save(ctx, runAt("r2", "ETHUSDT", base.Add(time.Hour)))
	store.Save(ctx, runAt("r3", "BTCUSDT", base.Add(2*time.Hour)))

	runs, err := store.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].ID != "r3" || runs[2].ID != "r1" {
		t.Errorf("expected newest first, got %s..%s", runs[0].ID, runs[2].ID)
	}
}

func TestMemoryStore_ListFilters(t *testing.T) {
	store := NewMemoryStore(10)
	ctx := context.Background()
	base := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

	store.Save(ctx, runAt("r1", "BTCUSDT", base))
	store.Save(ctx, runAt("r2", "ETHUSDT", base.Add(time.Hour)))
	store.Save(ctx, runAt("r3", "BTCUSDT", base.Add(2*time.Hour)))

	bySymbol, _ := store.List(ctx, ListFilter{Symbol: "BTCUSDT"})
	if len(bySymbol) != 2 {
		t.Errorf("expected 2 BTCUSDT runs, got %d", len(bySymbol))
	}

	byTime, _ := store.List(ctx, ListFilter{From: base.Add(30 * time.Minute)})
	if len(byTime) != 2 {
		t.Errorf("expected 2 runs after cutoff, got %d", len(byTime))
	}

	limited, _ := store.List(ctx, ListFilter{Limit: 1})
	if len(limited) != 1 || limited[0].ID != "r3" {
		t.Errorf("expected newest single run, got %v", limited)
	}

	offset, _ := store.List(ctx, ListFilter{Offset: 5})
	if len(offset) != 0 {
		t.Errorf("expected empty page, got %d", len(offset))
	}
}
