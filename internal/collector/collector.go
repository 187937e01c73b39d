package collector

import (
	"context"
	"sync"
	"time"

	"github.com/edgelab-quant/edgelab/internal/core"
)

// HistoryProvider fetches historical OHLCV bars for one symbol. Providers
// must return bars sorted ascending by open time with no duplicates.
type HistoryProvider interface {
	Name() string
	FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.Bar, error)
}

// Registry manages provider plugins by name.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]HistoryProvider
}

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]HistoryProvider),
	}
}

// Register adds a provider to the registry
func (r *Registry) Register(p HistoryProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get retrieves a provider by name
func (r *Registry) Get(name string) (HistoryProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Names returns the registered provider names
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
