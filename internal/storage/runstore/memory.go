package runstore

import (
	"context"
	"sync"

	"github.com/edgelab-quant/edgelab/internal/report"
)

// MemoryStore is a bounded in-memory run store.
type MemoryStore struct {
	runs    []*report.Run
	maxSize int
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory store with max capacity.
func NewMemoryStore(maxSize int) *MemoryStore {
	return &MemoryStore{
		runs:    make([]*report.Run, 0, maxSize),
		maxSize: maxSize,
	}
}

// Save adds a run to the store, evicting the oldest over capacity.
func (m *MemoryStore) Save(_ context.Context, run *report.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runs = append(m.runs, run)
	if len(m.runs) > m.maxSize {
		m.runs = m.runs[len(m.runs)-m.maxSize:]
	}
	return nil
}

// GetByID retrieves a run by ID.
func (m *MemoryStore) GetByID(_ context.Context, id string) (*report.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, run := range m.runs {
		if run.ID == id {
			return run, nil
		}
	}
	return nil, ErrRunNotFound
}

// List returns runs matching the filter, newest first.
func (m *MemoryStore) List(_ context.Context, filter ListFilter) ([]*report.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*report.Run
	for i := len(m.runs) - 1; i >= 0; i-- {
		if matches(m.runs[i], filter) {
			result = append(result, m.runs[i])
		}
	}

	if filter.Offset >= len(result) {
		return []*report.Run{}, nil
	}
	if filter.Offset > 0 {
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

// Count returns the count of matching runs.
func (m *MemoryStore) Count(_ context.Context, filter ListFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, run := range m.runs {
		if matches(run, filter) {
			count++
		}
	}
	return count, nil
}

func matches(run *report.Run, filter ListFilter) bool {
	if filter.Symbol != "" && run.Symbol != filter.Symbol {
		return false
	}
	if filter.Interval != "" && run.Interval != filter.Interval {
		return false
	}
	if !filter.From.IsZero() && run.CreatedAt.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && run.CreatedAt.After(filter.To) {
		return false
	}
	return true
}
