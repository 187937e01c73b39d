// Package runstore keeps completed backtest runs queryable in memory.
package runstore

import (
	"context"
	"time"

	"github.com/edgelab-quant/edgelab/internal/core"
	"github.com/edgelab-quant/edgelab/internal/report"
)

// Store defines the interface for run history persistence.
type Store interface {
	// Save persists a completed run.
	Save(ctx context.Context, run *report.Run) error

	// GetByID retrieves a run by its ID.
	GetByID(ctx context.Context, id string) (*report.Run, error)

	// List retrieves runs matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]*report.Run, error)

	// Count returns the number of runs matching the filter.
	Count(ctx context.Context, filter ListFilter) (int, error)
}

// ListFilter defines criteria for listing runs.
type ListFilter struct {
	Symbol   string
	Interval string
	From     time.Time // matches CreatedAt
	To       time.Time
	Limit    int
	Offset   int
}

// ErrRunNotFound is returned by GetByID for unknown ids.
var ErrRunNotFound = &core.Error{Code: "RUN_NOT_FOUND", Message: "run not found"}
