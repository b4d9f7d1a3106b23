// Package store persists analysis runs so reports can be regenerated and
// served without rerunning the distance pass.
package store

import (
	"context"

	"github.com/breathe-india/aqcover/internal/coverage"
	"github.com/breathe-india/aqcover/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Source model.SourceKind `json:"source,omitempty"`
	Limit  int              `json:"limit,omitempty"`
	Offset int              `json:"offset,omitempty"`
}

// Store defines the persistence interface for analysis runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, source model.SourceKind, stations int, diags model.Diagnostics) (*model.AnalysisRun, error)
	SaveResults(ctx context.Context, runID string, regions map[string]coverage.RegionAggregate, summary coverage.Summary) error
	GetRun(ctx context.Context, runID string) (*model.AnalysisRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.AnalysisRun, error)

	// Results
	GetRegions(ctx context.Context, runID string) (map[string]coverage.RegionAggregate, error)
	GetSummary(ctx context.Context, runID string) (*coverage.Summary, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the given driver ("sqlite" or "postgres").
func Open(ctx context.Context, driver, databaseURL string) (Store, error) {
	if driver == "postgres" {
		return NewPostgres(ctx, databaseURL)
	}
	return NewSQLite(databaseURL)
}
