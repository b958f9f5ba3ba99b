// Package store persists the category graph and job aggregates.
package store

import (
	"context"
	"io"

	"github.com/dusk-indust/farmops/internal/pipeline"
	"github.com/dusk-indust/farmops/internal/schedule"
)

// Store is the interface for the farmops persistence backend.
// Implementations: KuzuStore (production), MemStore (testing).
// Reads after a write on the same aggregate are strongly consistent.
type Store interface {
	io.Closer

	// Schema setup — called once before any data is inserted.
	InitSchema(ctx context.Context) error

	// Category graph.
	SaveGraph(ctx context.Context, snap pipeline.Snapshot) error
	LoadGraph(ctx context.Context) (*pipeline.Graph, error)

	// Job aggregates. SaveAggregate replaces the whole record; the core
	// assumes a single writer per aggregate.
	SaveAggregate(ctx context.Context, agg *schedule.Aggregate) error
	LoadAggregate(ctx context.Context, id string) (*schedule.Aggregate, error)
	ListAggregates(ctx context.Context, filter ListFilter) (*ListResult, error)
	DeleteAggregate(ctx context.Context, id string) error

	// CategoryInUse reports whether any stored job still carries a
	// schedule for the category. The category-deletion policy is decided
	// by the caller; the store only answers.
	CategoryInUse(ctx context.Context, categoryID string) (bool, error)

	// Stats.
	Stats(ctx context.Context) (*Stats, error)
}

// ListFilter selects and pages job aggregates.
//
// Filtering:
//   - If FarmerID is non-empty, only that farmer's jobs are included.
//   - If PaymentStatus is non-empty, only jobs with that status match.
//
// Pagination:
//   - PageToken is the ID of the last job from the previous page; results
//     start after that job in insertion order.
//   - PageSize <= 0 means return all matching jobs.
type ListFilter struct {
	FarmerID      string
	PaymentStatus string
	PageSize      int
	PageToken     string
}

// ListResult is the paginated response for ListAggregates.
type ListResult struct {
	Jobs          []schedule.Aggregate
	TotalSize     int
	NextPageToken string
}

// Stats summarizes the stored data set.
type Stats struct {
	CategoryCount int `json:"categoryCount"`
	JobCount      int `json:"jobCount"`
	ScheduleCount int `json:"scheduleCount"`
	ExtraCount    int `json:"extraCount"`
}
