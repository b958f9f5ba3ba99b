package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/dusk-indust/farmops/internal/pipeline"
	"github.com/dusk-indust/farmops/internal/schedule"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using Go maps. Thread-safe via sync.RWMutex.
// Jobs keep a separate insertion-order slice for deterministic pagination.
type MemStore struct {
	mu         sync.RWMutex
	categories []pipeline.Category
	jobs       map[string]*schedule.Aggregate
	orderIDs   []string // insertion-order job IDs
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{
		jobs: make(map[string]*schedule.Aggregate),
	}
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

// SaveGraph replaces the stored category set with the snapshot's contents.
func (m *MemStore) SaveGraph(_ context.Context, snap pipeline.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories = snap.Categories()
	return nil
}

// LoadGraph rebuilds a Graph from the stored categories.
func (m *MemStore) LoadGraph(_ context.Context) (*pipeline.Graph, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return pipeline.NewGraphFrom(m.categories), nil
}

// SaveAggregate stores a deep copy of the job, replacing any previous
// version wholesale.
func (m *MemStore) SaveAggregate(_ context.Context, agg *schedule.Aggregate) error {
	if agg.ID == "" {
		return &pipeline.ValidationError{Reason: "aggregate id must not be empty"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[agg.ID]; !exists {
		m.orderIDs = append(m.orderIDs, agg.ID)
	}
	m.jobs[agg.ID] = agg.Clone()
	return nil
}

// LoadAggregate returns a deep copy of the job with the given id. The
// returned copy is safe to mutate without affecting the store.
func (m *MemStore) LoadAggregate(_ context.Context, id string) (*schedule.Aggregate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	agg, ok := m.jobs[id]
	if !ok {
		return nil, &pipeline.NotFoundError{Kind: "job", ID: id}
	}
	return agg.Clone(), nil
}

// ListAggregates returns jobs matching the filter with pagination support.
func (m *MemStore) ListAggregates(_ context.Context, filter ListFilter) (*ListResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Determine where to start based on page token.
	startIdx := 0
	if filter.PageToken != "" {
		found := false
		for i, id := range m.orderIDs {
			if id == filter.PageToken {
				startIdx = i + 1
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("invalid page token %q", filter.PageToken)
		}
	}

	var matched []schedule.Aggregate
	for i := startIdx; i < len(m.orderIDs); i++ {
		agg := m.jobs[m.orderIDs[i]]
		if !matchesFilter(agg, filter) {
			continue
		}
		matched = append(matched, *agg.Clone())
	}

	// Also count matches before startIdx for the total size.
	totalBefore := 0
	for i := 0; i < startIdx; i++ {
		if matchesFilter(m.jobs[m.orderIDs[i]], filter) {
			totalBefore++
		}
	}
	totalSize := totalBefore + len(matched)

	var nextPageToken string
	if filter.PageSize > 0 && len(matched) > filter.PageSize {
		nextPageToken = matched[filter.PageSize-1].ID
		matched = matched[:filter.PageSize]
	}

	if matched == nil {
		matched = []schedule.Aggregate{}
	}

	return &ListResult{
		Jobs:          matched,
		TotalSize:     totalSize,
		NextPageToken: nextPageToken,
	}, nil
}

// DeleteAggregate removes the job with the given id.
func (m *MemStore) DeleteAggregate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[id]; !ok {
		return &pipeline.NotFoundError{Kind: "job", ID: id}
	}
	delete(m.jobs, id)
	for i, oid := range m.orderIDs {
		if oid == id {
			m.orderIDs = append(m.orderIDs[:i], m.orderIDs[i+1:]...)
			break
		}
	}
	return nil
}

// CategoryInUse reports whether any stored job carries a schedule for the
// category.
func (m *MemStore) CategoryInUse(_ context.Context, categoryID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, agg := range m.jobs {
		if agg.HasCategory(categoryID) {
			return true, nil
		}
	}
	return false, nil
}

// Stats returns counts of stored categories, jobs, schedules and extras.
func (m *MemStore) Stats(_ context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := &Stats{
		CategoryCount: len(m.categories),
		JobCount:      len(m.jobs),
	}
	for _, agg := range m.jobs {
		st.ScheduleCount += len(agg.Schedules)
		st.ExtraCount += len(agg.Extras)
	}
	return st, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}

// matchesFilter returns true if the job passes the farmer and payment
// status filters.
func matchesFilter(agg *schedule.Aggregate, filter ListFilter) bool {
	if filter.FarmerID != "" && agg.FarmerID != filter.FarmerID {
		return false
	}
	if filter.PaymentStatus != "" && string(agg.PaymentStatus) != filter.PaymentStatus {
		return false
	}
	return true
}
