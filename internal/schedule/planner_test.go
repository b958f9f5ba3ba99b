package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPopulate_SnapshotsCategoryNames(t *testing.T) {
	snap, cats := testChain(t)

	agg := NewAggregate("f", "", "fd", "", RateInfo{})
	added, err := Populate(agg, snap, cats[0].ID, time.Now())
	require.NoError(t, err)
	require.Len(t, added, 3)
	assert.Equal(t, "pulling", added[0].CategoryName)
	assert.Equal(t, "cutting", added[1].CategoryName)
	assert.Equal(t, "packing", added[2].CategoryName)
}

func TestPopulate_Idempotent(t *testing.T) {
	snap, cats := testChain(t)

	agg := NewAggregate("f", "", "fd", "", RateInfo{})
	_, err := Populate(agg, snap, cats[0].ID, time.Now())
	require.NoError(t, err)

	added, err := Populate(agg, snap, cats[0].ID, time.Now())
	require.NoError(t, err)
	assert.Empty(t, added, "second populate over the same chain adds nothing")
	assert.Len(t, agg.Schedules, 3)
}

func TestPopulate_MidChainStartSkipsEarlierCategories(t *testing.T) {
	snap, cats := testChain(t)

	agg := NewAggregate("f", "", "fd", "", RateInfo{})
	added, err := Populate(agg, snap, cats[1].ID, time.Now())
	require.NoError(t, err)
	require.Len(t, added, 2)
	assert.Equal(t, cats[1].ID, added[0].CategoryID)
	assert.Equal(t, cats[2].ID, added[1].CategoryID)
}

func TestPopulate_UnknownStart(t *testing.T) {
	snap, _ := testChain(t)

	agg := NewAggregate("f", "", "fd", "", RateInfo{})
	_, err := Populate(agg, snap, "missing", time.Now())
	require.Error(t, err)
}

func TestProgressSummary_HalfCreditForInProgress(t *testing.T) {
	snap, cats := testChain(t)

	agg := NewAggregate("f", "", "fd", "", RateInfo{})
	_, err := Populate(agg, snap, cats[0].ID, time.Now())
	require.NoError(t, err)

	agg.Schedules[0].Stage = StageCompleted
	agg.Schedules[1].Stage = StageInProgress

	p, err := ProgressSummary(agg, snap, cats[0].ID)
	require.NoError(t, err)
	// (1 + 0.5) / 3 * 100 = 50
	assert.Equal(t, Progress{Completed: 1, InProgress: 1, Total: 3, Percentage: 50}, p)
}

func TestProgressSummary_IgnoresSchedulesOutsidePath(t *testing.T) {
	snap, cats := testChain(t)

	agg := NewAggregate("f", "", "fd", "", RateInfo{})
	_, err := Populate(agg, snap, cats[0].ID, time.Now())
	require.NoError(t, err)

	// A stray schedule from a category not on this chain.
	agg.Schedules = append(agg.Schedules, CategorySchedule{
		ID:         "stray",
		CategoryID: "other-category",
		Stage:      StageCompleted,
	})

	p, err := ProgressSummary(agg, snap, cats[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Total)
	assert.Equal(t, 0, p.Completed)
}

func TestProgressSummary_EmptyJob(t *testing.T) {
	snap, cats := testChain(t)

	agg := NewAggregate("f", "", "fd", "", RateInfo{})
	p, err := ProgressSummary(agg, snap, cats[0].ID)
	require.NoError(t, err)
	assert.Equal(t, Progress{}, p)
}
