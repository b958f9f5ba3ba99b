package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/farmops/internal/pipeline"
	"github.com/dusk-indust/farmops/internal/schedule"
)

func newTestJob(farmerID string) *schedule.Aggregate {
	return schedule.NewAggregate(farmerID, "홍길동", "field-1", "동쪽밭", schedule.RateInfo{BaseRate: 1000, Quantity: 3})
}

func TestMemStore_GraphRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()
	require.NoError(t, m.InitSchema(ctx))

	g := pipeline.NewGraph()
	a, err := g.AddCategory("pulling")
	require.NoError(t, err)
	b, err := g.AddCategory("cutting")
	require.NoError(t, err)
	require.NoError(t, g.SetNext(a.ID, b.ID))

	require.NoError(t, m.SaveGraph(ctx, g.Snapshot()))

	loaded, err := m.LoadGraph(ctx)
	require.NoError(t, err)
	snap := loaded.Snapshot()
	require.Equal(t, 2, snap.Len())

	got, ok := snap.Get(a.ID)
	require.True(t, ok)
	assert.Equal(t, "pulling", got.Name)
	assert.Equal(t, b.ID, got.NextID)
}

func TestMemStore_AggregateRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()

	agg := newTestJob("farmer-1")
	amt := int64(3000)
	agg.Schedules = []schedule.CategorySchedule{
		{ID: "s1", CategoryID: "c1", CategoryName: "pulling", Stage: schedule.StageCompleted, Amount: &amt},
	}
	require.NoError(t, m.SaveAggregate(ctx, agg))

	got, err := m.LoadAggregate(ctx, agg.ID)
	require.NoError(t, err)
	assert.Equal(t, agg.FarmerID, got.FarmerID)
	require.Len(t, got.Schedules, 1)
	require.NotNil(t, got.Schedules[0].Amount)
	assert.Equal(t, int64(3000), *got.Schedules[0].Amount)
}

func TestMemStore_LoadReturnsDeepCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()

	agg := newTestJob("farmer-1")
	amt := int64(3000)
	agg.Schedules = []schedule.CategorySchedule{{ID: "s1", Stage: schedule.StageCompleted, Amount: &amt}}
	require.NoError(t, m.SaveAggregate(ctx, agg))

	// Mutating a loaded copy must not leak into the store.
	copy1, err := m.LoadAggregate(ctx, agg.ID)
	require.NoError(t, err)
	copy1.FarmerName = "mutated"
	*copy1.Schedules[0].Amount = 9999
	copy1.Schedules[0].Stage = schedule.StageCancelled

	// Mutating the saved original must not either.
	agg.FieldName = "mutated field"

	got, err := m.LoadAggregate(ctx, agg.ID)
	require.NoError(t, err)
	assert.Equal(t, "홍길동", got.FarmerName)
	assert.Equal(t, "동쪽밭", got.FieldName)
	assert.Equal(t, int64(3000), *got.Schedules[0].Amount)
	assert.Equal(t, schedule.StageCompleted, got.Schedules[0].Stage)
}

func TestMemStore_LoadNonExistent(t *testing.T) {
	m := NewMemStore()

	_, err := m.LoadAggregate(context.Background(), "missing")
	var nferr *pipeline.NotFoundError
	require.True(t, errors.As(err, &nferr))
}

func TestMemStore_ListFiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()

	for i := 0; i < 5; i++ {
		agg := newTestJob("farmer-a")
		agg.ID = fmt.Sprintf("job-a-%d", i)
		require.NoError(t, m.SaveAggregate(ctx, agg))
	}
	other := newTestJob("farmer-b")
	other.ID = "job-b-0"
	other.PaymentStatus = schedule.PaymentPaid
	require.NoError(t, m.SaveAggregate(ctx, other))

	// Farmer filter.
	res, err := m.ListAggregates(ctx, ListFilter{FarmerID: "farmer-a"})
	require.NoError(t, err)
	assert.Equal(t, 5, res.TotalSize)
	assert.Len(t, res.Jobs, 5)
	assert.Empty(t, res.NextPageToken)

	// Payment filter.
	res, err = m.ListAggregates(ctx, ListFilter{PaymentStatus: "paid"})
	require.NoError(t, err)
	require.Len(t, res.Jobs, 1)
	assert.Equal(t, "job-b-0", res.Jobs[0].ID)

	// First page of two.
	res, err = m.ListAggregates(ctx, ListFilter{FarmerID: "farmer-a", PageSize: 2})
	require.NoError(t, err)
	require.Len(t, res.Jobs, 2)
	assert.Equal(t, "job-a-0", res.Jobs[0].ID)
	assert.Equal(t, "job-a-1", res.NextPageToken)

	// Second page resumes after the token.
	res, err = m.ListAggregates(ctx, ListFilter{FarmerID: "farmer-a", PageSize: 2, PageToken: res.NextPageToken})
	require.NoError(t, err)
	require.Len(t, res.Jobs, 2)
	assert.Equal(t, "job-a-2", res.Jobs[0].ID)
	assert.Equal(t, 5, res.TotalSize, "total counts all matches, not just this page")
}

func TestMemStore_ListInvalidPageToken(t *testing.T) {
	m := NewMemStore()

	_, err := m.ListAggregates(context.Background(), ListFilter{PageToken: "bogus"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid page token")
}

func TestMemStore_DeleteAggregate(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()

	agg := newTestJob("farmer-1")
	require.NoError(t, m.SaveAggregate(ctx, agg))
	require.NoError(t, m.DeleteAggregate(ctx, agg.ID))

	_, err := m.LoadAggregate(ctx, agg.ID)
	require.Error(t, err)

	var nferr *pipeline.NotFoundError
	err = m.DeleteAggregate(ctx, agg.ID)
	require.True(t, errors.As(err, &nferr))
}

func TestMemStore_CategoryInUse(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()

	agg := newTestJob("farmer-1")
	agg.Schedules = []schedule.CategorySchedule{{ID: "s1", CategoryID: "cat-1"}}
	require.NoError(t, m.SaveAggregate(ctx, agg))

	used, err := m.CategoryInUse(ctx, "cat-1")
	require.NoError(t, err)
	assert.True(t, used)

	used, err = m.CategoryInUse(ctx, "cat-2")
	require.NoError(t, err)
	assert.False(t, used)
}

func TestMemStore_ConcurrentSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()

	agg := newTestJob("farmer-1")
	require.NoError(t, m.SaveAggregate(ctx, agg))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			clone := agg.Clone()
			clone.FieldName = "updated"
			_ = m.SaveAggregate(ctx, clone)
		}()
		go func() {
			defer wg.Done()
			got, err := m.LoadAggregate(ctx, agg.ID)
			assert.NoError(t, err)
			assert.Equal(t, agg.ID, got.ID)
		}()
	}
	wg.Wait()
}

func TestMemStore_Stats(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()

	g := pipeline.NewGraph()
	_, err := g.AddCategory("pulling")
	require.NoError(t, err)
	require.NoError(t, m.SaveGraph(ctx, g.Snapshot()))

	agg := newTestJob("farmer-1")
	agg.Schedules = []schedule.CategorySchedule{{ID: "s1"}, {ID: "s2"}}
	agg.Extras = []schedule.ExtraSettlement{{ID: "x1", Amount: 100}}
	require.NoError(t, m.SaveAggregate(ctx, agg))

	st, err := m.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Stats{CategoryCount: 1, JobCount: 1, ScheduleCount: 2, ExtraCount: 1}, st)
}
