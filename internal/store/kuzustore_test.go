//go:build cgo

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/farmops/internal/pipeline"
	"github.com/dusk-indust/farmops/internal/schedule"
)

func newTestKuzu(t *testing.T) *KuzuStore {
	t.Helper()
	s, err := NewKuzuStore()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.InitSchema(context.Background()))
	return s
}

func TestKuzuStore_GraphRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestKuzu(t)

	g := pipeline.NewGraph()
	a, err := g.AddCategory("pulling")
	require.NoError(t, err)
	b, err := g.AddCategory("cutting")
	require.NoError(t, err)
	require.NoError(t, g.SetNext(a.ID, b.ID))
	require.NoError(t, s.SaveGraph(ctx, g.Snapshot()))

	loaded, err := s.LoadGraph(ctx)
	require.NoError(t, err)
	snap := loaded.Snapshot()
	require.Equal(t, 2, snap.Len())

	got, ok := snap.Get(a.ID)
	require.True(t, ok)
	assert.Equal(t, b.ID, got.NextID, "NEXT_STEP edge must survive the round trip")
	assert.Equal(t, 0, got.Order)

	// Re-saving replaces wholesale: the cleared link does not linger.
	require.NoError(t, loaded.SetNext(a.ID, ""))
	require.NoError(t, s.SaveGraph(ctx, loaded.Snapshot()))
	reloaded, err := s.LoadGraph(ctx)
	require.NoError(t, err)
	got, ok = reloaded.Snapshot().Get(a.ID)
	require.True(t, ok)
	assert.Equal(t, "", got.NextID)
}

func TestKuzuStore_AggregateRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestKuzu(t)

	negotiated := int64(800)
	amt := int64(2400)
	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	agg := schedule.NewAggregate("farmer-1", "홍길동", "field-1", "동쪽밭", schedule.RateInfo{
		BaseRate:       1000,
		NegotiatedRate: &negotiated,
		Quantity:       3,
		Unit:           "평",
	})
	agg.SubLocation = "비닐하우스 2동"
	agg.Transport = &schedule.Transport{
		Origin:       "동쪽밭",
		Destination:  "공판장",
		Cargo:        "무",
		DistanceKm:   12.5,
		DistanceRate: 100,
	}
	agg.Schedules = []schedule.CategorySchedule{
		{ID: "s1", CategoryID: "c1", CategoryName: "pulling", Stage: schedule.StageCompleted, WorkerID: "w1", WorkerName: "김일수", ScheduledStart: start, Amount: &amt, Memo: "비와서 지연"},
		{ID: "s2", CategoryID: "c2", CategoryName: "cutting", Stage: schedule.StageScheduled, ScheduledStart: start},
	}
	agg.Extras = []schedule.ExtraSettlement{
		{ID: "x1", CategoryID: "c1", Amount: 5000, Reason: "fuel", CreatedAt: start},
	}
	require.NoError(t, s.SaveAggregate(ctx, agg))

	got, err := s.LoadAggregate(ctx, agg.ID)
	require.NoError(t, err)

	assert.Equal(t, "홍길동", got.FarmerName)
	assert.Equal(t, "비닐하우스 2동", got.SubLocation)
	require.NotNil(t, got.Rate.NegotiatedRate)
	assert.Equal(t, int64(800), *got.Rate.NegotiatedRate)
	require.NotNil(t, got.Transport)
	assert.Equal(t, 12.5, got.Transport.DistanceKm)

	require.Len(t, got.Schedules, 2)
	assert.Equal(t, "s1", got.Schedules[0].ID, "schedule order preserved via pos")
	require.NotNil(t, got.Schedules[0].Amount)
	assert.Equal(t, int64(2400), *got.Schedules[0].Amount)
	assert.Nil(t, got.Schedules[1].Amount, "uncaptured amount stays nil, not zero")
	assert.True(t, got.Schedules[0].ScheduledStart.Equal(start))

	require.Len(t, got.Extras, 1)
	assert.Equal(t, int64(5000), got.Extras[0].Amount)
}

func TestKuzuStore_SaveReplacesWholesale(t *testing.T) {
	ctx := context.Background()
	s := newTestKuzu(t)

	agg := schedule.NewAggregate("farmer-1", "", "field-1", "", schedule.RateInfo{})
	agg.Schedules = []schedule.CategorySchedule{
		{ID: "s1", CategoryID: "c1", Stage: schedule.StageScheduled},
		{ID: "s2", CategoryID: "c2", Stage: schedule.StageScheduled},
	}
	require.NoError(t, s.SaveAggregate(ctx, agg))

	agg.Schedules = agg.Schedules[:1]
	require.NoError(t, s.SaveAggregate(ctx, agg))

	got, err := s.LoadAggregate(ctx, agg.ID)
	require.NoError(t, err)
	assert.Len(t, got.Schedules, 1, "dropped schedules must not survive a re-save")
}

func TestKuzuStore_LoadNonExistent(t *testing.T) {
	s := newTestKuzu(t)

	_, err := s.LoadAggregate(context.Background(), "missing")
	var nferr *pipeline.NotFoundError
	require.True(t, errors.As(err, &nferr))
}

func TestKuzuStore_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestKuzu(t)

	a := schedule.NewAggregate("farmer-a", "", "f1", "", schedule.RateInfo{})
	a.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := schedule.NewAggregate("farmer-b", "", "f2", "", schedule.RateInfo{})
	b.CreatedAt = time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveAggregate(ctx, a))
	require.NoError(t, s.SaveAggregate(ctx, b))

	res, err := s.ListAggregates(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, res.Jobs, 2)
	assert.Equal(t, a.ID, res.Jobs[0].ID, "ordered by creation time")

	res, err = s.ListAggregates(ctx, ListFilter{FarmerID: "farmer-b"})
	require.NoError(t, err)
	require.Len(t, res.Jobs, 1)
	assert.Equal(t, b.ID, res.Jobs[0].ID)

	require.NoError(t, s.DeleteAggregate(ctx, a.ID))
	_, err = s.LoadAggregate(ctx, a.ID)
	require.Error(t, err)

	var nferr *pipeline.NotFoundError
	err = s.DeleteAggregate(ctx, a.ID)
	require.True(t, errors.As(err, &nferr))
}

func TestKuzuStore_CategoryInUseAndStats(t *testing.T) {
	ctx := context.Background()
	s := newTestKuzu(t)

	g := pipeline.NewGraph()
	_, err := g.AddCategory("pulling")
	require.NoError(t, err)
	require.NoError(t, s.SaveGraph(ctx, g.Snapshot()))

	agg := schedule.NewAggregate("farmer-1", "", "f1", "", schedule.RateInfo{})
	agg.Schedules = []schedule.CategorySchedule{{ID: "s1", CategoryID: "cat-1"}}
	agg.Extras = []schedule.ExtraSettlement{{ID: "x1", CategoryID: "cat-1", Amount: 100, CreatedAt: time.Now()}}
	require.NoError(t, s.SaveAggregate(ctx, agg))

	used, err := s.CategoryInUse(ctx, "cat-1")
	require.NoError(t, err)
	assert.True(t, used)
	used, err = s.CategoryInUse(ctx, "cat-2")
	require.NoError(t, err)
	assert.False(t, used)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Stats{CategoryCount: 1, JobCount: 1, ScheduleCount: 1, ExtraCount: 1}, st)
}
