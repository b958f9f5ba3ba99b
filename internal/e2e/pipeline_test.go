// Package e2e exercises the full flow from pipeline configuration through
// job settlement against the in-memory store.
package e2e

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/farmops/internal/audit"
	"github.com/dusk-indust/farmops/internal/export"
	"github.com/dusk-indust/farmops/internal/mcptools"
	"github.com/dusk-indust/farmops/internal/pipeline"
	"github.com/dusk-indust/farmops/internal/schedule"
	"github.com/dusk-indust/farmops/internal/store"
	"github.com/dusk-indust/farmops/internal/worker"
)

func TestFullJobLifecycle(t *testing.T) {
	ctx := context.Background()

	// Configure the pipeline: 뽑기 -> 자르기 -> 운송.
	graph := pipeline.NewGraph()
	var cats []pipeline.Category
	for _, name := range []string{"뽑기", "자르기", "운송"} {
		c, err := graph.AddCategory(name)
		require.NoError(t, err)
		cats = append(cats, c)
	}
	require.NoError(t, graph.SetNext(cats[0].ID, cats[1].ID))
	require.NoError(t, graph.SetNext(cats[1].ID, cats[2].ID))

	st := store.NewMemStore()
	require.NoError(t, st.InitSchema(ctx))
	require.NoError(t, st.SaveGraph(ctx, graph.Snapshot()))

	workers := worker.NewStaticDirectory()
	workers.Register(worker.Worker{
		ID: "w1", Name: "김일수",
		Categories: []string{cats[0].ID, cats[1].ID, cats[2].ID},
	})

	sink := audit.NewMemorySink()
	engine := schedule.NewEngine(workers, sink, nil)
	svc := mcptools.NewFarmService(graph, st, engine, workers)

	// Open a job; the chain populates automatically.
	_, job, err := svc.CreateJob(ctx, nil, mcptools.CreateJobInput{
		FarmerID:        "farmer-1",
		FarmerName:      "홍길동",
		FieldID:         "field-1",
		FieldName:       "동쪽밭",
		StartCategoryID: cats[0].ID,
		BaseRate:        1000,
		Quantity:        3,
		Unit:            "평",
	})
	require.NoError(t, err)
	require.Len(t, job.Schedules, 3)

	// The in-use category cannot be removed while the job references it.
	_, _, err = svc.RemoveCategory(ctx, nil, mcptools.RemoveCategoryInput{CategoryID: cats[0].ID})
	var uerr *pipeline.InUseError
	require.ErrorAs(t, err, &uerr)

	// Walk every schedule through its lifecycle.
	for i, ref := range job.Schedules {
		_, out, err := svc.AdvanceStage(ctx, nil, mcptools.AdvanceStageInput{
			JobID: job.JobID, ScheduleID: ref.ScheduleID, Target: "preparing", Actor: "manager",
		})
		require.NoError(t, err)
		require.Equal(t, "applied", out.Status)

		// First attempt at in_progress suspends until a worker is set.
		_, out, err = svc.AdvanceStage(ctx, nil, mcptools.AdvanceStageInput{
			JobID: job.JobID, ScheduleID: ref.ScheduleID, Target: "in_progress",
		})
		require.NoError(t, err)
		require.Equal(t, "awaiting-worker", out.Status)
		require.NotEmpty(t, out.Candidates)

		_, _, err = svc.AssignWorker(ctx, nil, mcptools.AssignWorkerInput{
			JobID: job.JobID, ScheduleID: ref.ScheduleID, WorkerID: out.Candidates[0].ID, Actor: "manager",
		})
		require.NoError(t, err)

		// The final category is the transport step.
		_, out, err = svc.AdvanceStage(ctx, nil, mcptools.AdvanceStageInput{
			JobID: job.JobID, ScheduleID: ref.ScheduleID, Target: "completed",
			Actor: "manager", TransportStep: i == 2,
		})
		require.NoError(t, err)
		require.Equal(t, "applied", out.Status)
		require.NotNil(t, out.Amount)
		assert.Equal(t, int64(3000), *out.Amount)
	}

	// All done: 100% progress, job terminal.
	_, p, err := svc.JobProgress(ctx, nil, mcptools.JobProgressInput{JobID: job.JobID})
	require.NoError(t, err)
	assert.Equal(t, mcptools.JobProgressOutput{Completed: 3, Total: 3, Percentage: 100}, p)

	agg, err := st.LoadAggregate(ctx, job.JobID)
	require.NoError(t, err)
	assert.True(t, agg.IsTerminal())

	// Late fuel charge after the job finished.
	_, reg, err := svc.RegisterSettlement(ctx, nil, mcptools.RegisterSettlementInput{
		JobID: job.JobID, CategoryID: cats[2].ID, Amount: 5000, Reason: "연료비",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(14000), reg.Total)

	// Export reflects the live total.
	exports, err := export.ExportJobs(ctx, st, []string{job.JobID})
	require.NoError(t, err)
	require.Len(t, exports, 1)
	assert.Equal(t, int64(14000), exports[0].Total)
	require.Len(t, exports[0].Schedules, 3)
	assert.Equal(t, "완료", exports[0].Schedules[0].StageLabel)

	// Audit trail: three transitions per schedule, all attributed.
	recs := sink.ForJob(job.JobID)
	require.Len(t, recs, 9)
	for _, r := range recs {
		assert.Equal(t, "manager", r.Actor)
		assert.False(t, r.Timestamp.IsZero())
	}

	// Job mermaid rendering shows per-category completion.
	diagram := export.GenerateJobMermaid(graph.Snapshot(), agg)
	assert.Contains(t, diagram, "뽑기 (완료)")
}

func TestCycleNeverReachesStore(t *testing.T) {
	ctx := context.Background()

	graph := pipeline.NewGraph()
	a, err := graph.AddCategory("A")
	require.NoError(t, err)
	b, err := graph.AddCategory("B")
	require.NoError(t, err)
	require.NoError(t, graph.SetNext(a.ID, b.ID))

	st := store.NewMemStore()
	require.NoError(t, st.SaveGraph(ctx, graph.Snapshot()))

	engine := schedule.NewEngine(worker.NewStaticDirectory(), audit.NewMemorySink(), nil)
	svc := mcptools.NewFarmService(graph, st, engine, worker.NewStaticDirectory())

	_, _, err = svc.SetNextCategory(ctx, nil, mcptools.SetNextCategoryInput{
		CategoryID: b.ID, NextCategoryID: a.ID,
	})
	var cerr *pipeline.CycleError
	require.ErrorAs(t, err, &cerr)

	// The persisted graph still resolves A -> B with no back edge.
	loaded, err := st.LoadGraph(ctx)
	require.NoError(t, err)
	path, err := loaded.PathFrom(a.ID)
	require.NoError(t, err)
	require.Len(t, path, 2)
	assert.Equal(t, "", path[1].NextID)
}
