package mcptools

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/farmops/internal/export"
	"github.com/dusk-indust/farmops/internal/pipeline"
	"github.com/dusk-indust/farmops/internal/schedule"
	"github.com/dusk-indust/farmops/internal/store"
	"github.com/dusk-indust/farmops/internal/worker"
)

// FarmService handles MCP tool calls for the farmops server mode. It wraps
// the category graph, the persistence store, the stage transition engine,
// and the worker directory. All mutating tools serialize on one mutex so
// the graph and store cannot drift apart: a category removal and a job
// creation reading a pre-removal snapshot must never interleave.
type FarmService struct {
	mu      sync.Mutex
	graph   *pipeline.Graph
	store   store.Store
	engine  *schedule.Engine
	workers *worker.StaticDirectory
}

// NewFarmService creates a FarmService over the given collaborators.
func NewFarmService(graph *pipeline.Graph, st store.Store, engine *schedule.Engine, workers *worker.StaticDirectory) *FarmService {
	return &FarmService{
		graph:   graph,
		store:   st,
		engine:  engine,
		workers: workers,
	}
}

// AddCategory appends a new work category to the pipeline.
func (s *FarmService) AddCategory(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AddCategoryInput,
) (*mcp.CallToolResult, AddCategoryOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cat, err := s.graph.AddCategory(input.Name)
	if err != nil {
		return nil, AddCategoryOutput{}, err
	}
	if err := s.store.SaveGraph(ctx, s.graph.Snapshot()); err != nil {
		return nil, AddCategoryOutput{}, fmt.Errorf("save graph: %w", err)
	}
	return nil, AddCategoryOutput{Category: cat}, nil
}

// SetNextCategory sets or clears a category's successor link. Edits that
// would close a cycle are rejected before anything is written.
func (s *FarmService) SetNextCategory(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SetNextCategoryInput,
) (*mcp.CallToolResult, SetNextCategoryOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.graph.SetNext(input.CategoryID, input.NextCategoryID); err != nil {
		return nil, SetNextCategoryOutput{}, err
	}
	if err := s.store.SaveGraph(ctx, s.graph.Snapshot()); err != nil {
		return nil, SetNextCategoryOutput{}, fmt.Errorf("save graph: %w", err)
	}
	return nil, SetNextCategoryOutput{Status: "ok"}, nil
}

// RemoveCategory deletes a category. Deletion is refused while any stored
// job still carries a schedule for it.
func (s *FarmService) RemoveCategory(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RemoveCategoryInput,
) (*mcp.CallToolResult, RemoveCategoryOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var usageErr error
	inUse := func(categoryID string) bool {
		used, err := s.store.CategoryInUse(ctx, categoryID)
		if err != nil {
			usageErr = err
			return true // fail closed: never delete on an unanswered usage check
		}
		return used
	}
	if err := s.graph.Remove(input.CategoryID, inUse); err != nil {
		if usageErr != nil {
			return nil, RemoveCategoryOutput{}, fmt.Errorf("category usage check: %w", usageErr)
		}
		return nil, RemoveCategoryOutput{}, err
	}
	if err := s.store.SaveGraph(ctx, s.graph.Snapshot()); err != nil {
		return nil, RemoveCategoryOutput{}, fmt.Errorf("save graph: %w", err)
	}
	return nil, RemoveCategoryOutput{Status: "ok"}, nil
}

// ListPipeline returns the configured chains plus a Mermaid rendering.
func (s *FarmService) ListPipeline(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ListPipelineInput,
) (*mcp.CallToolResult, ListPipelineOutput, error) {
	snap := s.graph.Snapshot()
	return nil, ListPipelineOutput{
		Chains:  snap.Chains(),
		Mermaid: export.GenerateMermaid(snap),
	}, nil
}

// CreateJob opens a new job and populates the full category chain starting
// at the requested entry category.
func (s *FarmService) CreateJob(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CreateJobInput,
) (*mcp.CallToolResult, CreateJobOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	startAt := time.Now().UTC()
	if input.ScheduledStart != "" {
		t, err := time.Parse(time.RFC3339, input.ScheduledStart)
		if err != nil {
			return nil, CreateJobOutput{}, &pipeline.ValidationError{Reason: "scheduledStart must be RFC3339"}
		}
		startAt = t
	}

	agg := schedule.NewAggregate(input.FarmerID, input.FarmerName, input.FieldID, input.FieldName, schedule.RateInfo{
		BaseRate: input.BaseRate,
		Quantity: input.Quantity,
		Unit:     input.Unit,
	})
	if _, err := schedule.Populate(agg, s.graph.Snapshot(), input.StartCategoryID, startAt); err != nil {
		return nil, CreateJobOutput{}, err
	}
	if err := s.store.SaveAggregate(ctx, agg); err != nil {
		return nil, CreateJobOutput{}, fmt.Errorf("save job: %w", err)
	}

	out := CreateJobOutput{JobID: agg.ID}
	for i := range agg.Schedules {
		cs := &agg.Schedules[i]
		out.Schedules = append(out.Schedules, ScheduleRef{
			ScheduleID:   cs.ID,
			CategoryID:   cs.CategoryID,
			CategoryName: cs.CategoryName,
			Stage:        string(cs.Stage),
		})
	}
	return nil, out, nil
}

// AdvanceStage moves one schedule to the target stage. A move into
// in_progress with no worker assigned returns status "awaiting-worker" with
// the eligible candidates; that response is a prompt, not a failure, and
// nothing is persisted for it.
func (s *FarmService) AdvanceStage(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AdvanceStageInput,
) (*mcp.CallToolResult, AdvanceStageOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, err := parseStage(input.Target)
	if err != nil {
		return nil, AdvanceStageOutput{}, err
	}

	agg, err := s.store.LoadAggregate(ctx, input.JobID)
	if err != nil {
		return nil, AdvanceStageOutput{}, err
	}

	req := schedule.AdvanceRequest{
		ScheduleID:     input.ScheduleID,
		Target:         target,
		Actor:          input.Actor,
		SkipSettlement: input.SkipSettlement,
		TransportStep:  input.TransportStep,
	}
	if input.BaseRate != nil || input.NegotiatedRate != nil || input.Quantity != nil {
		req.Settle = &schedule.SettleInput{
			BaseRate:       input.BaseRate,
			NegotiatedRate: input.NegotiatedRate,
			Quantity:       input.Quantity,
		}
	}

	outcome, err := s.engine.Advance(ctx, agg, req)
	if err != nil {
		return nil, AdvanceStageOutput{}, err
	}
	if outcome.AwaitingWorker {
		return nil, AdvanceStageOutput{
			Status:     "awaiting-worker",
			Stage:      string(outcome.Schedule.Stage),
			Candidates: outcome.Candidates,
		}, nil
	}

	if err := s.store.SaveAggregate(ctx, agg); err != nil {
		return nil, AdvanceStageOutput{}, fmt.Errorf("save job: %w", err)
	}
	return nil, AdvanceStageOutput{
		Status: "applied",
		Stage:  string(outcome.Schedule.Stage),
		Amount: outcome.Schedule.Amount,
	}, nil
}

// AssignWorker records a worker on a schedule. Assigning while the
// schedule is preparing advances it straight into in_progress.
func (s *FarmService) AssignWorker(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AssignWorkerInput,
) (*mcp.CallToolResult, AssignWorkerOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.workers.Get(input.WorkerID)
	if !ok {
		return nil, AssignWorkerOutput{}, &pipeline.NotFoundError{Kind: "worker", ID: input.WorkerID}
	}

	agg, err := s.store.LoadAggregate(ctx, input.JobID)
	if err != nil {
		return nil, AssignWorkerOutput{}, err
	}
	if err := s.engine.AssignWorker(agg, input.ScheduleID, w, input.Actor); err != nil {
		return nil, AssignWorkerOutput{}, err
	}
	if err := s.store.SaveAggregate(ctx, agg); err != nil {
		return nil, AssignWorkerOutput{}, fmt.Errorf("save job: %w", err)
	}

	cs := agg.ScheduleByID(input.ScheduleID)
	return nil, AssignWorkerOutput{
		Stage:      string(cs.Stage),
		WorkerName: cs.WorkerName,
	}, nil
}

// RegisterSettlement appends an additional settlement to a job. Works on
// finished jobs too; late charges are a normal part of closing out.
func (s *FarmService) RegisterSettlement(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RegisterSettlementInput,
) (*mcp.CallToolResult, RegisterSettlementOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	agg, err := s.store.LoadAggregate(ctx, input.JobID)
	if err != nil {
		return nil, RegisterSettlementOutput{}, err
	}

	extra, err := s.engine.RegisterAdditionalSettlement(agg, input.CategoryID, input.Amount, input.Reason)
	if err != nil {
		return nil, RegisterSettlementOutput{}, err
	}
	if err := s.store.SaveAggregate(ctx, agg); err != nil {
		return nil, RegisterSettlementOutput{}, fmt.Errorf("save job: %w", err)
	}
	return nil, RegisterSettlementOutput{
		SettlementID: extra.ID,
		Total:        agg.TotalSettlement(),
	}, nil
}

// JobProgress reports completion over the job's resolved chain.
func (s *FarmService) JobProgress(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input JobProgressInput,
) (*mcp.CallToolResult, JobProgressOutput, error) {
	agg, err := s.store.LoadAggregate(ctx, input.JobID)
	if err != nil {
		return nil, JobProgressOutput{}, err
	}

	startID := input.StartCategoryID
	if startID == "" {
		if len(agg.Schedules) == 0 {
			return nil, JobProgressOutput{}, nil
		}
		startID = agg.Schedules[0].CategoryID
	}

	p, err := schedule.ProgressSummary(agg, s.graph.Snapshot(), startID)
	if err != nil {
		return nil, JobProgressOutput{}, err
	}
	return nil, JobProgressOutput{
		Completed:  p.Completed,
		InProgress: p.InProgress,
		Total:      p.Total,
		Percentage: p.Percentage,
	}, nil
}

// ListJobs returns paginated job summaries.
func (s *FarmService) ListJobs(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListJobsInput,
) (*mcp.CallToolResult, ListJobsOutput, error) {
	res, err := s.store.ListAggregates(ctx, store.ListFilter{
		FarmerID:      input.FarmerID,
		PaymentStatus: input.PaymentStatus,
		PageSize:      input.PageSize,
		PageToken:     input.PageToken,
	})
	if err != nil {
		return nil, ListJobsOutput{}, err
	}

	out := ListJobsOutput{
		TotalSize:     res.TotalSize,
		NextPageToken: res.NextPageToken,
	}
	for i := range res.Jobs {
		agg := &res.Jobs[i]
		out.Jobs = append(out.Jobs, JobSummary{
			JobID:         agg.ID,
			FarmerName:    agg.FarmerName,
			FieldName:     agg.FieldName,
			ScheduleCount: len(agg.Schedules),
			Total:         agg.TotalSettlement(),
			PaymentStatus: string(agg.PaymentStatus),
			Terminal:      agg.IsTerminal(),
		})
	}
	return nil, out, nil
}

// parseStage validates a stage string from tool input.
func parseStage(raw string) (schedule.Stage, error) {
	switch st := schedule.Stage(raw); st {
	case schedule.StageScheduled, schedule.StagePreparing, schedule.StageInProgress,
		schedule.StageCompleted, schedule.StageCancelled:
		return st, nil
	default:
		return "", &pipeline.ValidationError{Reason: fmt.Sprintf("unknown stage %q", raw)}
	}
}
