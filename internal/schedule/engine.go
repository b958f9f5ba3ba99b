package schedule

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dusk-indust/farmops/internal/audit"
	"github.com/dusk-indust/farmops/internal/pipeline"
	"github.com/dusk-indust/farmops/internal/worker"
)

// Engine applies stage transitions to a job's category schedules, enforcing
// the worker gate and capturing settlement amounts. It mutates the
// aggregate in memory only; persisting the result belongs to the caller.
type Engine struct {
	workers  worker.Directory
	sink     audit.Sink
	reporter *Reporter

	// Now is the clock used for audit timestamps. Overridable in tests.
	Now func() time.Time
}

// NewEngine creates an Engine. reporter may be nil when no live event feed
// is needed.
func NewEngine(workers worker.Directory, sink audit.Sink, reporter *Reporter) *Engine {
	return &Engine{
		workers:  workers,
		sink:     sink,
		reporter: reporter,
		Now:      time.Now,
	}
}

// SettleInput is the rate-entry step performed when completing a schedule.
// Non-nil fields overwrite the job's stored rate info before the amount is
// computed; nil leaves the stored value untouched, so an explicit zero rate
// or quantity is expressible.
type SettleInput struct {
	BaseRate       *int64
	NegotiatedRate *int64
	Quantity       *float64
	Unit           string
}

// AdvanceRequest asks for one stage transition on one schedule.
type AdvanceRequest struct {
	ScheduleID string
	Target     Stage
	Actor      string

	// Settle carries the rate entry for a completion. Nil means complete
	// with the job's stored rate info.
	Settle *SettleInput

	// SkipSettlement force-completes with an explicit zero amount and no
	// rate entry. This is a business affordance, not an error path.
	SkipSettlement bool

	// TransportStep marks the completed category as the job's transport
	// step, so the transport surcharge is included in the amount.
	TransportStep bool
}

// Outcome is the result of an Advance call. AwaitingWorker is the
// suspended (not failed) form: the transition into InProgress needs a
// worker first, and Candidates lists the eligible ones.
type Outcome struct {
	Applied        bool
	AwaitingWorker bool
	Candidates     []worker.Worker
	Schedule       CategorySchedule
}

// Advance requests the transition of one schedule to req.Target.
//
// Legal moves are adjacent-forward (Scheduled→Preparing→InProgress→
// Completed) and cancellation from any non-terminal stage. Everything else
// fails with InvalidTransitionError. A forward move into InProgress with no
// assigned worker suspends instead of failing: the outcome carries the
// eligible worker candidates and the caller retries after AssignWorker.
func (e *Engine) Advance(ctx context.Context, agg *Aggregate, req AdvanceRequest) (*Outcome, error) {
	cs := agg.ScheduleByID(req.ScheduleID)
	if cs == nil {
		return nil, &pipeline.NotFoundError{Kind: "schedule", ID: req.ScheduleID}
	}

	if !legalTransition(cs.Stage, req.Target) {
		return nil, &InvalidTransitionError{ScheduleID: cs.ID, From: cs.Stage, To: req.Target}
	}

	if req.Target == StageInProgress && cs.WorkerID == "" {
		candidates, err := e.workers.EligibleForCategory(ctx, cs.CategoryID)
		if err != nil {
			return nil, err
		}
		return &Outcome{
			AwaitingWorker: true,
			Candidates:     candidates,
			Schedule:       *cs,
		}, nil
	}

	var amount *int64
	if req.Target == StageCompleted {
		if req.SkipSettlement {
			zero := int64(0)
			amount = &zero
		} else {
			if req.Settle != nil {
				applySettle(&agg.Rate, req.Settle)
			}
			v := agg.SettlementAmount(req.TransportStep)
			amount = &v
		}
	}

	if err := e.apply(agg, cs, req.Target, req.Actor); err != nil {
		return nil, err
	}
	if amount != nil {
		cs.Amount = amount
	}
	return &Outcome{Applied: true, Schedule: *cs}, nil
}

// AssignWorker records the worker on a schedule, snapshotting the worker's
// name at assignment time. If the schedule is currently Preparing the
// assignment itself advances it to InProgress — assignment is the trigger
// for entering progress, and that coupling is intentional.
func (e *Engine) AssignWorker(agg *Aggregate, scheduleID string, w worker.Worker, actor string) error {
	cs := agg.ScheduleByID(scheduleID)
	if cs == nil {
		return &pipeline.NotFoundError{Kind: "schedule", ID: scheduleID}
	}
	if cs.Stage.IsTerminal() {
		return &pipeline.ValidationError{Reason: "cannot assign a worker to a finished schedule"}
	}
	if w.ID == "" {
		return &pipeline.ValidationError{Reason: "worker id must not be empty"}
	}

	cs.WorkerID = w.ID
	cs.WorkerName = w.Name

	if cs.Stage == StagePreparing {
		return e.apply(agg, cs, StageInProgress, actor)
	}
	return nil
}

// RegisterAdditionalSettlement appends an ad-hoc charge against one of the
// job's categories. The schedule's captured amount is untouched; extras
// are summed separately in TotalSettlement. A zero amount is meaningless
// and rejected.
func (e *Engine) RegisterAdditionalSettlement(agg *Aggregate, categoryID string, amount int64, reason string) (ExtraSettlement, error) {
	if amount == 0 {
		return ExtraSettlement{}, &pipeline.ValidationError{Reason: "settlement amount must not be zero"}
	}
	if !agg.HasCategory(categoryID) {
		return ExtraSettlement{}, &pipeline.NotFoundError{Kind: "category", ID: categoryID}
	}

	extra := ExtraSettlement{
		ID:         uuid.NewString(),
		CategoryID: categoryID,
		Amount:     amount,
		Reason:     reason,
		CreatedAt:  e.Now().UTC(),
	}
	agg.Extras = append(agg.Extras, extra)
	return extra, nil
}

// apply commits a stage change. The audit record is appended first; a
// failed append aborts the transition, so the history never lags the
// state a caller persists.
func (e *Engine) apply(agg *Aggregate, cs *CategorySchedule, target Stage, actor string) error {
	from := cs.Stage

	if strings.TrimSpace(actor) == "" {
		actor = "system"
	}
	at := e.Now().UTC()

	if e.sink != nil {
		err := e.sink.Append(audit.Record{
			JobID:      agg.ID,
			ScheduleID: cs.ID,
			Stage:      string(target),
			Timestamp:  at,
			Actor:      actor,
		})
		if err != nil {
			return fmt.Errorf("audit append: %w", err)
		}
	}

	cs.Stage = target
	if e.reporter != nil {
		e.reporter.Emit(TransitionEvent{
			JobID:        agg.ID,
			ScheduleID:   cs.ID,
			CategoryName: cs.CategoryName,
			From:         from,
			To:           target,
			Actor:        actor,
			At:           at,
		})
	}
	return nil
}

// legalTransition reports whether from -> to is adjacent-forward or a
// permitted cancellation.
func legalTransition(from, to Stage) bool {
	if to == StageCancelled {
		return !from.IsTerminal()
	}
	if from.IsTerminal() {
		return false
	}
	return from.Next() == to && from != to
}

// applySettle overwrites the job rate info with the entered rates.
func applySettle(rate *RateInfo, in *SettleInput) {
	if in.BaseRate != nil {
		rate.BaseRate = *in.BaseRate
	}
	if in.NegotiatedRate != nil {
		nr := *in.NegotiatedRate
		rate.NegotiatedRate = &nr
	}
	if in.Quantity != nil {
		rate.Quantity = *in.Quantity
	}
	if in.Unit != "" {
		rate.Unit = in.Unit
	}
}
