package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// --- Enums ---

// Stage is the lifecycle state of one CategorySchedule.
type Stage string

const (
	StageScheduled  Stage = "scheduled"
	StagePreparing  Stage = "preparing"
	StageInProgress Stage = "in_progress"
	StageCompleted  Stage = "completed"
	StageCancelled  Stage = "cancelled"
)

// stageOrdinals orders the forward stages for monotonicity checks.
// Cancelled sits outside the forward order.
var stageOrdinals = map[Stage]int{
	StageScheduled:  0,
	StagePreparing:  1,
	StageInProgress: 2,
	StageCompleted:  3,
}

// stageLabels are the operator-facing display labels.
var stageLabels = map[Stage]string{
	StageScheduled:  "예정",
	StagePreparing:  "준비중",
	StageInProgress: "진행중",
	StageCompleted:  "완료",
	StageCancelled:  "취소",
}

// Label returns the display label for the stage.
func (s Stage) Label() string {
	if l, ok := stageLabels[s]; ok {
		return l
	}
	return string(s)
}

// Ordinal returns the stage's position in the forward order, or -1 for
// Cancelled and unknown stages.
func (s Stage) Ordinal() int {
	if o, ok := stageOrdinals[s]; ok {
		return o
	}
	return -1
}

// IsTerminal returns true for Completed and Cancelled.
func (s Stage) IsTerminal() bool {
	return s == StageCompleted || s == StageCancelled
}

// Next returns the adjacent forward stage, or the stage itself for
// terminal stages.
func (s Stage) Next() Stage {
	switch s {
	case StageScheduled:
		return StagePreparing
	case StagePreparing:
		return StageInProgress
	case StageInProgress:
		return StageCompleted
	default:
		return s
	}
}

// PaymentStatus tracks settlement payment on a job.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// --- Errors ---

// InvalidTransitionError reports a stage change that is neither
// adjacent-forward nor a legal cancellation.
type InvalidTransitionError struct {
	ScheduleID string
	From       Stage
	To         Stage
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("schedule %q: illegal transition %s -> %s", e.ScheduleID, e.From, e.To)
}

// --- Models ---

// CategorySchedule is one job's unit of work for a specific category.
// CategoryName and WorkerName are value copies taken at assignment time:
// later category renames or worker record edits never reach back into a
// job's history. That staleness is intentional.
type CategorySchedule struct {
	ID             string     `json:"id"`
	CategoryID     string     `json:"categoryId"`
	CategoryName   string     `json:"categoryName"`
	Stage          Stage      `json:"stage"`
	WorkerID       string     `json:"workerId,omitempty"`
	WorkerName     string     `json:"workerName,omitempty"`
	ScheduledStart time.Time  `json:"scheduledStart"`
	Amount         *int64     `json:"amount,omitempty"` // nil until completion captures it
	Memo           string     `json:"memo,omitempty"`
}

// RateInfo is the job-level settlement rate data.
type RateInfo struct {
	BaseRate       int64   `json:"baseRate"`
	NegotiatedRate *int64  `json:"negotiatedRate,omitempty"` // overrides BaseRate when set
	Quantity       float64 `json:"quantity"`
	Unit           string  `json:"unit,omitempty"`
	AdditionalFee  int64   `json:"additionalAmount,omitempty"`
}

// Transport is the optional transport sub-record on a job.
type Transport struct {
	Origin        string  `json:"origin,omitempty"`
	Destination   string  `json:"destination,omitempty"`
	Cargo         string  `json:"cargo,omitempty"`
	DistanceKm    float64 `json:"distanceKm,omitempty"`
	DistanceRate  int64   `json:"distanceRate,omitempty"` // per km
	AdditionalFee int64   `json:"additionalFee,omitempty"`
}

// ExtraSettlement is an ad-hoc charge registered against one of a job's
// category schedules. It is summed separately and never folded into the
// schedule's captured amount.
type ExtraSettlement struct {
	ID         string    `json:"id"`
	CategoryID string    `json:"categoryId"`
	Amount     int64     `json:"amount"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Aggregate is one job: a farmer + field occurrence owning an ordered set
// of category schedules plus job-level rate and transport data.
type Aggregate struct {
	ID            string             `json:"id"`
	FarmerID      string             `json:"farmerId"`
	FarmerName    string             `json:"farmerName,omitempty"`
	FieldID       string             `json:"fieldId"`
	FieldName     string             `json:"fieldName,omitempty"`
	SubLocation   string             `json:"subLocation,omitempty"`
	Schedules     []CategorySchedule `json:"schedules"`
	Rate          RateInfo           `json:"rate"`
	Transport     *Transport         `json:"transport,omitempty"`
	Extras        []ExtraSettlement  `json:"additionalSettlements,omitempty"`
	PaymentStatus PaymentStatus      `json:"paymentStatus"`
	CreatedAt     time.Time          `json:"createdAt"`
}

// NewAggregate creates an empty job for a farmer + field occurrence.
func NewAggregate(farmerID, farmerName, fieldID, fieldName string, rate RateInfo) *Aggregate {
	return &Aggregate{
		ID:            uuid.NewString(),
		FarmerID:      farmerID,
		FarmerName:    farmerName,
		FieldID:       fieldID,
		FieldName:     fieldName,
		Rate:          rate,
		PaymentStatus: PaymentUnpaid,
		CreatedAt:     time.Now().UTC(),
	}
}

// ScheduleByID returns a pointer to the schedule with the given id, or nil.
func (a *Aggregate) ScheduleByID(id string) *CategorySchedule {
	for i := range a.Schedules {
		if a.Schedules[i].ID == id {
			return &a.Schedules[i]
		}
	}
	return nil
}

// HasCategory reports whether the job already owns a schedule for the
// category.
func (a *Aggregate) HasCategory(categoryID string) bool {
	for i := range a.Schedules {
		if a.Schedules[i].CategoryID == categoryID {
			return true
		}
	}
	return false
}

// IsTerminal reports whether every schedule has reached a terminal stage.
// Extra settlements may still be appended after that point.
func (a *Aggregate) IsTerminal() bool {
	if len(a.Schedules) == 0 {
		return false
	}
	for i := range a.Schedules {
		if !a.Schedules[i].Stage.IsTerminal() {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the aggregate. Slice fields and pointer
// fields are independently copied so the clone is safe to mutate.
func (a *Aggregate) Clone() *Aggregate {
	dst := *a

	if a.Schedules != nil {
		dst.Schedules = make([]CategorySchedule, len(a.Schedules))
		for i, cs := range a.Schedules {
			dst.Schedules[i] = cs
			if cs.Amount != nil {
				amt := *cs.Amount
				dst.Schedules[i].Amount = &amt
			}
		}
	}
	if a.Extras != nil {
		dst.Extras = make([]ExtraSettlement, len(a.Extras))
		copy(dst.Extras, a.Extras)
	}
	if a.Transport != nil {
		tr := *a.Transport
		dst.Transport = &tr
	}
	if a.Rate.NegotiatedRate != nil {
		nr := *a.Rate.NegotiatedRate
		dst.Rate.NegotiatedRate = &nr
	}
	return &dst
}
