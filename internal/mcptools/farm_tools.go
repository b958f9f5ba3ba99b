package mcptools

// --- MCP Tool Types for the farmops server mode (--serve-mcp) ---
// These tools are exposed when the binary runs as an MCP server, so
// assistant integrations call structured tools instead of shelling out.

import (
	"github.com/dusk-indust/farmops/internal/pipeline"
	"github.com/dusk-indust/farmops/internal/worker"
)

// AddCategoryInput is the input for the add_category MCP tool.
type AddCategoryInput struct {
	Name string `json:"name" jsonschema:"display name of the new work category"`
}

// AddCategoryOutput is the result of the add_category MCP tool.
type AddCategoryOutput struct {
	Category pipeline.Category `json:"category"`
}

// SetNextCategoryInput is the input for the set_next_category MCP tool.
type SetNextCategoryInput struct {
	CategoryID     string `json:"categoryId" jsonschema:"category whose successor link is edited"`
	NextCategoryID string `json:"nextCategoryId,omitempty" jsonschema:"successor category id; empty clears the link"`
}

// SetNextCategoryOutput is the result of the set_next_category MCP tool.
type SetNextCategoryOutput struct {
	Status string `json:"status"` // "ok"
}

// RemoveCategoryInput is the input for the remove_category MCP tool.
type RemoveCategoryInput struct {
	CategoryID string `json:"categoryId" jsonschema:"category to delete"`
}

// RemoveCategoryOutput is the result of the remove_category MCP tool.
type RemoveCategoryOutput struct {
	Status string `json:"status"` // "ok"
}

// ListPipelineInput is the input for the list_pipeline MCP tool.
type ListPipelineInput struct{}

// ListPipelineOutput is the result of the list_pipeline MCP tool.
type ListPipelineOutput struct {
	Chains  [][]pipeline.Category `json:"chains"`
	Mermaid string                `json:"mermaid"`
}

// CreateJobInput is the input for the create_job MCP tool. The full chain
// starting at StartCategoryID is auto-populated onto the new job.
type CreateJobInput struct {
	FarmerID        string  `json:"farmerId"`
	FarmerName      string  `json:"farmerName,omitempty"`
	FieldID         string  `json:"fieldId"`
	FieldName       string  `json:"fieldName,omitempty"`
	StartCategoryID string  `json:"startCategoryId" jsonschema:"chain entry category"`
	BaseRate        int64   `json:"baseRate,omitempty"`
	Quantity        float64 `json:"quantity,omitempty"`
	Unit            string  `json:"unit,omitempty"`
	ScheduledStart  string  `json:"scheduledStart,omitempty" jsonschema:"RFC3339 start time (default: now)"`
}

// CreateJobOutput is the result of the create_job MCP tool.
type CreateJobOutput struct {
	JobID     string        `json:"jobId"`
	Schedules []ScheduleRef `json:"schedules"`
}

// ScheduleRef is a brief reference to one category schedule.
type ScheduleRef struct {
	ScheduleID   string `json:"scheduleId"`
	CategoryID   string `json:"categoryId"`
	CategoryName string `json:"categoryName"`
	Stage        string `json:"stage"`
}

// AdvanceStageInput is the input for the advance_stage MCP tool. The rate
// fields are pointers so an explicit zero entry is distinguishable from an
// omitted one.
type AdvanceStageInput struct {
	JobID          string   `json:"jobId"`
	ScheduleID     string   `json:"scheduleId"`
	Target         string   `json:"target" jsonschema:"target stage: scheduled|preparing|in_progress|completed|cancelled"`
	Actor          string   `json:"actor,omitempty"`
	BaseRate       *int64   `json:"baseRate,omitempty" jsonschema:"rate entry for completion"`
	NegotiatedRate *int64   `json:"negotiatedRate,omitempty"`
	Quantity       *float64 `json:"quantity,omitempty"`
	SkipSettlement bool     `json:"skipSettlement,omitempty" jsonschema:"force-complete with an explicit zero amount"`
	TransportStep  bool     `json:"transportStep,omitempty" jsonschema:"include the job transport surcharge in the amount"`
}

// AdvanceStageOutput is the result of the advance_stage MCP tool.
// Status "awaiting-worker" is a follow-up prompt, not a failure: assign a
// worker from Candidates and retry.
type AdvanceStageOutput struct {
	Status     string          `json:"status"` // "applied" or "awaiting-worker"
	Stage      string          `json:"stage"`
	Amount     *int64          `json:"amount,omitempty"`
	Candidates []worker.Worker `json:"candidates,omitempty"`
}

// AssignWorkerInput is the input for the assign_worker MCP tool.
type AssignWorkerInput struct {
	JobID      string `json:"jobId"`
	ScheduleID string `json:"scheduleId"`
	WorkerID   string `json:"workerId"`
	Actor      string `json:"actor,omitempty"`
}

// AssignWorkerOutput is the result of the assign_worker MCP tool.
type AssignWorkerOutput struct {
	Stage      string `json:"stage"` // stage after assignment (may auto-advance)
	WorkerName string `json:"workerName"`
}

// RegisterSettlementInput is the input for the register_settlement tool.
type RegisterSettlementInput struct {
	JobID      string `json:"jobId"`
	CategoryID string `json:"categoryId"`
	Amount     int64  `json:"amount"`
	Reason     string `json:"reason,omitempty"`
}

// RegisterSettlementOutput is the result of the register_settlement tool.
type RegisterSettlementOutput struct {
	SettlementID string `json:"settlementId"`
	Total        int64  `json:"totalSettlement"`
}

// JobProgressInput is the input for the job_progress MCP tool.
type JobProgressInput struct {
	JobID           string `json:"jobId"`
	StartCategoryID string `json:"startCategoryId,omitempty" jsonschema:"chain start (default: the job's first category)"`
}

// JobProgressOutput is the result of the job_progress MCP tool.
type JobProgressOutput struct {
	Completed  int `json:"completed"`
	InProgress int `json:"inProgress"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// ListJobsInput is the input for the list_jobs MCP tool.
type ListJobsInput struct {
	FarmerID      string `json:"farmerId,omitempty"`
	PaymentStatus string `json:"paymentStatus,omitempty"`
	PageSize      int    `json:"pageSize,omitempty"`
	PageToken     string `json:"pageToken,omitempty"`
}

// ListJobsOutput is the result of the list_jobs MCP tool.
type ListJobsOutput struct {
	Jobs          []JobSummary `json:"jobs"`
	TotalSize     int          `json:"totalSize"`
	NextPageToken string       `json:"nextPageToken,omitempty"`
}

// JobSummary is a brief overview of one job.
type JobSummary struct {
	JobID         string `json:"jobId"`
	FarmerName    string `json:"farmerName"`
	FieldName     string `json:"fieldName"`
	ScheduleCount int    `json:"scheduleCount"`
	Total         int64  `json:"totalSettlement"`
	PaymentStatus string `json:"paymentStatus"`
	Terminal      bool   `json:"terminal"`
}
