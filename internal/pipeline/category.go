package pipeline

import "fmt"

// Category is a named step in a work pipeline (e.g. "pulling", "cutting").
// A category optionally points at exactly one successor via NextID, so a
// configured set of categories forms one or more linear chains.
type Category struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Order  int    `json:"order"`
	NextID string `json:"nextCategoryId,omitempty"` // empty means end of chain
}

// --- Error taxonomy ---

// ValidationError reports malformed input to a graph or schedule operation.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// NotFoundError reports an unknown category or schedule id.
type NotFoundError struct {
	Kind string // "category", "schedule", "job"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// CycleError reports a SetNext call that would make a category reachable
// from itself.
type CycleError struct {
	CategoryID string
	NextID     string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("linking %q -> %q would create a cycle", e.CategoryID, e.NextID)
}

// InUseError reports a category deletion blocked by live job references.
type InUseError struct {
	CategoryID string
}

func (e *InUseError) Error() string {
	return fmt.Sprintf("category %q is referenced by live jobs", e.CategoryID)
}
