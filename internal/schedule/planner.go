package schedule

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/dusk-indust/farmops/internal/pipeline"
)

// Populate appends one Scheduled category schedule to the job for every
// category in the chain starting at startCategoryID, skipping categories
// the job already carries. Calling it twice with the same arguments adds
// nothing the second time. Category names are snapshotted onto the new
// schedules. Returns the schedules that were added.
func Populate(agg *Aggregate, snap pipeline.Snapshot, startCategoryID string, startAt time.Time) ([]CategorySchedule, error) {
	path, err := snap.PathFrom(startCategoryID)
	if err != nil {
		return nil, err
	}

	var added []CategorySchedule
	for _, cat := range path {
		if agg.HasCategory(cat.ID) {
			continue
		}
		cs := CategorySchedule{
			ID:             uuid.NewString(),
			CategoryID:     cat.ID,
			CategoryName:   cat.Name,
			Stage:          StageScheduled,
			ScheduledStart: startAt,
		}
		agg.Schedules = append(agg.Schedules, cs)
		added = append(added, cs)
	}
	return added, nil
}

// Progress summarizes how far a job has moved along its resolved chain.
type Progress struct {
	Completed  int `json:"completed"`
	InProgress int `json:"inProgress"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// ProgressSummary computes progress over the job's schedules restricted to
// the chain starting at startCategoryID. A schedule in progress counts for
// half a completed one, so operators see partial credit while work runs:
// percentage = round((completed + 0.5*inProgress) / total * 100).
func ProgressSummary(agg *Aggregate, snap pipeline.Snapshot, startCategoryID string) (Progress, error) {
	path, err := snap.PathFrom(startCategoryID)
	if err != nil {
		return Progress{}, err
	}

	inPath := make(map[string]bool, len(path))
	for _, cat := range path {
		inPath[cat.ID] = true
	}

	var p Progress
	for i := range agg.Schedules {
		cs := &agg.Schedules[i]
		if !inPath[cs.CategoryID] {
			continue
		}
		p.Total++
		switch cs.Stage {
		case StageCompleted:
			p.Completed++
		case StageInProgress:
			p.InProgress++
		}
	}

	if p.Total > 0 {
		p.Percentage = int(math.Round((float64(p.Completed) + 0.5*float64(p.InProgress)) / float64(p.Total) * 100))
	}
	return p, nil
}
