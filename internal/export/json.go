// Package export renders jobs and pipelines into portable formats.
package export

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/farmops/internal/schedule"
	"github.com/dusk-indust/farmops/internal/store"
)

// JobExport is the top-level JSON export structure for one job.
type JobExport struct {
	ID         string         `json:"id"`
	FarmerName string         `json:"farmerName"`
	FieldName  string         `json:"fieldName"`
	ExportedAt string         `json:"exportedAt"`
	Schedules  []ScheduleLine `json:"schedules"`
	Extras     []ExtraLine    `json:"extras,omitempty"`
	Total      int64          `json:"totalSettlement"`
	Payment    string         `json:"paymentStatus"`
}

// ScheduleLine describes one category schedule in an export.
type ScheduleLine struct {
	Category   string `json:"category"`
	Stage      string `json:"stage"`
	StageLabel string `json:"stageLabel"`
	Worker     string `json:"worker,omitempty"`
	Amount     *int64 `json:"amount,omitempty"`
	Memo       string `json:"memo,omitempty"`
}

// ExtraLine describes one additional settlement in an export.
type ExtraLine struct {
	Category string `json:"categoryId"`
	Amount   int64  `json:"amount"`
	Reason   string `json:"reason"`
	At       string `json:"registeredAt"`
}

// BuildJobExport flattens a job into its export form. The total is
// re-derived from the live collections, never read from a cache.
func BuildJobExport(agg *schedule.Aggregate) *JobExport {
	out := &JobExport{
		ID:         agg.ID,
		FarmerName: agg.FarmerName,
		FieldName:  agg.FieldName,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Total:      agg.TotalSettlement(),
		Payment:    string(agg.PaymentStatus),
	}
	for i := range agg.Schedules {
		cs := &agg.Schedules[i]
		line := ScheduleLine{
			Category:   cs.CategoryName,
			Stage:      string(cs.Stage),
			StageLabel: cs.Stage.Label(),
			Worker:     cs.WorkerName,
			Memo:       cs.Memo,
		}
		if cs.Amount != nil {
			amt := *cs.Amount
			line.Amount = &amt
		}
		out.Schedules = append(out.Schedules, line)
	}
	for _, x := range agg.Extras {
		out.Extras = append(out.Extras, ExtraLine{
			Category: x.CategoryID,
			Amount:   x.Amount,
			Reason:   x.Reason,
			At:       x.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

// ExportJobs loads and flattens many jobs in parallel. It uses
// errgroup.WithContext so the first load failure cancels the remaining
// lookups. Results keep the order of ids.
func ExportJobs(ctx context.Context, st store.Store, ids []string) ([]*JobExport, error) {
	exports := make([]*JobExport, len(ids))
	g, gctx := errgroup.WithContext(ctx)

	for i, id := range ids {
		g.Go(func() error {
			agg, err := st.LoadAggregate(gctx, id)
			if err != nil {
				return err
			}
			exports[i] = BuildJobExport(agg)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return exports, nil
}
