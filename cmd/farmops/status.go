package main

import (
	"context"
	"fmt"

	"github.com/dusk-indust/farmops/internal/pipeline"
	"github.com/dusk-indust/farmops/internal/schedule"
	"github.com/dusk-indust/farmops/internal/store"
)

// cmdPipeline prints the configured chains as a Mermaid-free text listing.
func cmdPipeline(graph *pipeline.Graph) error {
	snap := graph.Snapshot()
	if snap.Len() == 0 {
		fmt.Println("no categories configured (run `farmops init`)")
		return nil
	}
	for _, chain := range snap.Chains() {
		for i, cat := range chain {
			if i > 0 {
				fmt.Print(" -> ")
			}
			fmt.Print(cat.Name)
		}
		fmt.Println()
	}
	return nil
}

// cmdStatus prints one job's schedules, amounts, and chain progress.
func cmdStatus(ctx context.Context, st store.Store, graph *pipeline.Graph, jobID string) error {
	agg, err := st.LoadAggregate(ctx, jobID)
	if err != nil {
		return err
	}

	fmt.Printf("job %s  farmer=%s field=%s payment=%s\n", agg.ID, agg.FarmerName, agg.FieldName, agg.PaymentStatus)
	for i := range agg.Schedules {
		cs := &agg.Schedules[i]
		line := fmt.Sprintf("  [%s] %s", cs.Stage.Label(), cs.CategoryName)
		if cs.WorkerName != "" {
			line += " / " + cs.WorkerName
		}
		if cs.Amount != nil {
			line += fmt.Sprintf(" / %d원", *cs.Amount)
		}
		fmt.Println(line)
	}
	for _, x := range agg.Extras {
		fmt.Printf("  [추가] %d원 %s\n", x.Amount, x.Reason)
	}
	fmt.Printf("  total: %d원\n", agg.TotalSettlement())

	if len(agg.Schedules) > 0 {
		p, err := schedule.ProgressSummary(agg, graph.Snapshot(), agg.Schedules[0].CategoryID)
		if err == nil && p.Total > 0 {
			fmt.Printf("  progress: %d%% (%d done, %d running, %d total)\n",
				p.Percentage, p.Completed, p.InProgress, p.Total)
		}
	}
	return nil
}
