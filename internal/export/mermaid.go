package export

import (
	"fmt"
	"strings"

	"github.com/dusk-indust/farmops/internal/pipeline"
	"github.com/dusk-indust/farmops/internal/schedule"
)

// GenerateMermaid produces a Mermaid graph LR diagram of the configured
// category pipeline. Each independent chain becomes one row of linked
// nodes.
func GenerateMermaid(snap pipeline.Snapshot) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	nodeIDs := make(map[string]string)
	nextID := 0
	getID := func(categoryID string) string {
		if id, ok := nodeIDs[categoryID]; ok {
			return id
		}
		id := fmt.Sprintf("N%d", nextID)
		nextID++
		nodeIDs[categoryID] = id
		return id
	}

	for _, chain := range snap.Chains() {
		for i, cat := range chain {
			sb.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", getID(cat.ID), cat.Name))
			if i > 0 {
				sb.WriteString(fmt.Sprintf("  %s --> %s\n", getID(chain[i-1].ID), getID(cat.ID)))
			}
		}
	}
	return sb.String()
}

// GenerateJobMermaid renders the pipeline with the job's stage labels
// attached to the categories it carries, e.g. `pulling (완료)`.
func GenerateJobMermaid(snap pipeline.Snapshot, agg *schedule.Aggregate) string {
	stageByCategory := make(map[string]schedule.Stage)
	for i := range agg.Schedules {
		stageByCategory[agg.Schedules[i].CategoryID] = agg.Schedules[i].Stage
	}

	var sb strings.Builder
	sb.WriteString("graph LR\n")

	nodeIDs := make(map[string]string)
	nextID := 0
	getID := func(categoryID string) string {
		if id, ok := nodeIDs[categoryID]; ok {
			return id
		}
		id := fmt.Sprintf("N%d", nextID)
		nextID++
		nodeIDs[categoryID] = id
		return id
	}

	for _, chain := range snap.Chains() {
		for i, cat := range chain {
			label := cat.Name
			if st, ok := stageByCategory[cat.ID]; ok {
				label = fmt.Sprintf("%s (%s)", cat.Name, st.Label())
			}
			sb.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", getID(cat.ID), label))
			if i > 0 {
				sb.WriteString(fmt.Sprintf("  %s --> %s\n", getID(chain[i-1].ID), getID(cat.ID)))
			}
		}
	}
	return sb.String()
}
