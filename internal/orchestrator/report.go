package orchestrator

import (
	"fmt"
	"math"
	"time"

	"github.com/aegisshield/readiness-engine/internal/source"
)

// assemble computes the fulfillment score and summary over all result
// lines and BOM nodes of the run.
func (o *Orchestrator) assemble(runID string, startedAt time.Time, lines []CheckResultLine, bomNodes []*BomNode, pre preloadOutcome) *RunResult {
	total := len(lines) + len(bomNodes)
	fulfilled := 0
	errCount, warnCount := 0, 0

	for _, line := range lines {
		if line.Availability == AvailAvailable && !line.Invalid {
			fulfilled++
		}
		errCount += len(line.ValidationErrors)
		warnCount += len(line.ValidationWarnings)
	}
	for _, node := range bomNodes {
		if node.Availability == AvailAvailable && node.Quality != QualityLow {
			fulfilled++
		}
		if node.Quality == QualityLow {
			errCount++
		}
	}

	degree := 0
	if total > 0 {
		degree = int(math.Round(100 * float64(fulfilled) / float64(total)))
	}

	status := "COMPLETED"
	if pre.activityDegraded {
		status = "COMPLETED_DEGRADED"
	}

	return &RunResult{
		RunID:               runID,
		DegreeOfFulfillment: degree,
		Summary: fmt.Sprintf("%d checks, %d BOM nodes, %d errors, %d warnings",
			len(lines), len(bomNodes), errCount, warnCount),
		Status:           status,
		Lines:            lines,
		BomNodes:         bomNodes,
		WarmedSources:    pre.warmedSources,
		ActivityDegraded: pre.activityDegraded,
		StartedAt:        startedAt,
	}
}

// buildPayload converts the run result into the sink contract, stripping
// the internal validation fields from the general lines and flattening the
// BOM trees.
func (o *Orchestrator) buildPayload(result *RunResult) source.ReportPayload {
	payload := source.ReportPayload{
		RegulationRef:       o.cfg.RegulationRef,
		RunTimestamp:        result.StartedAt.UTC().Format(time.RFC3339),
		DegreeOfFulfillment: result.DegreeOfFulfillment,
		Summary:             result.Summary,
		Status:              result.Status,
		Results:             make([]source.ResultLine, 0, len(result.Lines)),
		BomResults:          make([]source.BomResultLine, 0, len(result.BomNodes)),
	}

	for _, line := range result.Lines {
		payload.Results = append(payload.Results, source.ResultLine{
			Category:         line.Category,
			ObjectID:         line.ObjectID,
			ObjectName:       line.ObjectName,
			AvailabilityCat:  string(line.Availability),
			DataQuality:      string(line.Quality),
			Gap:              line.Gap,
			Recommendation:   line.Recommendation,
			DataSource:       line.DataSource,
			ActivityStatus:   string(line.ActivityStatus),
			LastTransaction:  formatDate(line.LastTransaction),
			TransactionCount: line.TransactionCount,
		})
	}
	for _, node := range result.BomNodes {
		payload.BomResults = append(payload.BomResults, source.BomResultLine{
			NodeID:           node.NodeID,
			ParentNodeID:     node.ParentNodeID,
			BomNumber:        node.BomNumber,
			ObjectID:         node.MaterialID,
			ObjectName:       node.MaterialName,
			AvailabilityCat:  string(node.Availability),
			DataQuality:      string(node.Quality),
			Gap:              node.Gap,
			Recommendation:   node.Recommendation,
			ActivityStatus:   string(node.ActivityStatus),
			LastTransaction:  formatDate(node.LastTransaction),
			TransactionCount: node.TransactionCount,
		})
	}
	return payload
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
