package orchestrator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aegisshield/readiness-engine/internal/activity"
	"github.com/aegisshield/readiness-engine/internal/cache"
	"github.com/aegisshield/readiness-engine/internal/config"
	"github.com/aegisshield/readiness-engine/internal/fieldtype"
	"github.com/aegisshield/readiness-engine/internal/processor"
	"github.com/aegisshield/readiness-engine/internal/source"
)

type fakeSource struct {
	rows map[string][]source.Row
	errs map[string]error
}

func (f *fakeSource) Read(ctx context.Context, entitySet string, q source.Query) ([]source.Row, error) {
	if err, ok := f.errs[entitySet]; ok {
		return nil, err
	}
	rows, ok := f.rows[entitySet]
	if !ok {
		return nil, fmt.Errorf("reading %s: %w", entitySet, source.ErrNotFound)
	}
	return rows, nil
}

type fakeSink struct {
	payload *source.ReportPayload
	err     error
}

func (f *fakeSink) Create(ctx context.Context, payload source.ReportPayload) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.payload = &payload
	return "report-1", nil
}

func recentDate() string {
	return time.Now().AddDate(0, 0, -15).Format("2006-01-02")
}

func testSource() *fakeSource {
	return &fakeSource{
		rows: map[string][]source.Row{
			"MaterialSet": {
				{"MATNR": "P1", "MAKTX": "Parent assembly", "MEINS": "KG", "ERDAT": "2023-01-01", "WAERS": "EUR"},
				{"MATNR": "C1", "MAKTX": "Good component", "MEINS": "ST", "ERDAT": "2023-02-02", "WAERS": "EUR"},
				{"MATNR": "C2", "MAKTX": "Bad component", "MEINS": "??", "ERDAT": "bogus", "WAERS": "EUR"},
			},
			"MaterialDocumentSet": {
				{"MATNR": "P1", "BUDAT": recentDate()},
			},
			"BomComponentSet": {
				{"STLNR": "B001", "MATNR": "P1", "IDNRK": "C1"},
				{"STLNR": "B001", "MATNR": "P1", "IDNRK": "C2"},
			},
		},
		errs: map[string]error{
			"BrokenSet": fmt.Errorf("gateway timeout"),
		},
	}
}

func testOrchestrator(t *testing.T, src source.RecordSource, sink source.ReportSink, rules []config.RuleConfig) *Orchestrator {
	t.Helper()
	whitelists := cache.NewWhitelistCache(time.Minute, zap.NewNop())
	p := processor.NewFieldProcessor(whitelists, zap.NewNop())
	p.SetWhitelistOverride(fieldtype.SourceUnits, []string{"KG", "ST", "M"})
	p.SetWhitelistOverride(fieldtype.SourceCurrencies, []string{"EUR"})

	cfg := config.CheckConfig{
		RegulationRef:      "EU-2023/1115",
		LookbackMonths:     12,
		MaxConcurrentRules: 2,
		MaxRowsPerRule:     100,
		MaxBomParents:      50,
		Rules:              rules,
	}
	classifier := activity.NewClassifier(src, zap.NewNop())
	return New(cfg, src, sink, p, classifier, whitelists, zap.NewNop())
}

func TestRun(t *testing.T) {
	rules := []config.RuleConfig{
		{EntitySet: "MaterialSet", Field: "MEINS", Category: "Units"},
		{EntitySet: "MaterialSet", Field: "ERDAT", Category: "Master Data"},
		{EntitySet: "MissingSet", Field: "WAERS", Category: "Valuation"},
		{EntitySet: "BrokenSet", Field: "MATNR", Category: "Identification"},
	}
	sink := &fakeSink{}
	orch := testOrchestrator(t, testSource(), sink, rules)

	result, err := orch.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sink.payload)

	t.Run("Broken Rule Contributes Nothing", func(t *testing.T) {
		assert.Len(t, result.Lines, 3, "three of four rules produce a line")
	})

	t.Run("Not Found Yields Missing Unknown", func(t *testing.T) {
		var missing *CheckResultLine
		for i := range result.Lines {
			if result.Lines[i].Category == "Valuation" {
				missing = &result.Lines[i]
			}
		}
		require.NotNil(t, missing)
		assert.Equal(t, AvailMissing, missing.Availability)
		assert.Equal(t, QualityUnknown, missing.Quality)
	})

	t.Run("Invalid Values Grade Low", func(t *testing.T) {
		for _, line := range result.Lines {
			if line.Category == "Units" {
				assert.Equal(t, AvailAvailable, line.Availability)
				assert.Equal(t, QualityLow, line.Quality)
				assert.True(t, line.Invalid)
				assert.NotEmpty(t, line.ValidationErrors)
			}
		}
	})

	t.Run("Bom Parent Downgraded By Bad Child", func(t *testing.T) {
		require.Len(t, result.BomNodes, 3)

		parent := result.BomNodes[0]
		assert.Nil(t, parent.ParentNodeID)
		assert.Equal(t, "P1", parent.MaterialID)
		assert.Equal(t, AvailMissing, parent.Availability,
			"one LOW-quality child downgrades the parent regardless of its own fields")
		assert.Contains(t, parent.Gap, "child components have missing/invalid data")
		assert.NotEmpty(t, parent.Recommendation)

		for _, node := range result.BomNodes[1:] {
			require.NotNil(t, node.ParentNodeID)
			assert.Equal(t, parent.NodeID, *node.ParentNodeID)
		}
	})

	t.Run("Node IDs Sequential From One", func(t *testing.T) {
		for i, node := range result.BomNodes {
			assert.Equal(t, i+1, node.NodeID)
		}
	})

	t.Run("Activity Annotation", func(t *testing.T) {
		parent := result.BomNodes[0]
		assert.Equal(t, activity.StatusActive, parent.ActivityStatus)
		assert.Equal(t, 1, parent.TransactionCount)
	})

	t.Run("Fulfillment Score", func(t *testing.T) {
		// Of 6 results (3 lines + 3 nodes) only the good component is both
		// available and clean: round(100/6) = 17.
		assert.Equal(t, 17, result.DegreeOfFulfillment)
	})

	t.Run("Payload Strips Internal Fields", func(t *testing.T) {
		assert.Len(t, sink.payload.Results, 3)
		assert.Len(t, sink.payload.BomResults, 3)
		assert.Equal(t, "EU-2023/1115", sink.payload.RegulationRef)
		assert.Equal(t, result.DegreeOfFulfillment, sink.payload.DegreeOfFulfillment)
		assert.NotEmpty(t, sink.payload.RunTimestamp)
	})
}

func TestRunSinkFailureIsFatal(t *testing.T) {
	rules := []config.RuleConfig{{EntitySet: "MaterialSet", Field: "MEINS", Category: "Units"}}
	sink := &fakeSink{err: fmt.Errorf("backend rejected the report")}
	orch := testOrchestrator(t, testSource(), sink, rules)

	_, err := orch.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "submitting compliance report")
}

func TestRunDegradesWithoutActivityData(t *testing.T) {
	src := testSource()
	src.errs["MaterialDocumentSet"] = fmt.Errorf("history unavailable")
	sink := &fakeSink{}
	rules := []config.RuleConfig{{EntitySet: "MaterialSet", Field: "MEINS", Category: "Units"}}
	orch := testOrchestrator(t, src, sink, rules)

	result, err := orch.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.ActivityDegraded)
	assert.Equal(t, "COMPLETED_DEGRADED", result.Status)
	for _, line := range result.Lines {
		assert.Equal(t, activity.StatusDormant, line.ActivityStatus)
	}
}

func TestSummarizeActivity(t *testing.T) {
	now := time.Now()
	records := map[string]activity.Record{
		"A1": {Status: activity.StatusActive, LastTransaction: &now, TransactionCount: 5},
		"A2": {Status: activity.StatusActive, TransactionCount: 2},
		"I1": {Status: activity.StatusInactive, TransactionCount: 1},
		"I2": {Status: activity.StatusInactive, TransactionCount: 1},
		"D1": {Status: activity.StatusDormant},
	}

	t.Run("Plain Majority", func(t *testing.T) {
		status, latest, count := summarizeActivity([]string{"A1", "A2", "I1"}, records)
		assert.Equal(t, activity.StatusActive, status)
		assert.NotNil(t, latest)
		assert.Equal(t, 8, count)
	})

	t.Run("Inactive Wins Tie Against Dormant", func(t *testing.T) {
		status, _, _ := summarizeActivity([]string{"I1", "D1"}, records)
		assert.Equal(t, activity.StatusInactive, status)
	})

	t.Run("Dormant Wins Tie Against Active", func(t *testing.T) {
		status, _, _ := summarizeActivity([]string{"A1", "D1"}, records)
		assert.Equal(t, activity.StatusDormant, status)
	})

	t.Run("Unknown Ids Count As Dormant", func(t *testing.T) {
		status, latest, count := summarizeActivity([]string{"X1", "X2", "A1"}, records)
		assert.Equal(t, activity.StatusDormant, status)
		assert.NotNil(t, latest)
		assert.Equal(t, 5, count)
	})

	t.Run("Empty Input", func(t *testing.T) {
		status, latest, count := summarizeActivity(nil, records)
		assert.Equal(t, activity.StatusDormant, status)
		assert.Nil(t, latest)
		assert.Zero(t, count)
	})

	t.Run("Duplicates Counted Once", func(t *testing.T) {
		status, _, count := summarizeActivity([]string{"I1", "I1", "D1"}, records)
		assert.Equal(t, activity.StatusInactive, status)
		assert.Equal(t, 1, count)
	})
}
