// Package orchestrator drives one compliance check run: it warms the
// whitelist cache and the activity classification, executes the configured
// rules against the record source, evaluates BOM trees with quality
// bubble-up, and submits the aggregated report to the report sink.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aegisshield/readiness-engine/internal/activity"
	"github.com/aegisshield/readiness-engine/internal/cache"
	"github.com/aegisshield/readiness-engine/internal/config"
	"github.com/aegisshield/readiness-engine/internal/loader"
	"github.com/aegisshield/readiness-engine/internal/processor"
	"github.com/aegisshield/readiness-engine/internal/source"
)

// Row fields shared by the checked entity sets.
const (
	rowKeyField  = "MATNR"
	rowNameField = "MAKTX"
)

// Orchestrator executes compliance check runs. It is safe to trigger runs
// from multiple goroutines; each run owns its intermediate state
// exclusively.
type Orchestrator struct {
	cfg        config.CheckConfig
	src        source.RecordSource
	sink       source.ReportSink
	processor  *processor.FieldProcessor
	classifier *activity.Classifier
	whitelists *cache.WhitelistCache
	logger     *zap.Logger
}

// New creates an orchestrator. When cfg carries no rules the built-in
// default rule set applies.
func New(
	cfg config.CheckConfig,
	src source.RecordSource,
	sink source.ReportSink,
	fieldProcessor *processor.FieldProcessor,
	classifier *activity.Classifier,
	whitelists *cache.WhitelistCache,
	logger *zap.Logger,
) *Orchestrator {
	if len(cfg.Rules) == 0 {
		cfg.Rules = config.DefaultRules()
	}
	if cfg.MaxConcurrentRules <= 0 {
		cfg.MaxConcurrentRules = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		cfg:        cfg,
		src:        src,
		sink:       sink,
		processor:  fieldProcessor,
		classifier: classifier,
		whitelists: whitelists,
		logger:     logger,
	}
}

// preloadOutcome is the explicit result of the preload phase. Both halves
// may degrade without failing the run; the orchestrator decides the policy.
type preloadOutcome struct {
	warmedSources    int
	activityRecords  map[string]activity.Record
	activityDegraded bool
}

// Run executes one complete check run and submits the report. Recoverable
// failures degrade individual results; only a report sink failure aborts.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	runID := uuid.New().String()
	startedAt := time.Now()
	log := o.logger.With(zap.String("run_id", runID))
	log.Info("Starting compliance check run",
		zap.String("regulation", o.cfg.RegulationRef),
		zap.Int("rules", len(o.cfg.Rules)))

	pre := o.preload(ctx, log)

	lines := o.runRules(ctx, log, pre.activityRecords)
	bomNodes := o.evaluateBoms(ctx, log, pre.activityRecords)

	result := o.assemble(runID, startedAt, lines, bomNodes, pre)

	reportID, err := o.sink.Create(ctx, o.buildPayload(result))
	if err != nil {
		log.Error("Report submission failed", zap.Error(err))
		return nil, fmt.Errorf("submitting compliance report: %w", err)
	}
	result.ReportID = reportID
	result.Duration = time.Since(startedAt)

	log.Info("Compliance check run completed",
		zap.String("report_id", reportID),
		zap.Int("fulfillment", result.DegreeOfFulfillment),
		zap.Int("lines", len(result.Lines)),
		zap.Int("bom_nodes", len(result.BomNodes)),
		zap.Duration("duration", result.Duration))
	return result, nil
}

// preload warms the whitelist cache and loads the activity classification
// concurrently. Each half degrades independently.
func (o *Orchestrator) preload(ctx context.Context, log *zap.Logger) preloadOutcome {
	var outcome preloadOutcome

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		outcome.warmedSources = loader.WarmCache(ctx, o.whitelists, log)
	}()
	go func() {
		defer wg.Done()
		records := o.classifier.LoadStatus(ctx, o.cfg.LookbackMonths)
		outcome.activityRecords = records
		outcome.activityDegraded = len(records) == 0
	}()
	wg.Wait()

	if outcome.activityDegraded {
		log.Warn("Run continues without activity data; lookups degrade to DORMANT")
	}
	log.Info("Preload finished",
		zap.Int("warmed_sources", outcome.warmedSources),
		zap.Int("activity_records", len(outcome.activityRecords)))
	return outcome
}

// runRules executes every configured rule. Rules are independent and run
// concurrently; each produces at most one result line, kept in rule order.
func (o *Orchestrator) runRules(ctx context.Context, log *zap.Logger, act map[string]activity.Record) []CheckResultLine {
	slots := make([]*CheckResultLine, len(o.cfg.Rules))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.MaxConcurrentRules)
	for i, rc := range o.cfg.Rules {
		i := i
		rule := Rule{EntitySet: rc.EntitySet, Field: rc.Field, Category: rc.Category}
		g.Go(func() error {
			slots[i] = o.checkRule(gctx, log, rule, act)
			return nil
		})
	}
	_ = g.Wait()

	lines := make([]CheckResultLine, 0, len(slots))
	for _, line := range slots {
		if line != nil {
			lines = append(lines, *line)
		}
	}
	return lines
}

// checkRule evaluates one rule. A "not found" read yields a MISSING line
// with UNKNOWN quality; any other read failure is logged and contributes
// nothing.
func (o *Orchestrator) checkRule(ctx context.Context, log *zap.Logger, rule Rule, act map[string]activity.Record) *CheckResultLine {
	if o.cfg.RuleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.RuleTimeout)
		defer cancel()
	}

	line := &CheckResultLine{
		Category:   rule.Category,
		ObjectID:   rule.Field,
		ObjectName: rule.Field,
		DataSource: rule.EntitySet,
	}
	if def, ok := o.processor.Definition(rule.Field); ok {
		if def.Description != "" {
			line.ObjectName = def.Description
		}
		if def.SourceTable != "" {
			line.DataSource = def.SourceTable + "." + def.SourceField
		}
	}

	sel := []string{rule.Field}
	if rule.Field != rowKeyField {
		sel = append(sel, rowKeyField)
	}
	rows, err := o.src.Read(ctx, rule.EntitySet, source.Query{
		Select: sel,
		Top:    o.cfg.MaxRowsPerRule,
	})
	if errors.Is(err, source.ErrNotFound) {
		line.Availability = AvailMissing
		line.Quality = QualityUnknown
		line.Gap = fmt.Sprintf("entity set %s is not available", rule.EntitySet)
		line.Recommendation = "verify that the extraction for this data source is set up"
		line.ActivityStatus = activity.StatusDormant
		return line
	}
	if err != nil {
		log.Error("Rule check failed, skipping",
			zap.String("entity_set", rule.EntitySet),
			zap.String("field", rule.Field),
			zap.Error(err))
		return nil
	}

	o.gradeRows(ctx, rule, rows, line)

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.String(rowKeyField))
	}
	line.ActivityStatus, line.LastTransaction, line.TransactionCount = summarizeActivity(ids, act)
	return line
}

// gradeRows validates the rule's field across all rows and derives the
// availability category, quality grade and gap description.
func (o *Orchestrator) gradeRows(ctx context.Context, rule Rule, rows []source.Row, line *CheckResultLine) {
	if len(rows) == 0 {
		line.Availability = AvailMissing
		line.Quality = QualityUnknown
		line.Gap = fmt.Sprintf("%s returned no rows for %s", rule.EntitySet, rule.Field)
		line.Recommendation = "verify the data extraction scope"
		return
	}

	_, hasDef := o.processor.Definition(rule.Field)

	empty, invalid, warned := 0, 0, 0
	errMsgs := map[string]struct{}{}
	warnMsgs := map[string]struct{}{}

	for _, row := range rows {
		value := row[rule.Field]
		if isEmptyValue(value) {
			empty++
			continue
		}
		if !hasDef {
			continue
		}
		result, err := o.processor.ValidateValue(ctx, rule.Field, value)
		if err != nil {
			continue
		}
		if !result.OK {
			invalid++
			for _, msg := range result.Errors() {
				errMsgs[msg] = struct{}{}
			}
		}
		if msgs := result.Warnings(); len(msgs) > 0 {
			warned++
			for _, msg := range msgs {
				warnMsgs[msg] = struct{}{}
			}
		}
	}

	switch {
	case empty == len(rows):
		line.Availability = AvailMissing
	case empty > 0:
		line.Availability = AvailPartial
	default:
		line.Availability = AvailAvailable
	}

	if hasDef {
		switch {
		case empty == 0 && invalid == 0 && warned == 0:
			line.Quality = QualityHigh
		case empty == 0 && invalid == 0:
			line.Quality = QualityMedium
		default:
			line.Quality = QualityLow
		}
	} else {
		// Fields without a definition are graded on presence alone.
		if empty == 0 {
			line.Quality = QualityHigh
		} else {
			line.Quality = QualityLow
		}
	}

	line.Invalid = invalid > 0
	line.ValidationErrors = sortedKeys(errMsgs)
	line.ValidationWarnings = sortedKeys(warnMsgs)

	var gaps []string
	if empty > 0 {
		gaps = append(gaps, fmt.Sprintf("%d of %d rows have no %s value", empty, len(rows), rule.Field))
	}
	if invalid > 0 {
		gaps = append(gaps, fmt.Sprintf("%d rows carry invalid %s values", invalid, rule.Field))
	}
	gaps = append(gaps, line.ValidationErrors...)
	line.Gap = joinDistinct(gaps, "; ")
	if line.Gap != "" {
		line.Recommendation = fmt.Sprintf("maintain %s in %s for all affected materials", rule.Field, line.DataSource)
	}
}

func isEmptyValue(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case []interface{}:
		return len(t) == 0
	default:
		return false
	}
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func joinDistinct(parts []string, sep string) string {
	seen := make(map[string]struct{}, len(parts))
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		if out != "" {
			out += sep
		}
		out += p
	}
	return out
}
