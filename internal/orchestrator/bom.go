package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aegisshield/readiness-engine/internal/activity"
	"github.com/aegisshield/readiness-engine/internal/source"
)

// BOM entity set and fields.
const (
	bomEntitySet      = "BomComponentSet"
	bomNumberField    = "STLNR"
	bomParentField    = "MATNR"
	bomComponentField = "IDNRK"

	materialEntitySet = "MaterialSet"

	childGapMessage       = "child components have missing/invalid data"
	defaultRecommendation = "complete the component master data before reporting"
)

// maxConcurrentBoms bounds the fan-out of BOM evaluation. Different BOM
// numbers are independent; within one BOM number the children are evaluated
// strictly after the parent so the bubble-up fold is race-free.
const maxConcurrentBoms = 4

// bomArena owns every node of one run. Node ids are assigned sequentially
// starting at 1 under a single lock, so ids stay unique even though BOM
// numbers are evaluated concurrently.
type bomArena struct {
	mu    sync.Mutex
	nodes []*BomNode
}

func (a *bomArena) alloc(node *BomNode) *BomNode {
	a.mu.Lock()
	defer a.mu.Unlock()
	node.NodeID = len(a.nodes) + 1
	a.nodes = append(a.nodes, node)
	return node
}

func (a *bomArena) sorted() []*BomNode {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := append([]*BomNode(nil), a.nodes...)
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })
	return out
}

// bomEdge is one composition row: parent material, component material, BOM
// number.
type bomEdge struct {
	bomNumber string
	parent    string
	component string
}

// evaluateBoms fetches the composition edges, evaluates one tree per BOM
// number, and returns the flattened node list. Read failures degrade to an
// empty result.
func (o *Orchestrator) evaluateBoms(ctx context.Context, log *zap.Logger, act map[string]activity.Record) []*BomNode {
	edges, err := o.loadBomEdges(ctx, act)
	if err != nil {
		log.Error("BOM evaluation skipped", zap.Error(err))
		return nil
	}
	if len(edges) == 0 {
		return nil
	}

	attrs, err := o.loadMaterialAttributes(ctx, edges)
	if err != nil {
		log.Error("BOM evaluation skipped, material attributes unavailable", zap.Error(err))
		return nil
	}

	// Group edges per BOM number, keeping first-seen order.
	grouped := make(map[string][]bomEdge)
	var order []string
	for _, edge := range edges {
		if _, seen := grouped[edge.bomNumber]; !seen {
			order = append(order, edge.bomNumber)
		}
		grouped[edge.bomNumber] = append(grouped[edge.bomNumber], edge)
	}

	arena := &bomArena{}
	fieldKeys := o.ruleFieldKeys()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentBoms)
	for _, bomNumber := range order {
		bomNumber := bomNumber
		bomEdges := grouped[bomNumber]
		g.Go(func() error {
			o.evaluateBomTree(gctx, arena, bomNumber, bomEdges, attrs, fieldKeys, act)
			return nil
		})
	}
	_ = g.Wait()

	nodes := arena.sorted()
	log.Info("BOM evaluation finished",
		zap.Int("bom_numbers", len(order)),
		zap.Int("nodes", len(nodes)))
	return nodes
}

// evaluateBomTree builds and grades the two-level tree of one BOM number.
// The parent is evaluated exactly once; the children are computed after it
// and folded into the parent in one synchronous aggregation step.
func (o *Orchestrator) evaluateBomTree(
	ctx context.Context,
	arena *bomArena,
	bomNumber string,
	edges []bomEdge,
	attrs map[string]source.Row,
	fieldKeys []string,
	act map[string]activity.Record,
) {
	parentID := edges[0].parent
	parent := arena.alloc(&BomNode{
		BomNumber:  bomNumber,
		MaterialID: parentID,
	})
	o.gradeMaterial(ctx, parent, attrs[parentID], fieldKeys)
	o.annotateActivity(parent, act)

	childDowngrade := false
	for _, edge := range edges {
		child := arena.alloc(&BomNode{
			ParentNodeID: &parent.NodeID,
			BomNumber:    bomNumber,
			MaterialID:   edge.component,
		})
		o.gradeMaterial(ctx, child, attrs[edge.component], fieldKeys)
		o.annotateActivity(child, act)

		if child.Availability != AvailAvailable || child.Quality != QualityHigh {
			childDowngrade = true
		}
	}

	if childDowngrade {
		parent.Availability = AvailMissing
		parent.Gap = joinDistinct([]string{parent.Gap, childGapMessage}, "; ")
		if parent.Recommendation == "" {
			parent.Recommendation = defaultRecommendation
		}
	}
}

// gradeMaterial grades one material's attributes with the active rule
// fields. A material without an attribute row is missing outright.
func (o *Orchestrator) gradeMaterial(ctx context.Context, node *BomNode, row source.Row, fieldKeys []string) {
	if row == nil {
		node.Availability = AvailMissing
		node.Quality = QualityUnknown
		node.Gap = fmt.Sprintf("material %s has no master data record", node.MaterialID)
		node.Recommendation = "create the material master record"
		return
	}
	node.MaterialName = row.String(rowNameField)

	results, err := o.processor.ProcessRecord(ctx, row, fieldKeys...)
	if err != nil || len(results) == 0 {
		node.Availability = AvailMissing
		node.Quality = QualityUnknown
		node.Gap = fmt.Sprintf("material %s could not be evaluated", node.MaterialID)
		return
	}

	empty, invalid, warned := 0, 0, 0
	var gaps []string
	for _, result := range results {
		if result.Normalized() == "" {
			empty++
		}
		if !result.OK {
			invalid++
			gaps = append(gaps, result.Errors()...)
		} else if len(result.Warnings()) > 0 {
			warned++
		}
	}

	switch {
	case empty == len(results):
		node.Availability = AvailMissing
	case empty > 0:
		node.Availability = AvailPartial
	default:
		node.Availability = AvailAvailable
	}
	switch {
	case empty == 0 && invalid == 0 && warned == 0:
		node.Quality = QualityHigh
	case empty == 0 && invalid == 0:
		node.Quality = QualityMedium
	default:
		node.Quality = QualityLow
	}
	node.Gap = joinDistinct(gaps, "; ")
	if node.Gap != "" {
		node.Recommendation = fmt.Sprintf("maintain the flagged fields for material %s", node.MaterialID)
	}
}

func (o *Orchestrator) annotateActivity(node *BomNode, act map[string]activity.Record) {
	rec, ok := act[node.MaterialID]
	if !ok {
		node.ActivityStatus = activity.StatusDormant
		return
	}
	node.ActivityStatus = rec.Status
	node.LastTransaction = rec.LastTransaction
	node.TransactionCount = rec.TransactionCount
}

// loadBomEdges reads the composition edges, scoped to parents with known
// transaction activity when activity data is available.
func (o *Orchestrator) loadBomEdges(ctx context.Context, act map[string]activity.Record) ([]bomEdge, error) {
	query := source.Query{
		Select: []string{bomNumberField, bomParentField, bomComponentField},
	}
	if len(act) > 0 {
		parents := make([]string, 0, len(act))
		for matnr := range act {
			parents = append(parents, matnr)
		}
		sort.Strings(parents)
		if o.cfg.MaxBomParents > 0 && len(parents) > o.cfg.MaxBomParents {
			parents = parents[:o.cfg.MaxBomParents]
		}
		query.Filter = source.Filter{Field: bomParentField, Values: parents}
	}

	rows, err := o.src.Read(ctx, bomEntitySet, query)
	if err != nil {
		return nil, fmt.Errorf("reading BOM components: %w", err)
	}

	edges := make([]bomEdge, 0, len(rows))
	for _, row := range rows {
		edge := bomEdge{
			bomNumber: row.String(bomNumberField),
			parent:    row.String(bomParentField),
			component: row.String(bomComponentField),
		}
		if edge.bomNumber == "" || edge.parent == "" || edge.component == "" {
			continue
		}
		edges = append(edges, edge)
	}
	return edges, nil
}

// loadMaterialAttributes fetches the master data rows of every material the
// BOM trees reference, keyed by material number.
func (o *Orchestrator) loadMaterialAttributes(ctx context.Context, edges []bomEdge) (map[string]source.Row, error) {
	idSet := make(map[string]struct{})
	for _, edge := range edges {
		idSet[edge.parent] = struct{}{}
		idSet[edge.component] = struct{}{}
	}
	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows, err := o.src.Read(ctx, materialEntitySet, source.Query{
		Filter: source.Filter{Field: rowKeyField, Values: ids},
	})
	if err != nil {
		return nil, fmt.Errorf("reading material attributes: %w", err)
	}

	attrs := make(map[string]source.Row, len(rows))
	for _, row := range rows {
		if id := row.String(rowKeyField); id != "" {
			attrs[id] = row
		}
	}
	return attrs, nil
}

// ruleFieldKeys returns the distinct configured rule fields that have a
// registered definition, in rule order.
func (o *Orchestrator) ruleFieldKeys() []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, rule := range o.cfg.Rules {
		if _, dup := seen[rule.Field]; dup {
			continue
		}
		if _, ok := o.processor.Definition(rule.Field); ok {
			seen[rule.Field] = struct{}{}
			keys = append(keys, rule.Field)
		}
	}
	return keys
}
