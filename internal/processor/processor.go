// Package processor holds the field definition registry and drives
// validation of whole records: whitelist resolution, independent per-field
// validation, and the cross-field dependency pass.
package processor

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aegisshield/readiness-engine/internal/cache"
	"github.com/aegisshield/readiness-engine/internal/fieldtype"
	"github.com/aegisshield/readiness-engine/internal/validate"
)

// ErrUnknownField is returned when a value is validated against a field key
// that has no registered definition.
var ErrUnknownField = fmt.Errorf("unknown field")

// maxConcurrentValidations bounds the fan-out of the independent pass.
const maxConcurrentValidations = 8

// FieldProcessor validates values and records against registered field
// definitions. Registration order matters only in that the last definition
// registered for a key wins.
type FieldProcessor struct {
	mu        sync.RWMutex
	defs      map[string]*fieldtype.FieldDef
	overrides map[string]fieldtype.ValueSet
	cache     *cache.WhitelistCache
	logger    *zap.Logger
}

// NewFieldProcessor creates a processor backed by the given whitelist cache
// and preloaded with the default field definitions.
func NewFieldProcessor(whitelists *cache.WhitelistCache, logger *zap.Logger) *FieldProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &FieldProcessor{
		defs:      make(map[string]*fieldtype.FieldDef),
		overrides: make(map[string]fieldtype.ValueSet),
		cache:     whitelists,
		logger:    logger,
	}
	for _, def := range fieldtype.DefaultFieldDefs() {
		p.defs[def.Key] = def
	}
	return p
}

// Register adds or replaces a field definition.
func (p *FieldProcessor) Register(def *fieldtype.FieldDef) error {
	if def == nil {
		return fmt.Errorf("field definition is nil")
	}
	if err := def.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.defs[def.Key] = def.Clone()
	return nil
}

// Definition returns the registered definition for a key.
func (p *FieldProcessor) Definition(key string) (*fieldtype.FieldDef, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	def, ok := p.defs[key]
	return def, ok
}

// Definitions returns all registered definitions.
func (p *FieldProcessor) Definitions() []*fieldtype.FieldDef {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*fieldtype.FieldDef, 0, len(p.defs))
	for _, def := range p.defs {
		out = append(out, def)
	}
	return out
}

// SetWhitelistOverride pins a custom whitelist for a source name. Overrides
// take precedence over static constants and cache-backed loaders.
func (p *FieldProcessor) SetWhitelistOverride(sourceName string, values []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.overrides[sourceName] = fieldtype.NewValueSet(values...)
}

// ValidateValue validates a single value against the definition registered
// for the key. Unknown keys are a configuration error.
func (p *FieldProcessor) ValidateValue(ctx context.Context, key string, value any) (*validate.FieldResult, error) {
	def, ok := p.Definition(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	whitelist := p.resolveWhitelist(ctx, def)
	return validate.Field(def, value, whitelist), nil
}

// ProcessRecord validates a record in two passes. Pass 1 validates every
// selected field independently and concurrently. Pass 2 applies the
// dependency check for fields that declare dependencies, looking the
// dependency results up in the full pass-1 result set.
//
// With no explicit keys, every record key with a registered definition is
// checked. Explicitly selected keys without a definition are skipped
// silently. Dependencies of selected fields that exist in the record are
// validated in pass 1 as well, so their results are available to pass 2.
func (p *FieldProcessor) ProcessRecord(ctx context.Context, record map[string]any, keys ...string) ([]*validate.FieldResult, error) {
	selected := p.selectFields(record, keys)
	if len(selected) == 0 {
		return nil, nil
	}

	results := make(map[string]*validate.FieldResult, len(selected))
	var resultsMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentValidations)
	for _, def := range selected {
		def := def
		g.Go(func() error {
			whitelist := p.resolveWhitelist(gctx, def)
			result := validate.Field(def, record[def.Key], whitelist)
			resultsMu.Lock()
			results[def.Key] = result
			resultsMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, def := range selected {
		if len(def.Dependencies) == 0 {
			continue
		}
		own := results[def.Key]
		for _, depKey := range def.Dependencies {
			validate.CheckDependency(def, own, depKey, results[depKey])
		}
	}

	ordered := make([]*validate.FieldResult, 0, len(selected))
	for _, def := range selected {
		ordered = append(ordered, results[def.Key])
	}
	return ordered, nil
}

// NormalizedRecord returns a copy of the original record with every non-nil
// normalized value written over its raw counterpart.
func (p *FieldProcessor) NormalizedRecord(results []*validate.FieldResult, original map[string]any) map[string]any {
	out := make(map[string]any, len(original))
	for key, value := range original {
		out[key] = value
	}
	for _, result := range results {
		if result.NormalizedValue != nil {
			out[result.Key] = *result.NormalizedValue
		}
	}
	return out
}

// Summary aggregates a set of field results.
type Summary struct {
	Total    int      `json:"total"`
	Valid    int      `json:"valid"`
	Invalid  int      `json:"invalid"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	IsValid  bool     `json:"is_valid"`
}

// GetSummary flattens results into counts and per-field message lists.
func (p *FieldProcessor) GetSummary(results []*validate.FieldResult) Summary {
	s := Summary{Total: len(results)}
	for _, result := range results {
		switch {
		case !result.OK:
			s.Invalid++
		case result.Skipped():
			s.Skipped++
		default:
			s.Valid++
		}
		for _, msg := range result.Errors() {
			s.Errors = append(s.Errors, msg)
		}
		for _, msg := range result.Warnings() {
			s.Warnings = append(s.Warnings, msg)
		}
	}
	s.IsValid = s.Invalid == 0
	return s
}

// selectFields resolves the definitions to check for a record, in a stable
// order: explicitly requested keys first (in request order), then record
// keys with definitions, then dependencies pulled in for pass 2.
func (p *FieldProcessor) selectFields(record map[string]any, keys []string) []*fieldtype.FieldDef {
	p.mu.RLock()
	defer p.mu.RUnlock()

	seen := make(map[string]struct{})
	var selected []*fieldtype.FieldDef
	add := func(key string) {
		if _, dup := seen[key]; dup {
			return
		}
		if def, ok := p.defs[key]; ok {
			seen[key] = struct{}{}
			selected = append(selected, def)
		}
	}

	if len(keys) > 0 {
		for _, key := range keys {
			add(key)
		}
	} else {
		recordKeys := make([]string, 0, len(record))
		for key := range record {
			recordKeys = append(recordKeys, key)
		}
		sort.Strings(recordKeys)
		for _, key := range recordKeys {
			add(key)
		}
	}

	// Pull in record-present dependencies so pass 2 can see their results.
	for _, def := range selected {
		for _, depKey := range def.Dependencies {
			if _, inRecord := record[depKey]; inRecord {
				add(depKey)
			}
		}
	}
	return selected
}

func (p *FieldProcessor) resolveWhitelist(ctx context.Context, def *fieldtype.FieldDef) fieldtype.ValueSet {
	if def.WhitelistSource == "" {
		return nil
	}

	p.mu.RLock()
	override, ok := p.overrides[def.WhitelistSource]
	p.mu.RUnlock()
	if ok {
		return override
	}

	if static, ok := fieldtype.StaticWhitelist(def.WhitelistSource); ok {
		return static
	}

	if p.cache == nil {
		return nil
	}
	values, err := p.cache.GetOrLoad(ctx, def.WhitelistSource)
	if err != nil {
		p.logger.Warn("Whitelist unavailable, membership check will be skipped",
			zap.String("field", def.Key),
			zap.String("source", def.WhitelistSource),
			zap.Error(err))
		return nil
	}
	return values
}
