// Package loader registers the concrete whitelist loaders into the cache:
// the unit and currency lookup tables from the record source, plus static
// constant sets. Table loaders degrade to the static fallbacks when the
// source is unreachable, so validation keeps working with reduced coverage.
package loader

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aegisshield/readiness-engine/internal/cache"
	"github.com/aegisshield/readiness-engine/internal/fieldtype"
	"github.com/aegisshield/readiness-engine/internal/source"
)

// Entity sets and code fields of the lookup tables.
const (
	UnitEntitySet     = "UnitSet"
	UnitCodeField     = "MSEHI"
	CurrencyEntitySet = "CurrencySet"
	CurrencyCodeField = "WAERS"
)

// RegisterDefaults wires the standard loaders into the cache.
func RegisterDefaults(c *cache.WhitelistCache, src source.RecordSource, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c.RegisterLoader(fieldtype.SourceUnits,
		tableLoader(src, UnitEntitySet, UnitCodeField, fieldtype.FallbackUnits, logger))
	c.RegisterLoader(fieldtype.SourceCurrencies,
		tableLoader(src, CurrencyEntitySet, CurrencyCodeField, fieldtype.FallbackCurrencies, logger))
	c.RegisterLoader(fieldtype.SourceProcurement, staticLoader(fieldtype.ProcurementTypes))
	c.RegisterLoader(fieldtype.SourceSpecies, staticLoader(fieldtype.SpeciesCodes))
}

// LookupSources lists every cache key a run should warm.
func LookupSources() []string {
	return []string{
		fieldtype.SourceUnits,
		fieldtype.SourceCurrencies,
		fieldtype.SourceProcurement,
		fieldtype.SourceSpecies,
	}
}

// WarmCache preloads all lookup sources concurrently. Individual load
// failures are logged and tolerated; the return value is the number of
// sources that loaded.
func WarmCache(ctx context.Context, c *cache.WhitelistCache, logger *zap.Logger) int {
	if logger == nil {
		logger = zap.NewNop()
	}
	keys := LookupSources()
	loaded := make([]bool, len(keys))

	g, ctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			if _, err := c.GetOrLoad(ctx, key); err != nil {
				logger.Warn("Whitelist preload failed",
					zap.String("source", key),
					zap.Error(err))
				return nil
			}
			loaded[i] = true
			return nil
		})
	}
	_ = g.Wait()

	count := 0
	for _, ok := range loaded {
		if ok {
			count++
		}
	}
	return count
}

func tableLoader(src source.RecordSource, entitySet, codeField string, fallback []string, logger *zap.Logger) cache.Loader {
	return func(ctx context.Context) ([]string, error) {
		rows, err := src.Read(ctx, entitySet, source.Query{Select: []string{codeField}})
		if err != nil {
			logger.Warn("Lookup table unavailable, using fallback constants",
				zap.String("entity_set", entitySet),
				zap.Error(err))
			return fallback, nil
		}
		values := make([]string, 0, len(rows))
		for _, row := range rows {
			if code := row.String(codeField); code != "" {
				values = append(values, code)
			}
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("lookup table %s returned no codes", entitySet)
		}
		return values, nil
	}
}

func staticLoader(values []string) cache.Loader {
	return func(ctx context.Context) ([]string, error) {
		return values, nil
	}
}
