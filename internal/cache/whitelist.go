// Package cache provides the shared whitelist cache: named sets of allowed
// values with TTL expiry, pluggable async loaders, and de-duplicated
// concurrent loads. It is the only shared mutable resource between
// concurrent validation callers.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/aegisshield/readiness-engine/internal/fieldtype"
)

// ErrNoLoader is returned by GetOrLoad when a key has neither a cached value
// nor a registered loader.
var ErrNoLoader = errors.New("no loader registered")

// DefaultTTL applies when Set is called with a zero TTL.
const DefaultTTL = 30 * time.Minute

// Loader produces the value set for a cache key.
type Loader func(ctx context.Context) ([]string, error)

// Entry is one cached whitelist. Expired entries are treated as absent by
// Get and Has but remain in place until explicitly purged.
type Entry struct {
	Key       string
	Values    fieldtype.ValueSet
	CreatedAt time.Time
	TTL       time.Duration
}

func (e *Entry) expired(now time.Time) bool {
	return now.Sub(e.CreatedAt) > e.TTL
}

// Stats summarizes the cache state.
type Stats struct {
	ValidEntries   int `json:"valid_entries"`
	ExpiredEntries int `json:"expired_entries"`
	Loaders        int `json:"loaders"`
	InFlightLoads  int `json:"in_flight_loads"`
}

// WhitelistCache is safe for concurrent use. At most one load per key is in
// flight at any time; concurrent callers of GetOrLoad share the pending
// result instead of triggering duplicate loads.
type WhitelistCache struct {
	mu         sync.RWMutex
	entries    map[string]*Entry
	loaders    map[string]Loader
	inFlight   map[string]struct{}
	group      singleflight.Group
	defaultTTL time.Duration
	logger     *zap.Logger

	// now is swapped in tests to control expiry.
	now func() time.Time
}

// NewWhitelistCache creates an empty cache. A zero defaultTTL falls back to
// DefaultTTL.
func NewWhitelistCache(defaultTTL time.Duration, logger *zap.Logger) *WhitelistCache {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WhitelistCache{
		entries:    make(map[string]*Entry),
		loaders:    make(map[string]Loader),
		inFlight:   make(map[string]struct{}),
		defaultTTL: defaultTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// Set stores a value set under the key. A zero ttl uses the cache default.
func (c *WhitelistCache) Set(key string, values []string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &Entry{
		Key:       key,
		Values:    fieldtype.NewValueSet(values...),
		CreatedAt: c.now(),
		TTL:       ttl,
	}
}

// Get returns the cached value set, or nil when the key is absent or the
// entry has expired.
func (c *WhitelistCache) Get(key string) fieldtype.ValueSet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok || entry.expired(c.now()) {
		return nil
	}
	return entry.Values
}

// Has reports whether a non-expired entry exists for the key.
func (c *WhitelistCache) Has(key string) bool {
	return c.Get(key) != nil
}

// Remove deletes the entry for the key.
func (c *WhitelistCache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear drops all entries. Loaders stay registered.
func (c *WhitelistCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Entry)
}

// ClearExpired purges expired entries and returns how many were removed.
func (c *WhitelistCache) ClearExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if entry.expired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// RegisterLoader registers the async loader for a key, replacing any
// previous one.
func (c *WhitelistCache) RegisterLoader(key string, loader Loader) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaders[key] = loader
}

// GetOrLoad returns the cached value set when present and fresh; otherwise
// it invokes the registered loader exactly once, caches the result, and
// hands it to every concurrent waiter. It fails with ErrNoLoader when the
// key has neither a cached value nor a loader.
func (c *WhitelistCache) GetOrLoad(ctx context.Context, key string) (fieldtype.ValueSet, error) {
	if values := c.Get(key); values != nil {
		return values, nil
	}

	c.mu.RLock()
	loader, ok := c.loaders[key]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w for key %q", ErrNoLoader, key)
	}

	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		// A waiter that queued behind a completed load finds the fresh entry.
		if values := c.Get(key); values != nil {
			return values, nil
		}
		c.markInFlight(key, true)
		defer c.markInFlight(key, false)

		values, err := loader(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading whitelist %q: %w", key, err)
		}
		c.Set(key, values, 0)
		return c.Get(key), nil
	})
	if err != nil {
		return nil, err
	}
	return result.(fieldtype.ValueSet), nil
}

// Refresh forces a reload of the key through its registered loader,
// replacing the cached entry on success.
func (c *WhitelistCache) Refresh(ctx context.Context, key string) (fieldtype.ValueSet, error) {
	c.mu.RLock()
	loader, ok := c.loaders[key]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w for key %q", ErrNoLoader, key)
	}

	result, err, _ := c.group.Do("refresh:"+key, func() (interface{}, error) {
		c.markInFlight(key, true)
		defer c.markInFlight(key, false)

		values, err := loader(ctx)
		if err != nil {
			return nil, fmt.Errorf("refreshing whitelist %q: %w", key, err)
		}
		c.Set(key, values, 0)
		return c.Get(key), nil
	})
	if err != nil {
		return nil, err
	}
	return result.(fieldtype.ValueSet), nil
}

// Contains tests membership of a value under a key. The second return is
// false when the key is absent or expired, so callers can distinguish "not
// a member" from "no whitelist available".
func (c *WhitelistCache) Contains(key, value string) (member bool, ok bool) {
	values := c.Get(key)
	if values == nil {
		return false, false
	}
	return values.Contains(value), true
}

// GetStats returns counts of valid and expired entries, registered loaders
// and in-flight loads.
func (c *WhitelistCache) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := c.now()
	stats := Stats{
		Loaders:       len(c.loaders),
		InFlightLoads: len(c.inFlight),
	}
	for _, entry := range c.entries {
		if entry.expired(now) {
			stats.ExpiredEntries++
		} else {
			stats.ValidEntries++
		}
	}
	return stats
}

func (c *WhitelistCache) markInFlight(key string, loading bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if loading {
		c.inFlight[key] = struct{}{}
	} else {
		delete(c.inFlight, key)
	}
}
