package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aegisshield/readiness-engine/internal/fieldtype"
)

// SnapshotEntry is the serialized form of one cache entry. Timestamps and
// TTLs are carried in milliseconds so a restore reproduces expiry behavior
// exactly.
type SnapshotEntry struct {
	Values    []string `json:"values"`
	CreatedAt int64    `json:"created_at_ms"`
	TTL       int64    `json:"ttl_ms"`
}

// Snapshot is an in-memory serialization of the cache contents. It is a
// point-in-time contract, not a versioned file format.
type Snapshot map[string]SnapshotEntry

// Snapshot captures every entry, including expired ones, preserving their
// creation timestamps and TTLs.
func (c *WhitelistCache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := make(Snapshot, len(c.entries))
	for key, entry := range c.entries {
		values := entry.Values.Values()
		sort.Strings(values)
		snap[key] = SnapshotEntry{
			Values:    values,
			CreatedAt: entry.CreatedAt.UnixMilli(),
			TTL:       entry.TTL.Milliseconds(),
		}
	}
	return snap
}

// Restore replaces the cache contents with the snapshot, reconstructing
// timestamps and TTLs exactly. Loaders are untouched.
func (c *WhitelistCache) Restore(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Entry, len(snap))
	for key, se := range snap {
		c.entries[key] = &Entry{
			Key:       key,
			Values:    fieldtype.NewValueSet(se.Values...),
			CreatedAt: time.UnixMilli(se.CreatedAt),
			TTL:       time.Duration(se.TTL) * time.Millisecond,
		}
	}
}

// MarshalJSON serializes the snapshot of the current contents.
func (c *WhitelistCache) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Snapshot())
}

// RestoreJSON restores cache contents from a serialized snapshot.
func (c *WhitelistCache) RestoreJSON(data []byte) error {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decoding cache snapshot: %w", err)
	}
	c.Restore(snap)
	return nil
}

// SnapshotStore persists cache snapshots across restarts.
type SnapshotStore interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context) (Snapshot, error)
}

// RedisSnapshotStore keeps the snapshot under a single Redis key.
type RedisSnapshotStore struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

// NewRedisSnapshotStore creates a snapshot store on the given client.
func NewRedisSnapshotStore(client *redis.Client, key string, logger *zap.Logger) *RedisSnapshotStore {
	if key == "" {
		key = "readiness:whitelist-snapshot"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisSnapshotStore{client: client, key: key, logger: logger}
}

// Save writes the snapshot. Entry-level TTLs are inside the payload, so the
// Redis key itself does not expire.
func (s *RedisSnapshotStore) Save(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding cache snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("persisting cache snapshot: %w", err)
	}
	s.logger.Debug("Cache snapshot persisted", zap.String("key", s.key), zap.Int("entries", len(snap)))
	return nil
}

// Load reads the snapshot; a missing key yields an empty snapshot.
func (s *RedisSnapshotStore) Load(ctx context.Context) (Snapshot, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding cache snapshot: %w", err)
	}
	return snap, nil
}
