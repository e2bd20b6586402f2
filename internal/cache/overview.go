// internal/cache/overview.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/gurkanbulca/kanboard/internal/models"
)

// Stats counts cache traffic.
type Stats struct {
	Hits          uint64 `json:"hits"`
	Misses        uint64 `json:"misses"`
	Sets          uint64 `json:"sets"`
	Invalidations uint64 `json:"invalidations"`
	Errors        uint64 `json:"errors"`
}

// OverviewCache stores the overview list of each workspace under a
// versioned key. Invalidation bumps the workspace version, so a fill that
// read the store before the bump lands under a key no reader asks for.
type OverviewCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	stats  Stats
}

// NewOverviewCache wraps client. Keys are namespaced with prefix and
// overview entries expire after ttl.
func NewOverviewCache(client *redis.Client, prefix string, ttl time.Duration) *OverviewCache {
	return &OverviewCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *OverviewCache) versionKey(workspaceID uuid.UUID) string {
	return c.prefix + "workspace:" + workspaceID.String() + ":version"
}

func (c *OverviewCache) key(workspaceID uuid.UUID, version int64) string {
	return c.prefix + "workspace:" + workspaceID.String() + ":overviews:" + strconv.FormatInt(version, 10)
}

func (c *OverviewCache) version(ctx context.Context, workspaceID uuid.UUID) (int64, error) {
	v, err := c.client.Get(ctx, c.versionKey(workspaceID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// GetOverviews returns the cached overviews, the workspace version they
// were looked up under, and whether the entry was present. On a miss the
// caller fills the entry by passing the version to SetOverviews.
func (c *OverviewCache) GetOverviews(ctx context.Context, workspaceID uuid.UUID) ([]models.ProjectOverview, int64, bool, error) {
	version, err := c.version(ctx, workspaceID)
	if err != nil {
		atomic.AddUint64(&c.stats.Errors, 1)
		return nil, 0, false, fmt.Errorf("cache version: %w", err)
	}
	data, err := c.client.Get(ctx, c.key(workspaceID, version)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			atomic.AddUint64(&c.stats.Misses, 1)
			return nil, version, false, nil
		}
		atomic.AddUint64(&c.stats.Errors, 1)
		return nil, 0, false, fmt.Errorf("cache get: %w", err)
	}

	var overviews []models.ProjectOverview
	if err := json.Unmarshal(data, &overviews); err != nil {
		atomic.AddUint64(&c.stats.Errors, 1)
		return nil, 0, false, fmt.Errorf("cache unmarshal: %w", err)
	}
	atomic.AddUint64(&c.stats.Hits, 1)
	return overviews, version, true, nil
}

// SetOverviews stores the overviews of a workspace under version.
func (c *OverviewCache) SetOverviews(ctx context.Context, workspaceID uuid.UUID, version int64, overviews []models.ProjectOverview) error {
	if overviews == nil {
		overviews = []models.ProjectOverview{}
	}
	data, err := json.Marshal(overviews)
	if err != nil {
		atomic.AddUint64(&c.stats.Errors, 1)
		return fmt.Errorf("cache marshal: %w", err)
	}
	if err := c.client.Set(ctx, c.key(workspaceID, version), data, c.ttl).Err(); err != nil {
		atomic.AddUint64(&c.stats.Errors, 1)
		return fmt.Errorf("cache set: %w", err)
	}
	atomic.AddUint64(&c.stats.Sets, 1)
	return nil
}

// InvalidateWorkspace bumps the workspace version and drops the entry of
// the previous one.
func (c *OverviewCache) InvalidateWorkspace(ctx context.Context, workspaceID uuid.UUID) error {
	next, err := c.client.Incr(ctx, c.versionKey(workspaceID)).Result()
	if err != nil {
		atomic.AddUint64(&c.stats.Errors, 1)
		return fmt.Errorf("cache invalidate: %w", err)
	}
	if err := c.client.Del(ctx, c.key(workspaceID, next-1)).Err(); err != nil {
		atomic.AddUint64(&c.stats.Errors, 1)
		return fmt.Errorf("cache delete: %w", err)
	}
	atomic.AddUint64(&c.stats.Invalidations, 1)
	return nil
}

// Flush removes every overview entry under the cache prefix. Version
// counters are kept so a version is never reused.
func (c *OverviewCache) Flush(ctx context.Context) (int, error) {
	return c.deleteMatching(ctx, c.prefix+"workspace:*:overviews:*")
}

func (c *OverviewCache) deleteMatching(ctx context.Context, pattern string) (int, error) {
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return deleted, fmt.Errorf("cache scan: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return deleted, fmt.Errorf("cache delete: %w", err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

// Stats returns a snapshot of the counters.
func (c *OverviewCache) Stats() Stats {
	return Stats{
		Hits:          atomic.LoadUint64(&c.stats.Hits),
		Misses:        atomic.LoadUint64(&c.stats.Misses),
		Sets:          atomic.LoadUint64(&c.stats.Sets),
		Invalidations: atomic.LoadUint64(&c.stats.Invalidations),
		Errors:        atomic.LoadUint64(&c.stats.Errors),
	}
}

// Ping checks the Redis connection.
func (c *OverviewCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (c *OverviewCache) Close() error {
	return c.client.Close()
}
