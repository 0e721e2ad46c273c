package redis

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"chronos/internal/model"
	"chronos/pkg/logger"

	"github.com/go-redis/redis/v8"
)

const (
	// DefaultSnapshotTTL is used when no TTL is configured
	DefaultSnapshotTTL = 5 * time.Minute

	snapshotKey = "chronos:snapshot"
)

// SnapshotCache caches the last committed dataset.
// Redis is the primary store when configured so that every instance serves
// the same snapshot; the in-memory copy is the fallback.
type SnapshotCache struct {
	mu        sync.RWMutex
	local     *model.Dataset
	expiresAt time.Time

	redisClient *redis.Client
	ttl         time.Duration
	now         func() time.Time
}

// NewSnapshotCache creates an in-memory snapshot cache. ttl <= 0 uses DefaultSnapshotTTL.
func NewSnapshotCache(ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &SnapshotCache{ttl: ttl, now: time.Now}
}

// WithRedis makes Redis the primary snapshot storage.
func (c *SnapshotCache) WithRedis(client *redis.Client) *SnapshotCache {
	c.redisClient = client
	return c
}

// Get returns a private copy of the cached dataset. With Redis configured a
// missing key is a miss; the memory copy is only consulted when Redis fails.
func (c *SnapshotCache) Get(ctx context.Context) (*model.Dataset, bool) {
	if c.redisClient != nil {
		ds, err := c.getFromRedis(ctx)
		if err == nil {
			return ds, ds != nil
		}
		logger.WarnCtx(ctx, "snapshot cache read from redis failed, using local copy: %v", err)
	}
	return c.getFromMemory()
}

// getFromRedis returns (nil, nil) on a miss.
func (c *SnapshotCache) getFromRedis(ctx context.Context) (*model.Dataset, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	data, err := c.redisClient.Get(ctx, snapshotKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var ds model.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		_ = c.redisClient.Del(ctx, snapshotKey).Err()
		return nil, nil
	}
	return &ds, nil
}

func (c *SnapshotCache) getFromMemory() (*model.Dataset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.local == nil || c.now().After(c.expiresAt) {
		return nil, false
	}
	return c.local.Clone(), true
}

// Set stores a copy of ds in Redis (if configured) and in memory.
func (c *SnapshotCache) Set(ctx context.Context, ds *model.Dataset) {
	if ds == nil {
		c.Invalidate(ctx)
		return
	}

	if c.redisClient != nil {
		c.setInRedis(ctx, ds)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.local = ds.Clone()
	c.expiresAt = c.now().Add(c.ttl)
}

func (c *SnapshotCache) setInRedis(ctx context.Context, ds *model.Dataset) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	data, err := json.Marshal(ds)
	if err != nil {
		return
	}
	if err := c.redisClient.Set(ctx, snapshotKey, data, c.ttl).Err(); err != nil {
		logger.WarnCtx(ctx, "snapshot cache write to redis failed: %v", err)
	}
}

// Invalidate drops the snapshot everywhere.
func (c *SnapshotCache) Invalidate(ctx context.Context) {
	if c.redisClient != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := c.redisClient.Del(ctx, snapshotKey).Err(); err != nil {
			logger.WarnCtx(ctx, "snapshot cache invalidate in redis failed: %v", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.local = nil
	c.expiresAt = time.Time{}
}

// HasRedis returns true if Redis is configured for this cache.
func (c *SnapshotCache) HasRedis() bool {
	return c.redisClient != nil
}
