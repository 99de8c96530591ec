package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"coachapp/internal/config"
	"coachapp/internal/models"
	"coachapp/internal/observability"
	contextutils "coachapp/internal/utils"

	goredis "github.com/redis/go-redis/v9"
)

// RoadmapCache is a read-through cache of stored roadmaps. Failures degrade to
// a miss; the database stays authoritative.
type RoadmapCache interface {
	Get(ctx context.Context, userID, year, week int) (*models.Roadmap, bool)
	Set(ctx context.Context, roadmap *models.Roadmap)
	Invalidate(ctx context.Context, userID int)
}

// NoopRoadmapCache never stores anything
type NoopRoadmapCache struct{}

// Get always misses
func (NoopRoadmapCache) Get(context.Context, int, int, int) (*models.Roadmap, bool) { return nil, false }

// Set does nothing
func (NoopRoadmapCache) Set(context.Context, *models.Roadmap) {}

// Invalidate does nothing
func (NoopRoadmapCache) Invalidate(context.Context, int) {}

// RedisRoadmapCache keeps one hash per user with a field per ISO week
type RedisRoadmapCache struct {
	rdb    goredis.Cmdable
	ttl    time.Duration
	logger *observability.Logger
}

// NewRoadmapCache returns a Redis cache when one is configured and a no-op cache otherwise
func NewRoadmapCache(cfg config.CacheConfig, logger *observability.Logger) (RoadmapCache, error) {
	if !cfg.Enabled() {
		return NoopRoadmapCache{}, nil
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.RedisAddr,
		DB:          cfg.RedisDB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, contextutils.WrapErrorf(contextutils.ErrServiceUnavailable, "redis ping %s: %v", cfg.RedisAddr, err)
	}

	logger.Info(ctx, "Roadmap cache enabled", map[string]interface{}{"redis_addr": cfg.RedisAddr, "ttl": cfg.TTL.String()})
	return newRedisRoadmapCache(rdb, cfg.TTL, logger), nil
}

func newRedisRoadmapCache(rdb goredis.Cmdable, ttl time.Duration, logger *observability.Logger) *RedisRoadmapCache {
	return &RedisRoadmapCache{rdb: rdb, ttl: ttl, logger: logger}
}

// Close releases the Redis connection pool
func (c *RedisRoadmapCache) Close() error {
	if closer, ok := c.rdb.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func roadmapCacheKey(userID int) string {
	return fmt.Sprintf("coach:roadmaps:%d", userID)
}

func roadmapCacheField(year, week int) string {
	return fmt.Sprintf("%d-W%02d", year, week)
}

// Get returns the cached roadmap for the week if present
func (c *RedisRoadmapCache) Get(ctx context.Context, userID, year, week int) (*models.Roadmap, bool) {
	raw, err := c.rdb.HGet(ctx, roadmapCacheKey(userID), roadmapCacheField(year, week)).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.logger.Warn(ctx, "Roadmap cache read failed", map[string]interface{}{"user_id": userID, "error": err.Error()})
		}
		return nil, false
	}
	var roadmap models.Roadmap
	if err := json.Unmarshal(raw, &roadmap); err != nil {
		c.logger.Warn(ctx, "Discarding undecodable cached roadmap", map[string]interface{}{"user_id": userID, "error": err.Error()})
		return nil, false
	}
	return &roadmap, true
}

// Set stores the roadmap under its user and week
func (c *RedisRoadmapCache) Set(ctx context.Context, roadmap *models.Roadmap) {
	if roadmap == nil {
		return
	}
	stored := *roadmap
	stored.Existing = false
	raw, err := json.Marshal(&stored)
	if err != nil {
		c.logger.Warn(ctx, "Failed to encode roadmap for cache", map[string]interface{}{"roadmap_id": roadmap.ID.String(), "error": err.Error()})
		return
	}
	key := roadmapCacheKey(roadmap.UserID)
	_, err = c.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, key, roadmapCacheField(roadmap.Year, roadmap.WeekNumber), raw)
		pipe.Expire(ctx, key, c.ttl)
		return nil
	})
	if err != nil {
		c.logger.Warn(ctx, "Roadmap cache write failed", map[string]interface{}{"user_id": roadmap.UserID, "error": err.Error()})
	}
}

// Invalidate drops every cached week for the user
func (c *RedisRoadmapCache) Invalidate(ctx context.Context, userID int) {
	if err := c.rdb.Del(ctx, roadmapCacheKey(userID)).Err(); err != nil {
		c.logger.Warn(ctx, "Roadmap cache invalidation failed", map[string]interface{}{"user_id": userID, "error": err.Error()})
	}
}
