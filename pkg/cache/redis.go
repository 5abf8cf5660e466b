package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("error parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Ping the client to ensure connection is established
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("error pinging redis: %w", err)
	}

	return client, nil
}

// WeeklySummaryCache is a short-TTL read-through cache for rendered weekly
// totals. Cache failures are logged and treated as misses so Redis being
// down never breaks a summary request.
type WeeklySummaryCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewWeeklySummaryCache(rdb *redis.Client, ttl time.Duration) *WeeklySummaryCache {
	return &WeeklySummaryCache{rdb: rdb, ttl: ttl}
}

func summaryKey(employeeID int64) string {
	return fmt.Sprintf("weekly-summary:%d", employeeID)
}

func (c *WeeklySummaryCache) Get(ctx context.Context, employeeID int64) (string, bool) {
	val, err := c.rdb.Get(ctx, summaryKey(employeeID)).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("Summary cache read failed")
		return "", false
	}
	return val, true
}

func (c *WeeklySummaryCache) Set(ctx context.Context, employeeID int64, total string) {
	if err := c.rdb.Set(ctx, summaryKey(employeeID), total, c.ttl).Err(); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("Summary cache write failed")
	}
}

func (c *WeeklySummaryCache) Invalidate(ctx context.Context, employeeID int64) {
	if err := c.rdb.Del(ctx, summaryKey(employeeID)).Err(); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("Summary cache invalidation failed")
	}
}
