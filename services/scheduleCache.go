package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "stundenplan:"

// ScheduleCache keeps encoded safe-lookup results in Redis. A zero or nil
// cache is disabled: every Get misses and Set does nothing.
type ScheduleCache struct {
	rdb       *redis.Client
	namespace string
	ttl       time.Duration
	logger    *slog.Logger
}

// StoreNamespace derives a short key namespace from the store a server reads,
// so servers sharing one Redis but different stores never share entries.
func StoreNamespace(driver, dsn string) string {
	sum := sha256.Sum256([]byte(driver + "\x00" + dsn))
	return hex.EncodeToString(sum[:6])
}

// NewScheduleCache connects to addr. An empty addr or a failed ping returns a
// disabled cache instead of an error, so lookups keep working without Redis.
func NewScheduleCache(ctx context.Context, addr, namespace string, ttl time.Duration, logger *slog.Logger) *ScheduleCache {
	if logger == nil {
		logger = slog.Default()
	}
	c := &ScheduleCache{namespace: namespace, ttl: ttl, logger: logger}
	if addr == "" {
		logger.Warn("REDIS_ADDR is not set, schedule caching disabled")
		return c
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		logger.Error("could not connect to redis", "addr", addr, "error", err)
		rdb.Close()
		return c
	}

	logger.Info("connected to redis", "addr", addr)
	c.rdb = rdb
	return c
}

// Key returns the Redis key holding the lookup result for teacher.
func (c *ScheduleCache) Key(teacher string) string {
	if c == nil || c.namespace == "" {
		return cacheKeyPrefix + teacher
	}
	return cacheKeyPrefix + c.namespace + ":" + teacher
}

// Enabled reports whether a Redis client is attached.
func (c *ScheduleCache) Enabled() bool {
	return c != nil && c.rdb != nil
}

// Get returns the cached payload for teacher.
func (c *ScheduleCache) Get(ctx context.Context, teacher string) ([]byte, bool) {
	if !c.Enabled() {
		return nil, false
	}
	b, err := c.rdb.Get(ctx, c.Key(teacher)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("schedule cache read failed", "error", err)
		}
		return nil, false
	}
	return b, true
}

// Set stores payload for teacher. Failures are logged, not returned.
func (c *ScheduleCache) Set(ctx context.Context, teacher string, payload []byte) {
	if !c.Enabled() {
		return
	}
	if err := c.rdb.Set(ctx, c.Key(teacher), payload, c.ttl).Err(); err != nil {
		c.logger.Warn("schedule cache write failed", "error", err)
	}
}

func (c *ScheduleCache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Close()
}
