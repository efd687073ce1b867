// Package cachestore provides shared apiclient.Cache collaborators backed by
// Redis and memcached. Payloads are stored as JSON, so every Get decodes a
// fresh value.
package cachestore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/ambiyansyah-risyal/apiclient"
)

// RedisCommands is the subset of redis.Cmdable used by RedisCache.
type RedisCommands interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisCache implements apiclient.Cache on Redis.
type RedisCache struct {
	r      RedisCommands
	prefix string
	ttl    time.Duration
	logger logrus.FieldLogger
}

// NewRedisCache creates a Redis-backed cache. Keys are namespaced with
// prefix when it is non-empty; ttl <= 0 stores without expiry.
func NewRedisCache(r RedisCommands, prefix string, ttl time.Duration, logger logrus.FieldLogger) *RedisCache {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RedisCache{r: r, prefix: prefix, ttl: ttl, logger: logger}
}

func (c *RedisCache) namespaced(key string) string {
	if c.prefix == "" {
		return key
	}
	return c.prefix + ":" + key
}

// Get implements apiclient.Cache. Lookup failures count as misses.
func (c *RedisCache) Get(ctx context.Context, key string) (apiclient.Payload, bool) {
	val, err := c.r.Get(ctx, c.namespaced(key)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).Warn("redis cache get")
		return nil, false
	}
	var p apiclient.Payload
	if err := json.Unmarshal(val, &p); err != nil || p == nil {
		return nil, false
	}
	return p, true
}

// Set implements apiclient.Cache.
func (c *RedisCache) Set(ctx context.Context, key string, value apiclient.Payload) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.WithError(err).Warn("redis cache encode")
		return
	}
	ttl := c.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := c.r.Set(ctx, c.namespaced(key), data, ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("redis cache set")
	}
}
