package cachestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/sirupsen/logrus"

	"github.com/ambiyansyah-risyal/apiclient"
)

// MemcacheCommands is the subset of *memcache.Client used by MemcacheCache.
type MemcacheCommands interface {
	Get(key string) (*memcache.Item, error)
	Set(item *memcache.Item) error
}

// MemcacheCache implements apiclient.Cache on memcached. Signatures can be
// longer than memcached allows and contain any byte, so keys are hashed.
type MemcacheCache struct {
	mc     MemcacheCommands
	prefix string
	ttl    time.Duration
	logger logrus.FieldLogger
}

// NewMemcacheCache creates a memcached-backed cache.
func NewMemcacheCache(mc MemcacheCommands, prefix string, ttl time.Duration, logger logrus.FieldLogger) *MemcacheCache {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &MemcacheCache{mc: mc, prefix: prefix, ttl: ttl, logger: logger}
}

func (c *MemcacheCache) key(signature string) string {
	sum := sha256.Sum256([]byte(signature))
	return c.prefix + hex.EncodeToString(sum[:])
}

// Get implements apiclient.Cache. Lookup failures count as misses.
func (c *MemcacheCache) Get(_ context.Context, key string) (apiclient.Payload, bool) {
	item, err := c.mc.Get(c.key(key))
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).Warn("memcache get")
		return nil, false
	}
	var p apiclient.Payload
	if err := json.Unmarshal(item.Value, &p); err != nil || p == nil {
		return nil, false
	}
	return p, true
}

// Set implements apiclient.Cache.
func (c *MemcacheCache) Set(_ context.Context, key string, value apiclient.Payload) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.WithError(err).Warn("memcache encode")
		return
	}
	var exp int32
	if c.ttl > 0 {
		exp = int32(c.ttl / time.Second)
	}
	if err := c.mc.Set(&memcache.Item{Key: c.key(key), Value: data, Expiration: exp}); err != nil {
		c.logger.WithError(err).Warn("memcache set")
	}
}
