package apiclient

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

// InMemoryCache is a sharded, process-local Cache. Entries optionally
// expire after a fixed TTL; there is no capacity bound.
type InMemoryCache struct {
	shards    []*cacheShard
	numShards int
	ttl       time.Duration
}

type cacheShard struct {
	mu    sync.RWMutex
	store map[string]cacheEntry
}

type cacheEntry struct {
	value     Payload
	expiresAt time.Time
}

// NewInMemoryCache creates a cache whose entries live for ttl. A ttl <= 0
// keeps entries until they are overwritten or cleared.
func NewInMemoryCache(ttl time.Duration) *InMemoryCache {
	numShards := 16
	shards := make([]*cacheShard, numShards)
	for i := range shards {
		shards[i] = &cacheShard{
			store: make(map[string]cacheEntry),
		}
	}
	return &InMemoryCache{
		shards:    shards,
		numShards: numShards,
		ttl:       ttl,
	}
}

func (c *InMemoryCache) getShard(key string) *cacheShard {
	hash := fnv.New32a()
	hash.Write([]byte(key))
	return c.shards[hash.Sum32()%uint32(c.numShards)]
}

func (c *InMemoryCache) Get(_ context.Context, key string) (Payload, bool) {
	shard := c.getShard(key)
	shard.mu.RLock()
	entry, exists := shard.store[key]
	shard.mu.RUnlock()
	if !exists {
		return nil, false
	}

	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		shard.mu.Lock()
		if cur, ok := shard.store[key]; ok && cur.expiresAt.Equal(entry.expiresAt) {
			delete(shard.store, key)
		}
		shard.mu.Unlock()
		return nil, false
	}

	return entry.value, true
}

func (c *InMemoryCache) Set(_ context.Context, key string, value Payload) {
	entry := cacheEntry{value: value}
	if c.ttl > 0 {
		entry.expiresAt = time.Now().Add(c.ttl)
	}

	shard := c.getShard(key)
	shard.mu.Lock()
	shard.store[key] = entry
	shard.mu.Unlock()
}

// Delete removes a single entry.
func (c *InMemoryCache) Delete(key string) {
	shard := c.getShard(key)
	shard.mu.Lock()
	delete(shard.store, key)
	shard.mu.Unlock()
}

// Clear drops every entry.
func (c *InMemoryCache) Clear() {
	for _, shard := range c.shards {
		shard.mu.Lock()
		shard.store = make(map[string]cacheEntry)
		shard.mu.Unlock()
	}
}

// Len returns the number of stored entries, expired or not.
func (c *InMemoryCache) Len() int {
	total := 0
	for _, shard := range c.shards {
		shard.mu.RLock()
		total += len(shard.store)
		shard.mu.RUnlock()
	}
	return total
}
