package cachestore

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambiyansyah-risyal/apiclient"
)

// fakeMemcache is an in-memory MemcacheCommands.
type fakeMemcache struct {
	mu    sync.Mutex
	items map[string]*memcache.Item
	err   error
}

func newFakeMemcache() *fakeMemcache {
	return &fakeMemcache{items: map[string]*memcache.Item{}}
}

func (f *fakeMemcache) Get(key string) (*memcache.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	item, ok := f.items[key]
	if !ok {
		return nil, memcache.ErrCacheMiss
	}
	return item, nil
}

func (f *fakeMemcache) Set(item *memcache.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.items[item.Key] = item
	return nil
}

func TestMemcacheCacheRoundTrip(t *testing.T) {
	mc := newFakeMemcache()
	cache := NewMemcacheCache(mc, "apicache:", 90*time.Second, nil)
	ctx := context.Background()

	signature := `https://api.example.com/posts{"page":1,"token":"t"}`

	_, ok := cache.Get(ctx, signature)
	assert.False(t, ok)

	cache.Set(ctx, signature, apiclient.Payload{"posts": []any{}})

	got, ok := cache.Get(ctx, signature)
	require.True(t, ok)
	assert.Equal(t, apiclient.Payload{"posts": []any{}}, got)

	require.Len(t, mc.items, 1)
	for key, item := range mc.items {
		assert.True(t, strings.HasPrefix(key, "apicache:"))
		assert.Len(t, key, len("apicache:")+64)
		assert.NotContains(t, key, " ")
		assert.Equal(t, int32(90), item.Expiration)
	}
}

func TestMemcacheCacheDistinctSignatures(t *testing.T) {
	mc := newFakeMemcache()
	cache := NewMemcacheCache(mc, "", 0, nil)
	ctx := context.Background()

	cache.Set(ctx, "a", apiclient.Payload{"v": "a"})
	cache.Set(ctx, "b", apiclient.Payload{"v": "b"})

	a, _ := cache.Get(ctx, "a")
	b, _ := cache.Get(ctx, "b")
	assert.Equal(t, "a", a["v"])
	assert.Equal(t, "b", b["v"])
	for _, item := range mc.items {
		assert.Equal(t, int32(0), item.Expiration)
	}
}

func TestMemcacheCacheFailuresAreMisses(t *testing.T) {
	mc := newFakeMemcache()
	mc.err = errors.New("no servers configured or available")
	logger, hook := logtest.NewNullLogger()
	cache := NewMemcacheCache(mc, "p", time.Minute, logger)
	ctx := context.Background()

	cache.Set(ctx, "k", apiclient.Payload{"a": 1})
	_, ok := cache.Get(ctx, "k")

	assert.False(t, ok)
	assert.Len(t, hook.AllEntries(), 2)
}

func TestMemcacheCacheServesClient(t *testing.T) {
	calls := 0
	doer := apiclient.DoerFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"posts":["a"]}`)),
			Header:     http.Header{},
		}, nil
	})
	client := apiclient.New("https://api.example.com", nopTokens{},
		apiclient.WithHTTPClient(doer),
		apiclient.WithCache(NewMemcacheCache(newFakeMemcache(), "", time.Minute, nil)),
	)

	for i := 0; i < 2; i++ {
		resp, err := client.Get(context.Background(), "posts", nil, true)
		require.NoError(t, err)
		assert.Equal(t, []any{"a"}, resp["posts"])
	}
	assert.Equal(t, 1, calls)
}

type nopTokens struct{}

func (nopTokens) Token() string   { return "" }
func (nopTokens) SetToken(string) {}
