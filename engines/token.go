package engines

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type token struct {
	value   string
	created time.Time
}

// TokenCache keeps short lived upstream tokens (search session ids, vqd
// values) for the lifetime of an engine instance. A token is regenerated when
// it is missing or older than the TTL. Concurrent misses for the same key
// share a single fetch.
type TokenCache struct {
	ttl   time.Duration
	now   func() time.Time
	mu    sync.Mutex
	items map[string]token
	group singleflight.Group
}

func NewTokenCache(ttl time.Duration) *TokenCache {
	return &TokenCache{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]token),
	}
}

func (c *TokenCache) lookup(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.items[key]
	if !ok || c.now().Sub(t.created) >= c.ttl {
		return "", false
	}
	return t.value, true
}

func (c *TokenCache) store(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, t := range c.items {
		if now.Sub(t.created) >= c.ttl {
			delete(c.items, k)
		}
	}
	c.items[key] = token{value: value, created: now}
}

// Get returns the cached token for key or calls fetch to create one.
func (c *TokenCache) Get(ctx context.Context, key string, fetch func(context.Context) (string, error)) (string, error) {
	if v, ok := c.lookup(key); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		value, err := fetch(ctx)
		if err != nil {
			return "", err
		}
		c.store(key, value)
		return value, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *TokenCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *TokenCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
