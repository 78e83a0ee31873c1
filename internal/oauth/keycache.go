package oauth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyCache holds a fetched key-set document for a bounded time so that not
// every token validation hits the provider's key endpoint. A kid miss forces
// a refetch regardless of cache state.
type KeyCache interface {
	Get(ctx context.Context, url string) ([]byte, bool)
	Set(ctx context.Context, url string, doc []byte)
	// Invalidate drops the cached document, typically after a kid miss.
	Invalidate(ctx context.Context, url string)
}

// RedisKeyCache stores key-set documents under "jwks:<url>" with a TTL.
type RedisKeyCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisKeyCache(client *redis.Client, ttl time.Duration) *RedisKeyCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisKeyCache{client: client, ttl: ttl}
}

func (c *RedisKeyCache) key(url string) string { return "jwks:" + url }

func (c *RedisKeyCache) Get(ctx context.Context, url string) ([]byte, bool) {
	b, err := c.client.Get(ctx, c.key(url)).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

func (c *RedisKeyCache) Set(ctx context.Context, url string, doc []byte) {
	_ = c.client.Set(ctx, c.key(url), doc, c.ttl).Err()
}

func (c *RedisKeyCache) Invalidate(ctx context.Context, url string) {
	_ = c.client.Del(ctx, c.key(url)).Err()
}

// NopKeyCache disables caching; every validation refetches the key set.
// Used when no Redis is configured.
type NopKeyCache struct{}

func (NopKeyCache) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (NopKeyCache) Set(context.Context, string, []byte)        {}
func (NopKeyCache) Invalidate(context.Context, string)         {}
