package cache

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// URLCache caches presigned download URLs in redis. The TTL must stay below
// the presign expiry so cached URLs are always still valid when served.
type URLCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewURLCache(addr, password string, db int, ttl time.Duration) (*URLCache, error) {
	cli := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &URLCache{client: cli, ttl: ttl}, nil
}

// NewURLCacheWithClient wires an existing client, used by tests.
func NewURLCacheWithClient(cli *redis.Client, ttl time.Duration) *URLCache {
	return &URLCache{client: cli, ttl: ttl}
}

func (c *URLCache) Get(ctx context.Context, ref string) (string, bool) {
	v, err := c.client.Get(ctx, key(ref)).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		// Cache trouble degrades to a re-presign, never to a failure.
		log.Printf("url cache get %s: %v", ref, err)
		return "", false
	}
	return v, true
}

func (c *URLCache) Set(ctx context.Context, ref, url string) {
	if err := c.client.Set(ctx, key(ref), url, c.ttl).Err(); err != nil {
		log.Printf("url cache set %s: %v", ref, err)
	}
}

// Ping is used by the health endpoint
func (c *URLCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *URLCache) Close() error { return c.client.Close() }

func key(ref string) string { return "docurl:" + ref }
