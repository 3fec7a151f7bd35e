package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T, ttl time.Duration) (*URLCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cli := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cli.Close() })
	return NewURLCacheWithClient(cli, ttl), mr
}

func TestURLCacheRoundtrip(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	if _, ok := c.Get(ctx, "uploads/abc"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Set(ctx, "uploads/abc", "https://blobs.test/get/uploads/abc")
	url, ok := c.Get(ctx, "uploads/abc")
	if !ok || url != "https://blobs.test/get/uploads/abc" {
		t.Fatalf("Get = (%q, %v)", url, ok)
	}

	// Distinct refs do not collide.
	if _, ok := c.Get(ctx, "uploads/def"); ok {
		t.Fatal("unexpected hit for different ref")
	}
}

func TestURLCacheExpiry(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	c.Set(ctx, "uploads/abc", "https://blobs.test/get/uploads/abc")
	mr.FastForward(2 * time.Minute)

	if _, ok := c.Get(ctx, "uploads/abc"); ok {
		t.Fatal("expected miss after ttl elapsed")
	}
}

func TestURLCacheDegradesOnBackendLoss(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()
	mr.Close()

	// A dead backend is a miss, never an error surfaced to callers.
	if _, ok := c.Get(ctx, "uploads/abc"); ok {
		t.Fatal("expected miss when backend is down")
	}
	c.Set(ctx, "uploads/abc", "url") // must not panic

	if err := c.Ping(ctx); err == nil {
		t.Fatal("expected ping failure when backend is down")
	}
}
