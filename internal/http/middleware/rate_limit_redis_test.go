package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisLimiterForTest(t *testing.T) (*RedisFixedWindowLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisFixedWindowLimiter(client, "test:rl"), mr
}

func TestRedisFixedWindowLimiterCountsAndDenies(t *testing.T) {
	limiter, _ := newRedisLimiterForTest(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _, err := limiter.Allow(ctx, "account:1", 3, time.Minute)
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", i+1, err)
		}
		if !allowed {
			t.Fatalf("call %d should be within the limit", i+1)
		}
	}

	allowed, retryAfter, err := limiter.Allow(ctx, "account:1", 3, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Fatal("fourth call should be denied")
	}
	if retryAfter <= 0 || retryAfter > time.Minute {
		t.Fatalf("unexpected retry-after %v", retryAfter)
	}
}

func TestRedisFixedWindowLimiterIsolatesKeys(t *testing.T) {
	limiter, _ := newRedisLimiterForTest(t)
	ctx := context.Background()

	if allowed, _, _ := limiter.Allow(ctx, "account:1", 1, time.Minute); !allowed {
		t.Fatal("first key should be allowed")
	}
	if allowed, _, _ := limiter.Allow(ctx, "account:2", 1, time.Minute); !allowed {
		t.Fatal("second key should have its own window")
	}
	if allowed, _, _ := limiter.Allow(ctx, "account:1", 1, time.Minute); allowed {
		t.Fatal("first key should now be limited")
	}
}

func TestRedisFixedWindowLimiterWindowExpiry(t *testing.T) {
	limiter, mr := newRedisLimiterForTest(t)
	ctx := context.Background()

	if allowed, _, _ := limiter.Allow(ctx, "ip:10.0.0.1", 1, time.Second); !allowed {
		t.Fatal("first call should be allowed")
	}
	if allowed, _, _ := limiter.Allow(ctx, "ip:10.0.0.1", 1, time.Second); allowed {
		t.Fatal("second call should be limited")
	}

	mr.FastForward(2 * time.Second)

	if allowed, _, _ := limiter.Allow(ctx, "ip:10.0.0.1", 1, time.Second); !allowed {
		t.Fatal("window should reset once the key expires")
	}
}

func TestRedisFixedWindowLimiterNilClient(t *testing.T) {
	limiter := NewRedisFixedWindowLimiter(nil, "")
	allowed, _, err := limiter.Allow(context.Background(), "k", 1, time.Minute)
	if err == nil {
		t.Fatal("expected error for nil client")
	}
	if allowed {
		t.Fatal("nil client must never allow")
	}
}
