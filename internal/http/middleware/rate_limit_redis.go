package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrWithWindow bumps the counter and stamps the window TTL on first use,
// returning both the new count and the remaining TTL in one round trip.
var incrWithWindow = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`)

// RedisFixedWindowLimiter shares one fixed window per key across all API
// replicas.
type RedisFixedWindowLimiter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisFixedWindowLimiter(client redis.UniversalClient, prefix string) *RedisFixedWindowLimiter {
	if prefix == "" {
		prefix = "taskory:rl"
	}
	return &RedisFixedWindowLimiter{client: client, prefix: prefix}
}

// Allow reports whether key is still under limit for the current window and
// how long a rejected caller should wait before retrying.
func (l *RedisFixedWindowLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	if l.client == nil {
		return false, window, fmt.Errorf("redis client is nil")
	}
	if key == "" {
		key = "unknown"
	}
	windowMS := window.Milliseconds()
	if windowMS <= 0 {
		windowMS = 1000
	}

	raw, err := incrWithWindow.Run(ctx, l.client, []string{l.prefix + ":" + key}, windowMS).Result()
	if err != nil {
		return false, window, err
	}
	count, ttlMS, err := decodeWindowReply(raw)
	if err != nil {
		return false, window, err
	}

	if ttlMS <= 0 {
		ttlMS = windowMS
	}
	return count <= int64(limit), time.Duration(ttlMS) * time.Millisecond, nil
}

func decodeWindowReply(raw any) (count, ttlMS int64, err error) {
	values, ok := raw.([]any)
	if !ok || len(values) != 2 {
		return 0, 0, fmt.Errorf("unexpected redis script reply: %T", raw)
	}
	if count, err = redisInt64(values[0]); err != nil {
		return 0, 0, err
	}
	if ttlMS, err = redisInt64(values[1]); err != nil {
		return 0, 0, err
	}
	return count, ttlMS, nil
}

func redisInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case uint64:
		return int64(n), nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("unexpected redis reply element %T", v)
	}
}
