package quota

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// reserveScript performs the check-and-increment atomically on the Redis
// side. Returns {accepted, used}. The key's TTL doubles as the inactivity
// sweep: it is refreshed only on accepted turns, so idle sessions expire on
// their own.
var reserveScript = redis.NewScript(`
local used = tonumber(redis.call('GET', KEYS[1]) or '0')
local max = tonumber(ARGV[1])
if used >= max then
  return {0, used}
end
used = redis.call('INCR', KEYS[1])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return {1, used}
`)

const redisKeyPrefix = "guest_quota:"

// RedisTracker backs the guest quota with a shared Redis instance so several
// API replicas agree on the counters.
type RedisTracker struct {
	client *redis.Client
	max    int
	ttl    time.Duration
}

func NewRedisTracker(client *redis.Client, maxChats int, inactivityTTL time.Duration) *RedisTracker {
	if maxChats <= 0 {
		maxChats = DefaultMaxChats
	}
	if inactivityTTL <= 0 {
		inactivityTTL = DefaultInactivityTTL
	}
	return &RedisTracker{client: client, max: maxChats, ttl: inactivityTTL}
}

func (t *RedisTracker) CheckAndReserve(ctx context.Context, sessionID string) (Usage, error) {
	res, err := reserveScript.Run(ctx, t.client, []string{redisKeyPrefix + sessionID}, t.max, t.ttl.Milliseconds()).Result()
	if err != nil {
		return Usage{}, fmt.Errorf("reserving guest quota: %w", err)
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return Usage{}, fmt.Errorf("unexpected reserve script result %v", res)
	}
	accepted, _ := vals[0].(int64)
	used64, _ := vals[1].(int64)
	used := int(used64)

	usage := Usage{Remaining: t.max - used, Used: used, Max: t.max}
	if usage.Remaining < 0 {
		usage.Remaining = 0
	}
	if accepted == 0 {
		return usage, ErrExceeded
	}
	return usage, nil
}

func (t *RedisTracker) Peek(ctx context.Context, sessionID string) (Usage, error) {
	val, err := t.client.Get(ctx, redisKeyPrefix+sessionID).Result()
	if err == redis.Nil {
		return Usage{Remaining: t.max, Used: 0, Max: t.max}, nil
	}
	if err != nil {
		return Usage{}, fmt.Errorf("reading guest quota: %w", err)
	}

	used, err := strconv.Atoi(val)
	if err != nil {
		return Usage{}, fmt.Errorf("corrupt guest quota counter %q: %w", val, err)
	}

	remaining := t.max - used
	if remaining < 0 {
		remaining = 0
	}
	return Usage{Remaining: remaining, Used: used, Max: t.max}, nil
}

// Sweep is a no-op: key TTLs expire idle sessions server-side.
func (t *RedisTracker) Sweep(ctx context.Context) int { return 0 }
