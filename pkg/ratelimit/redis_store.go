package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisTokenBucketScript performs the entire token-bucket check-and-update
// atomically so concurrent requests from the same actor across replicas
// never race past each other between a read and a write.
//
// KEYS[1] = bucket key ("ratelimit:<actor>")
// ARGV[1] = refill rate (tokens per second)
// ARGV[2] = capacity (burst size)
// ARGV[3] = current unix timestamp, microsecond precision as a float
var redisTokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local state = redis.call("HMGET", key, "tokens", "last_refill")
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if not tokens or not last_refill then
    tokens = capacity
    last_refill = now
end

local elapsed = now - last_refill
if elapsed > 0 then
    tokens = math.min(capacity, tokens + elapsed * rate)
    last_refill = now
end

local allowed = 0
if tokens >= 1 then
    tokens = tokens - 1
    allowed = 1
end

redis.call("HMSET", key, "tokens", tokens, "last_refill", last_refill)
redis.call("EXPIRE", key, 60)

return allowed
`)

// RedisStore implements Store using a shared Redis instance, making the
// rate limit consistent across every firewall replica.
type RedisStore struct {
	client *redis.Client
	rps    float64
	burst  int
}

// NewRedisStore connects to addr and enforces rps/burst per actor.
func NewRedisStore(addr string, rps float64, burst int) *RedisStore {
	client := redis.NewClient(&redis.Options{Addr: addr})
	return &RedisStore{client: client, rps: rps, burst: burst}
}

// Allow runs the token-bucket script for actorID.
func (s *RedisStore) Allow(ctx context.Context, actorID string) (bool, error) {
	key := fmt.Sprintf("ratelimit:%s", actorID)
	now := float64(time.Now().UnixMicro()) / 1e6

	res, err := redisTokenBucketScript.Run(ctx, s.client, []string{key}, s.rps, s.burst, now).Result()
	if err != nil {
		return false, fmt.Errorf("ratelimit: redis script error: %w", err)
	}

	allowed, ok := res.(int64)
	if !ok {
		return false, fmt.Errorf("ratelimit: unexpected script result type %T", res)
	}
	return allowed == 1, nil
}
