package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "ratelimit:"

// KEYS[1] counter key; ARGV[1] window in ms; ARGV[2] max.
// Returns {allowed, count, pttl}.
var hitScript = redis.NewScript(`
local count = tonumber(redis.call('GET', KEYS[1]) or '0')
local ttl = redis.call('PTTL', KEYS[1])
if count == 0 or ttl <= 0 then
  redis.call('SET', KEYS[1], 1, 'PX', ARGV[1])
  return {1, 1, tonumber(ARGV[1])}
end
if count >= tonumber(ARGV[2]) then
  return {0, count, ttl}
end
count = redis.call('INCR', KEYS[1])
return {1, count, ttl}
`)

// RedisStore shares windows across replicas. The script runs atomically on the server.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, prefix: redisKeyPrefix}
}

func (s *RedisStore) Hit(ctx context.Context, key string, window time.Duration, max int, now time.Time) (Decision, error) {
	res, err := hitScript.Run(ctx, s.client, []string{s.prefix + key}, window.Milliseconds(), max).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("run hit script: %w", err)
	}

	values, ok := res.([]interface{})
	if !ok || len(values) != 3 {
		return Decision{}, fmt.Errorf("unexpected hit script reply: %v", res)
	}
	allowed, _ := values[0].(int64)
	count, _ := values[1].(int64)
	ttl, _ := values[2].(int64)

	remaining := max - int(count)
	if remaining < 0 || allowed == 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   allowed == 1,
		Limit:     max,
		Remaining: remaining,
		ResetAt:   now.Add(time.Duration(ttl) * time.Millisecond),
	}, nil
}
