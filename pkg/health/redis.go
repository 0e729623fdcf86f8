package health

import (
	"context"

	"github.com/go-redis/redis/v8"
)

// RedisChecker is registered only when the shared rate-limit store is Redis.
type RedisChecker struct {
	client redis.UniversalClient
}

func NewRedisChecker(client redis.UniversalClient) *RedisChecker {
	return &RedisChecker{client: client}
}

func (c *RedisChecker) Name() string {
	return "redis"
}

func (c *RedisChecker) Check(ctx context.Context) Result {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return Result{Status: StatusDown, Message: err.Error()}
	}
	return Result{Status: StatusUp}
}
