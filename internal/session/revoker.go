package session

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const revokedKeyPrefix = "villa:revoked:"

// Revoker keeps a denylist of token ids.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type redisCommands interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisRevoker stores revoked token ids as expiring Redis keys.
type RedisRevoker struct {
	client redisCommands
}

// NewRedisRevoker wraps a go-redis client.
func NewRedisRevoker(client *redis.Client) *RedisRevoker {
	return &RedisRevoker{client: client}
}

// Revoke records tokenID until ttl elapses.
func (revoker *RedisRevoker) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	return revoker.client.Set(ctx, revokedKeyPrefix+tokenID, "1", ttl).Err()
}

// IsRevoked reports whether tokenID is on the denylist.
func (revoker *RedisRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	count, err := revoker.client.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
