package service

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// TokenBlacklist 注销后的 token（按 jti）在过期前保持失效
type TokenBlacklist interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

const blacklistPrefix = "auth:revoked:"

type RedisTokenBlacklist struct {
	Client *redis.Client
}

func NewRedisTokenBlacklist(client *redis.Client) *RedisTokenBlacklist {
	return &RedisTokenBlacklist{Client: client}
}

func (b *RedisTokenBlacklist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return b.Client.Set(ctx, blacklistPrefix+jti, 1, ttl).Err()
}

func (b *RedisTokenBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := b.Client.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// NoopTokenBlacklist 未启用 Redis 时使用，注销仅由客户端丢弃 token
type NoopTokenBlacklist struct{}

func (NoopTokenBlacklist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	return nil
}

func (NoopTokenBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return false, nil
}
