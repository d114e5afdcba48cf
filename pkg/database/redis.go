package database

import (
	"context"
	"edu_platform_backend/internal/config"
	"edu_platform_backend/pkg/logger"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

func InitRedis(cfg *config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     50,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		return nil, err
	}

	logger.Log.Info("Redis connection established")
	return rdb, nil
}
