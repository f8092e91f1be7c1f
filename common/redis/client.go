package redis

import (
	"context"
	"fmt"
	"time"

	"doctor-portal/common/config"

	"github.com/go-redis/redis/v8"
)

// NewRedisClient 创建Redis客户端
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Connect 创建客户端并 Ping，失败时关闭
func Connect(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := NewRedisClient(cfg)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}
