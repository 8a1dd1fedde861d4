// Package cache 提供 Redis 缓存操作的封装
// 处理 JWT 黑名单和每日金句缓存这类需要快速访问、允许丢失的数据
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"echo-companion-server/internal/config"
)

// RedisCache 封装 Redis 客户端，提供业务相关的缓存操作
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache 创建 RedisCache 实例
func NewRedisCache(cfg *config.Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// Close 关闭 Redis 连接
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// ==================== JWT 黑名单 ====================
// 用户登出后，Token 的哈希进入黑名单直到自然过期

// BlacklistToken 将 Token 哈希加入黑名单
// ttl 应取 Token 的剩余有效期，过期后 Key 自动清除
func (c *RedisCache) BlacklistToken(ctx context.Context, tokenHash string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // Token 已经过期，无需拉黑
	}
	return c.client.Set(ctx, "blacklist:"+tokenHash, 1, ttl).Err()
}

// IsTokenBlacklisted 检查 Token 哈希是否在黑名单中
func (c *RedisCache) IsTokenBlacklisted(ctx context.Context, tokenHash string) bool {
	exists, err := c.client.Exists(ctx, "blacklist:"+tokenHash).Result()
	if err != nil {
		// Redis 故障时放行而不是拒绝所有请求
		return false
	}
	return exists > 0
}

// ==================== 每日金句 ====================
// 每个用户每天只生成一次金句，生成结果按 (用户, 日期) 缓存

// quoteKey 金句缓存的 Key，date 格式 "2006-01-02"
func quoteKey(userID int64, date string) string {
	return fmt.Sprintf("quote:%d:%s", userID, date)
}

// GetDailyQuote 读取用户某天已生成的金句
// 缓存未命中返回 ("", nil)
func (c *RedisCache) GetDailyQuote(ctx context.Context, userID int64, date string) (string, error) {
	quote, err := c.client.Get(ctx, quoteKey(userID, date)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return quote, err
}

// SetDailyQuote 缓存用户某天的金句，48 小时后自动过期
func (c *RedisCache) SetDailyQuote(ctx context.Context, userID int64, date, quote string) error {
	return c.client.Set(ctx, quoteKey(userID, date), quote, 48*time.Hour).Err()
}
