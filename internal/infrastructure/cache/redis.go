package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/akozyrev/transcript-analyzer/pkg/config"
)

// RedisStore backs the export cache with Redis. All operations are
// best-effort: a Redis error degrades to a cache miss and a warning.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg *config.Config, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client, logger: logger}, nil
}

func (rs *RedisStore) Get(ctx context.Context, key string) (string, bool) {
	value, err := rs.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		rs.logger.Warn("redis get failed", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return value, true
}

func (rs *RedisStore) Set(ctx context.Context, key, value string, expiration time.Duration) {
	if err := rs.client.Set(ctx, key, value, expiration).Err(); err != nil {
		rs.logger.Warn("redis set failed", zap.String("key", key), zap.Error(err))
	}
}

func (rs *RedisStore) Delete(ctx context.Context, key string) {
	if err := rs.client.Del(ctx, key).Err(); err != nil {
		rs.logger.Warn("redis delete failed", zap.String("key", key), zap.Error(err))
	}
}

// Close releases the underlying connection pool.
func (rs *RedisStore) Close() error {
	return rs.client.Close()
}
