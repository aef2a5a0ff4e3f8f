package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"skywatch/internal/config"
	"skywatch/pkg/logger"
)

// Redis caches batch results in a shared Redis instance so multiple
// engine replicas can reuse each other's window computations.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *logger.Logger
}

// NewRedis creates a Redis-backed cache.
func NewRedis(cfg config.CacheConfig, log *logger.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	return &Redis{
		client: client,
		prefix: cfg.KeyPrefix,
		ttl:    cfg.TTL(),
		logger: log.Named("cache"),
	}
}

// Get returns the cached value for key. Backend failures are returned
// as errors so the caller can fall through to recomputation.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Set stores a value under key for the configured TTL.
func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.prefix+key, value, r.ttl).Err(); err != nil {
		r.logger.Warn("failed to cache result", logger.String("key", key), logger.Error(err))
		return err
	}
	return nil
}

// Close releases the underlying client connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
