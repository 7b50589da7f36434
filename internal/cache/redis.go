package cache

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const shardKeyPrefix = "betlab:shard:complete:"

// Config holds Redis configuration
type Config struct {
	Host     string
	Port     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisCache marks shard files that have ingested completely so periodic
// runs can skip them. Losing the cache is harmless: the store rejects
// duplicates either way, a re-read just costs extra round trips.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(cfg Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 7 * 24 * time.Hour
	}

	log.Info().Str("addr", client.Options().Addr).Msg("Redis cache connected")
	return &RedisCache{client: client, ttl: ttl}, nil
}

// IsComplete reports whether the shard was previously marked fully
// ingested. Cache errors read as "not complete" so the shard is processed
// normally.
func (c *RedisCache) IsComplete(ctx context.Context, shard string) bool {
	n, err := c.client.Exists(ctx, shardKey(shard)).Result()
	if err != nil {
		log.Debug().Err(err).Str("shard", shard).Msg("Shard marker lookup failed")
		return false
	}
	return n > 0
}

// MarkComplete records that the shard ingested with no failures
func (c *RedisCache) MarkComplete(ctx context.Context, shard string) {
	if err := c.client.Set(ctx, shardKey(shard), time.Now().UTC().Format(time.RFC3339), c.ttl).Err(); err != nil {
		log.Debug().Err(err).Str("shard", shard).Msg("Failed to set shard marker")
	}
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func shardKey(shard string) string {
	return shardKeyPrefix + filepath.Base(shard)
}
