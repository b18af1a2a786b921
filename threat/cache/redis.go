package cache

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisKeyPrefix namespaces cache records in a shared Redis database
const RedisKeyPrefix = "threatintel:cache:"

// RedisBackend stores entries as plain Redis strings without expiry; freshness
// is decided by the entry timestamp, not by Redis TTLs.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend connects to Redis and verifies the connection
func NewRedisBackend(ctx context.Context, addr, password string, db, poolSize int) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: poolSize,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisBackend{client: client}, nil
}

func (b *RedisBackend) Name() string { return BackendRedis }

func (b *RedisBackend) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := b.client.Get(ctx, RedisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (b *RedisBackend) Write(ctx context.Context, key string, data []byte) error {
	return b.client.Set(ctx, RedisKeyPrefix+key, data, 0).Err()
}

func (b *RedisBackend) keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := b.client.Scan(ctx, 0, RedisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}

func (b *RedisBackend) Count(ctx context.Context) (int, error) {
	keys, err := b.keys(ctx)
	return len(keys), err
}

// Clear deletes only keys under RedisKeyPrefix
func (b *RedisBackend) Clear(ctx context.Context) error {
	keys, err := b.keys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return b.client.Del(ctx, keys...).Err()
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}
