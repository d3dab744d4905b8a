package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/account-monitor/internal/config"
	"github.com/redis/go-redis/v9"
)

// RedisBlobStore keeps the blob under a single Redis key
type RedisBlobStore struct {
	client *redis.Client
	key    string
}

// NewRedisClient creates a new Redis connection
func NewRedisClient(cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.MaxConnections,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 10 * time.Second,
		PoolTimeout:  4 * time.Second,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// NewRedisBlobStore wraps an existing client
func NewRedisBlobStore(client *redis.Client, key string) *RedisBlobStore {
	return &RedisBlobStore{client: client, key: key}
}

// Get reads the key
func (r *RedisBlobStore) Get(ctx context.Context) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to read redis key %s: %w", r.key, err)
	}
	return data, nil
}

// Put overwrites the key without expiry
func (r *RedisBlobStore) Put(ctx context.Context, data []byte) error {
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write redis key %s: %w", r.key, err)
	}
	return nil
}

// Close closes the Redis connection
func (r *RedisBlobStore) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}
