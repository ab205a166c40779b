package runid

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis-based implementation of Store.
// Suitable for deployments where many workers share working directories on
// network storage and the record should live outside the filesystem.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore creates a new Redis-based run id store
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "trackflow:"
	}

	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix + "runid:",
	}, nil
}

// recordKey returns the Redis key for a working directory
func (s *RedisStore) recordKey(dir string) string {
	return s.keyPrefix + filepath.Clean(dir)
}

// Read returns the stored token for dir
func (s *RedisStore) Read(ctx context.Context, dir string) (string, bool, error) {
	val, err := s.client.Get(ctx, s.recordKey(dir)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read run id record: %w", err)
	}

	token := strings.TrimSpace(val)
	if token == "" {
		return "", false, nil
	}
	return token, true, nil
}

// Write stores the token for dir. Records carry no TTL: the identifier must
// outlive any individual process.
func (s *RedisStore) Write(ctx context.Context, dir string, token string) error {
	if err := s.client.Set(ctx, s.recordKey(dir), token, 0).Err(); err != nil {
		return fmt.Errorf("write run id record: %w", err)
	}
	return nil
}

// Delete removes the record for dir
func (s *RedisStore) Delete(ctx context.Context, dir string) error {
	if err := s.client.Del(ctx, s.recordKey(dir)).Err(); err != nil {
		return fmt.Errorf("delete run id record: %w", err)
	}
	return nil
}

// Ping checks if the store is healthy
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the store
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ensure RedisStore implements Store
var _ Store = (*RedisStore)(nil)
