package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"aforo/internal/config"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps identities in redis with a TTL, so an idle session
// expires instead of pinning a fallback identity forever.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient builds a redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Identity, error) {
	if s.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := s.client.Get(ctx, redisKey(key)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get identity from redis: %w", err)
	}

	var identity Identity
	if err := json.Unmarshal([]byte(val), &identity); err != nil {
		return nil, fmt.Errorf("unmarshal identity: %w", err)
	}
	return &identity, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, identity *Identity) error {
	if s.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("set identity in redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, key string) error {
	if s.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := s.client.Del(ctx, redisKey(key)).Err(); err != nil {
		return fmt.Errorf("delete identity from redis: %w", err)
	}
	return nil
}

func redisKey(key string) string {
	return "session:" + key
}

// Ping verifies the redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}
