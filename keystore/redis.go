package keystore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix prefixes the Redis keys of a [RedisStore] with an empty Prefix.
const DefaultPrefix = "cirbt:evk:"

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// Prefix is prepended to every Redis key, DefaultPrefix if empty.
	Prefix string
	// TTL is the expiration of stored key sets, zero for none.
	TTL time.Duration
}

// RedisStore implements [Store] using Redis.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a new Redis-backed store and checks the connection.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	return &RedisStore{client: client, prefix: prefix, ttl: cfg.TTL}, nil
}

func (s *RedisStore) redisKey(key Key) string {
	return s.prefix + key.String()
}

func (s *RedisStore) Put(ctx context.Context, key Key, data []byte) error {
	if err := s.client.Set(ctx, s.redisKey(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("put keys: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key Key) ([]byte, error) {
	data, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get keys: %w", err)
	}
	return data, nil
}

func (s *RedisStore) Delete(ctx context.Context, key Key) error {
	n, err := s.client.Del(ctx, s.redisKey(key)).Result()
	if err != nil {
		return fmt.Errorf("delete keys: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) Exists(ctx context.Context, key Key) (bool, error) {
	n, err := s.client.Exists(ctx, s.redisKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("exists keys: %w", err)
	}
	return n == 1, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
