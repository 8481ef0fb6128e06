package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisLocalStore keeps preview values in one Redis hash, so any server
// instance can resume a preview session.
type RedisLocalStore struct {
	client *redis.Client
	key    string
}

// NewRedisLocalStore stores values in the hash at key.
func NewRedisLocalStore(client *redis.Client, key string) *RedisLocalStore {
	return &RedisLocalStore{client: client, key: key}
}

func (s *RedisLocalStore) Get(field string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), localTimeout)
	defer cancel()

	v, err := s.client.HGet(ctx, s.key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis hget %s: %w", field, err)
	}
	return v, nil
}

func (s *RedisLocalStore) Set(field, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), localTimeout)
	defer cancel()

	if err := s.client.HSet(ctx, s.key, field, value).Err(); err != nil {
		return fmt.Errorf("redis hset %s: %w", field, err)
	}
	return nil
}
