package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// KVStore keeps player values as plain Redis strings under quiz:player:{playerID}:{key}.
type KVStore struct {
	client *redis.Client
}

func NewKVStore(client *redis.Client) *KVStore {
	return &KVStore{client: client}
}

func (s *KVStore) Get(ctx context.Context, playerID, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.key(playerID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

func (s *KVStore) Set(ctx context.Context, playerID, key, value string) error {
	if err := s.client.Set(ctx, s.key(playerID, key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *KVStore) key(playerID, key string) string {
	return "quiz:player:" + playerID + ":" + key
}
