package cache

import (
	"context"
	"errors"
	"time"

	repo "pos/internal/repository"

	"github.com/redis/go-redis/v9"
)

const snapshotKeyPrefix = "pos:snapshot:"

type SnapshotRedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// ttlが0なら期限なし
func NewSnapshotRedisStore(client *redis.Client, ttl time.Duration) *SnapshotRedisStore {
	return &SnapshotRedisStore{client: client, ttl: ttl}
}

func (s *SnapshotRedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, snapshotKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// SETは値を丸ごと置き換える
func (s *SnapshotRedisStore) Set(ctx context.Context, key string, data []byte) error {
	return s.client.Set(ctx, snapshotKeyPrefix+key, data, s.ttl).Err()
}

func (s *SnapshotRedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, snapshotKeyPrefix+key).Err()
}
