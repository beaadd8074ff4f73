package memory

import (
	"context"
	"sync"

	repo "pos/internal/repository"
)

// SnapshotStore はプロセス内だけの保存先（ローカル実行とテスト用）
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{data: map[string][]byte{}}
}

func (s *SnapshotStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, repo.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *SnapshotStore) Set(ctx context.Context, key string, data []byte) error {
	v := make([]byte, len(data))
	copy(v, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = v
	return nil
}

func (s *SnapshotStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}
