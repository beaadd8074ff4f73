package repository

import "context"

// SnapshotStore はキーとバイト列の置き換え保存。
// Setは1回の置き換えで、途中まで書かれた状態は残らない。
type SnapshotStore interface {
	// 無ければErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}
