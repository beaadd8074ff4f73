package repository

import (
	"context"
	"errors"

	"pos/internal/domain/model"
	repo "pos/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SnapshotGormStore struct {
	db *gorm.DB
}

// DI
func NewSnapshotGormStore(db *gorm.DB) *SnapshotGormStore {
	return &SnapshotGormStore{db: db}
}

func (s *SnapshotGormStore) Get(ctx context.Context, key string) ([]byte, error) {
	var snap model.Snapshot
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return snap.Data, nil
}

// 1行のupsertなので途中の状態は見えない
func (s *SnapshotGormStore) Set(ctx context.Context, key string, data []byte) error {
	snap := model.Snapshot{Key: key, Data: data}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&snap).Error
}

func (s *SnapshotGormStore) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("key = ?", key).Delete(&model.Snapshot{}).Error
}
