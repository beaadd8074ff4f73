package repository

import (
	"context"

	"pos/internal/domain/model"

	"gorm.io/gorm"
)

type SaleGormRepository struct {
	db *gorm.DB
}

func NewSaleGormRepository(db *gorm.DB) *SaleGormRepository {
	return &SaleGormRepository{db: db}
}

// 売上ヘッダと明細をまとめて保存
func (r *SaleGormRepository) Create(ctx context.Context, sale model.Sale) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lines := sale.Lines
		sale.Lines = nil
		if err := tx.Create(&sale).Error; err != nil {
			return err
		}
		if len(lines) == 0 {
			return nil
		}
		for i := range lines {
			lines[i].SaleID = sale.ID
		}
		return tx.Create(&lines).Error
	})
}

func (r *SaleGormRepository) ListByMerchant(ctx context.Context, merchantID string, limit int) ([]model.Sale, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	sales := []model.Sale{}
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Where("merchant_id = ?", merchantID).
		Order("created_at desc").
		Limit(limit).
		Find(&sales).Error
	if err != nil {
		return []model.Sale{}, err
	}
	return sales, nil
}
