package repository

import (
	"context"
	"errors"
	"strings"

	"pos/internal/domain/model"
	repo "pos/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

// 商品IDかバーコードで1件取得。IDの一致を優先する。
func (r *ProductGormRepository) FindByCode(ctx context.Context, merchantID, code string) (model.Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return model.Product{}, repo.ErrNotFound
	}

	var p model.Product
	err := r.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Where("id = ? OR barcode = ?", code, code).
		Order(clause.Expr{SQL: "CASE WHEN id = ? THEN 0 ELSE 1 END", Vars: []interface{}{code}}).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Product{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// カテゴリ一覧（重複なし・名前順）
func (r *ProductGormRepository) ListCategories(ctx context.Context, merchantID string) ([]string, error) {
	categories := []string{}
	err := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("merchant_id = ?", merchantID).
		Distinct("category").
		Order("category asc").
		Pluck("category", &categories).Error
	if err != nil {
		return []string{}, err
	}
	return categories, nil
}

func (r *ProductGormRepository) ListByCategory(ctx context.Context, merchantID, category string) ([]model.Product, error) {
	products := []model.Product{}
	err := r.db.WithContext(ctx).
		Where("merchant_id = ? AND category = ?", merchantID, category).
		Order("id asc").
		Find(&products).Error
	if err != nil {
		return []model.Product{}, err
	}
	return products, nil
}

// 名前かカテゴリの部分一致
func (r *ProductGormRepository) Search(ctx context.Context, merchantID, q string) ([]model.Product, error) {
	products := []model.Product{}
	tx := r.db.WithContext(ctx).Where("merchant_id = ?", merchantID)

	if strings.TrimSpace(q) != "" {
		like := "%" + strings.TrimSpace(q) + "%"
		tx = tx.Where("name ILIKE ? OR category ILIKE ?", like, like)
	}

	if err := tx.Order("id asc").Find(&products).Error; err != nil {
		return []model.Product{}, err
	}
	return products, nil
}

// シード用。同じ(merchant_id, id)なら上書き。
func (r *ProductGormRepository) Upsert(ctx context.Context, p model.Product) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "merchant_id"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"barcode", "name", "price", "category", "image_url", "updated_at"}),
	}).Create(&p).Error
}
