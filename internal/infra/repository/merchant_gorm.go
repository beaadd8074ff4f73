package repository

import (
	"context"
	"errors"

	"pos/internal/domain/model"
	repo "pos/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MerchantGormRepository struct {
	db *gorm.DB
}

// DI
func NewMerchantGormRepository(db *gorm.DB) *MerchantGormRepository {
	return &MerchantGormRepository{db: db}
}

func (r *MerchantGormRepository) FindByID(ctx context.Context, merchantID string) (model.Merchant, error) {
	var m model.Merchant
	err := r.db.WithContext(ctx).Where("id = ?", merchantID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Merchant{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Merchant{}, err
	}
	return m, nil
}

// employee_merchant_accessをjoinして取得
func (r *MerchantGormRepository) ListAccessible(ctx context.Context, employeeID string) ([]model.Merchant, error) {
	merchants := []model.Merchant{}
	err := r.db.WithContext(ctx).
		Joins("JOIN employee_merchant_access a ON a.merchant_id = merchants.id").
		Where("a.employee_id = ?", employeeID).
		Order("merchants.id asc").
		Find(&merchants).Error
	if err != nil {
		return []model.Merchant{}, err
	}
	return merchants, nil
}

func (r *MerchantGormRepository) CanAccess(ctx context.Context, employeeID, merchantID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.EmployeeMerchantAccess{}).
		Where("employee_id = ? AND merchant_id = ?", employeeID, merchantID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *MerchantGormRepository) Upsert(ctx context.Context, m model.Merchant) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "type", "logo_url", "color", "description", "updated_at"}),
	}).Create(&m).Error
}

// 既に付与済みなら何もしない
func (r *MerchantGormRepository) GrantAccess(ctx context.Context, employeeID, merchantID string) error {
	a := model.EmployeeMerchantAccess{EmployeeID: employeeID, MerchantID: merchantID}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&a).Error
}
