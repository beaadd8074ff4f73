package repository

import (
	"context"

	"pos/internal/domain/model"
)

type MerchantRepository interface {
	FindByID(ctx context.Context, merchantID string) (model.Merchant, error)
	// 従業員が操作できるmerchant一覧（ID順）
	ListAccessible(ctx context.Context, employeeID string) ([]model.Merchant, error)
	CanAccess(ctx context.Context, employeeID, merchantID string) (bool, error)

	Upsert(ctx context.Context, m model.Merchant) error
	GrantAccess(ctx context.Context, employeeID, merchantID string) error
}
