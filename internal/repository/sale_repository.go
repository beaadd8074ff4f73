package repository

import (
	"context"

	"pos/internal/domain/model"
)

type SaleRepository interface {
	// 明細ごと1トランザクションで保存
	Create(ctx context.Context, sale model.Sale) error
	// 新しい順
	ListByMerchant(ctx context.Context, merchantID string, limit int) ([]model.Sale, error)
}
