package repository

import (
	"context"
	"errors"

	"pos/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

// 商品マスタの検索だけを約束。常にmerchant単位。
type ProductRepository interface {
	// codeは商品IDまたはバーコード
	FindByCode(ctx context.Context, merchantID, code string) (model.Product, error)
	ListCategories(ctx context.Context, merchantID string) ([]string, error)
	ListByCategory(ctx context.Context, merchantID, category string) ([]model.Product, error)
	// 名前かカテゴリの部分一致（大文字小文字は区別しない）
	Search(ctx context.Context, merchantID, q string) ([]model.Product, error)

	Upsert(ctx context.Context, p model.Product) error
}
