package repository

import (
	"context"

	repo "pos/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	merchants repo.MerchantRepository
	products  repo.ProductRepository
	sales     repo.SaleRepository
}

func (r *txReposGorm) Merchants() repo.MerchantRepository { return r.merchants }
func (r *txReposGorm) Products() repo.ProductRepository   { return r.products }
func (r *txReposGorm) Sales() repo.SaleRepository         { return r.sales }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			merchants: NewMerchantGormRepository(tx),
			products:  NewProductGormRepository(tx),
			sales:     NewSaleGormRepository(tx),
		}
		return fn(r)
	})
}
