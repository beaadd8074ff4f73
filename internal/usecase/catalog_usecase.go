package usecase

import (
	"context"
	"net/http"
	"strings"

	"pos/internal/domain/model"
	repo "pos/internal/repository"
)

// CatalogUsecase はmerchant単位の商品検索
type CatalogUsecase struct {
	productRepo repo.ProductRepository
}

// DI
func NewCatalogUsecase(productRepo repo.ProductRepository) *CatalogUsecase {
	return &CatalogUsecase{productRepo: productRepo}
}

// バーコードまたは商品IDで1件
func (u *CatalogUsecase) FindByCode(ctx context.Context, merchantID, code string) (model.Product, error) {
	if strings.TrimSpace(merchantID) == "" {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "merchant id required")
	}
	code = strings.TrimSpace(code)
	if code == "" || len(code) > 64 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid code")
	}

	p, err := u.productRepo.FindByCode(ctx, merchantID, code)
	if err == repo.ErrNotFound {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return model.Product{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return p, nil
}

// qが空なら全件
func (u *CatalogUsecase) Search(ctx context.Context, merchantID, q string) ([]model.Product, error) {
	if strings.TrimSpace(merchantID) == "" {
		return []model.Product{}, NewHTTPError(http.StatusBadRequest, "merchant id required")
	}
	if len(q) > 100 {
		return []model.Product{}, NewHTTPError(http.StatusBadRequest, "q too long")
	}

	items, err := u.productRepo.Search(ctx, merchantID, strings.TrimSpace(q))
	if err != nil {
		return []model.Product{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return items, nil
}

func (u *CatalogUsecase) ListCategories(ctx context.Context, merchantID string) ([]string, error) {
	if strings.TrimSpace(merchantID) == "" {
		return []string{}, NewHTTPError(http.StatusBadRequest, "merchant id required")
	}

	categories, err := u.productRepo.ListCategories(ctx, merchantID)
	if err != nil {
		return []string{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return categories, nil
}

func (u *CatalogUsecase) ListByCategory(ctx context.Context, merchantID, category string) ([]model.Product, error) {
	if strings.TrimSpace(merchantID) == "" {
		return []model.Product{}, NewHTTPError(http.StatusBadRequest, "merchant id required")
	}
	category = strings.TrimSpace(category)
	if category == "" || len(category) > 100 {
		return []model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid category")
	}

	items, err := u.productRepo.ListByCategory(ctx, merchantID, category)
	if err != nil {
		return []model.Product{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return items, nil
}
