package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"pos/internal/domain/model"
	repo "pos/internal/repository"
	"pos/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCatalogUsecase_FindByCode(t *testing.T) {
	products := new(ProductRepoMock)
	u := usecase.NewCatalogUsecase(products)
	ctx := context.Background()

	products.On("FindByCode", mock.Anything, cafe.ID, "001").Return(americano(), nil)
	products.On("FindByCode", mock.Anything, cafe.ID, "404").Return(model.Product{}, repo.ErrNotFound)
	products.On("FindByCode", mock.Anything, cafe.ID, "err").Return(model.Product{}, errors.New("boom"))

	p, err := u.FindByCode(ctx, cafe.ID, " 001 ")
	require.NoError(t, err)
	assert.Equal(t, "Americano", p.Name)

	_, err = u.FindByCode(ctx, cafe.ID, "404")
	requireHTTPError(t, err, http.StatusNotFound, "product not found")

	_, err = u.FindByCode(ctx, cafe.ID, "err")
	requireHTTPError(t, err, http.StatusInternalServerError, "db error")

	_, err = u.FindByCode(ctx, cafe.ID, "")
	requireHTTPError(t, err, http.StatusBadRequest, "invalid code")

	_, err = u.FindByCode(ctx, "", "001")
	requireHTTPError(t, err, http.StatusBadRequest, "merchant id required")
}

func TestCatalogUsecase_SearchAndCategories(t *testing.T) {
	products := new(ProductRepoMock)
	u := usecase.NewCatalogUsecase(products)
	ctx := context.Background()

	products.On("Search", mock.Anything, cafe.ID, "latte").Return([]model.Product{{ID: "002", Name: "Latte"}}, nil)
	products.On("ListCategories", mock.Anything, cafe.ID).Return([]string{"bakery", "coffee"}, nil)
	products.On("ListByCategory", mock.Anything, cafe.ID, "coffee").Return([]model.Product{americano()}, nil)

	found, err := u.Search(ctx, cafe.ID, "  latte ")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	_, err = u.Search(ctx, cafe.ID, strings.Repeat("q", 101))
	requireHTTPError(t, err, http.StatusBadRequest, "q too long")

	cats, err := u.ListCategories(ctx, cafe.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"bakery", "coffee"}, cats)

	items, err := u.ListByCategory(ctx, cafe.ID, "coffee")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = u.ListByCategory(ctx, cafe.ID, " ")
	requireHTTPError(t, err, http.StatusBadRequest, "invalid category")
}
