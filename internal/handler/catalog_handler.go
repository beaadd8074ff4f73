package handler

import (
	"net/http"

	"pos/internal/usecase"

	"github.com/labstack/echo/v4"
)

// merchant単位の商品API
type CatalogHandler struct {
	uc *usecase.CatalogUsecase
}

// DI
func NewCatalogHandler(uc *usecase.CatalogUsecase) *CatalogHandler {
	return &CatalogHandler{uc: uc}
}

// gは /merchants/:merchant_id でMerchantAccessGuard済み
func (h *CatalogHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/products", h.search)
	g.GET("/products/:code", h.findByCode)
	g.GET("/categories", h.categories)
	g.GET("/categories/:category/products", h.byCategory)
}

func (h *CatalogHandler) findByCode(c echo.Context) error {
	p, err := h.uc.FindByCode(c.Request().Context(), c.Param("merchant_id"), c.Param("code"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHandler) search(c echo.Context) error {
	items, err := h.uc.Search(c.Request().Context(), c.Param("merchant_id"), c.QueryParam("q"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *CatalogHandler) categories(c echo.Context) error {
	items, err := h.uc.ListCategories(c.Request().Context(), c.Param("merchant_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *CatalogHandler) byCategory(c echo.Context) error {
	items, err := h.uc.ListByCategory(c.Request().Context(), c.Param("merchant_id"), c.Param("category"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}
