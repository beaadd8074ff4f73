package server

import (
	"pos/internal/config"
	"pos/internal/handler"
	"pos/internal/middleware"
	repo "pos/internal/repository"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type Handlers struct {
	Health  *handler.HealthHandler
	Session *handler.SessionHandler
	Cart    *handler.CartHandler
	Catalog *handler.CatalogHandler
}

// /health は公開、/pos 以下はJWT必須
func RegisterRoutes(e *echo.Echo, cfg config.Config, merchants repo.MerchantRepository, logger *zap.Logger, h Handlers) {
	h.Health.RegisterRoutes(e)

	pos := e.Group("/pos")
	pos.Use(middleware.AuthJWT(cfg))

	// merchant指定のルートはアクセス権を確認
	scoped := pos.Group("/merchants/:merchant_id")
	scoped.Use(middleware.MerchantAccessGuard(merchants, logger))

	h.Session.RegisterRoutes(pos)
	h.Cart.RegisterRoutes(pos, scoped)
	h.Catalog.RegisterRoutes(scoped)
}
