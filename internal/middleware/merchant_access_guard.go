package middleware

import (
	"net/http"
	"strings"

	repo "pos/internal/repository"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

//パスの:merchant_idに従業員がアクセスできるか確認します。
//AuthJWTの後ろで使う

func MerchantAccessGuard(merchants repo.MerchantRepository, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := ActorFromContext(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			merchantID := strings.TrimSpace(c.Param("merchant_id"))
			if merchantID == "" {
				return c.JSON(http.StatusBadRequest, errorJSON("merchant_id required"))
			}

			allowed, err := merchants.CanAccess(c.Request().Context(), actor.EmployeeID, merchantID)
			if err != nil {
				logger.Error("merchant access check failed",
					zap.String("employee_id", actor.EmployeeID),
					zap.String("merchant_id", merchantID),
					zap.Error(err),
				)
				return c.JSON(http.StatusInternalServerError, errorJSON("db error"))
			}
			if !allowed {
				return c.JSON(http.StatusForbidden, errorJSON("merchant not accessible"))
			}

			return next(c)
		}
	}
}
