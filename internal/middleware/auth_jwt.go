package middleware

import (
	"errors"
	"net/http"
	"strings"

	"pos/internal/config"
	"pos/internal/usecase"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	CtxEmployeeIDKey   = "employee_id"   // string
	CtxEmployeeNameKey = "employee_name" // string
)

// bearerAuth用のJWT検証ミドルウェア。
// sub = 従業員ID、name = 表示名
func AuthJWT(cfg config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			//Authorizationヘッダを取得
			authz := c.Request().Header.Get("Authorization")
			if authz == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//Bearer形式か確認してtokenを抜く
			parts := strings.SplitN(authz, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			rawToken := strings.TrimSpace(parts[1])
			if rawToken == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//JWTをパースして検証する
			token, err := jwt.Parse(rawToken, func(t *jwt.Token) (interface{}, error) {
				if t.Method != jwt.SigningMethodHS256 {
					return nil, errors.New("unexpected signing method")
				}
				return []byte(cfg.JWTSecret), nil
			})
			if err != nil || token == nil || !token.Valid {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			employeeID, err := parseString(claims["sub"])
			employeeID = strings.TrimSpace(employeeID)
			if err != nil || employeeID == "" || len(employeeID) > 64 {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			// nameは任意
			name, _ := parseString(claims["name"])

			//contextへ保存
			c.Set(CtxEmployeeIDKey, employeeID)
			c.Set(CtxEmployeeNameKey, strings.TrimSpace(name))

			return next(c)
		}
	}
}

// ActorFromContext はAuthJWTが入れた値から操作者を作る
func ActorFromContext(c echo.Context) (usecase.Actor, bool) {
	id, ok := c.Get(CtxEmployeeIDKey).(string)
	if !ok || id == "" {
		return usecase.Actor{}, false
	}
	name, _ := c.Get(CtxEmployeeNameKey).(string)
	return usecase.Actor{EmployeeID: id, EmployeeName: name}, true
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}

func parseString(v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.New("invalid string")
	}
	return s, nil
}
