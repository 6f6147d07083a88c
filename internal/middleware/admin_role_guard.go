package middleware

import (
	"net/http"

	"market/internal/domain/model"

	"github.com/labstack/echo/v4"
)

// ADMINだけ通す。TokenVersionGuardの後ろに置くとDBのroleで判定される
func AdminRoleGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(CtxUserRoleKey).(string)
			switch role {
			case "":
				return unauthorizedJSON(c)
			case string(model.RoleAdmin):
				return next(c)
			default:
				return c.JSON(http.StatusForbidden, errorJSON("admin only"))
			}
		}
	}
}
