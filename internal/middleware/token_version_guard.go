package middleware

import (
	"errors"
	"net/http"

	"market/internal/repository"

	"github.com/labstack/echo/v4"
)

// AuthJWTの後ろに置く。JWTのtvがDBのtoken_versionと違えば401（logout/force-logout済み）
func TokenVersionGuard(userRepo repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, _ := c.Get(CtxUserIDKey).(int64)
			tv, hasTV := c.Get(CtxTokenVersionKey).(int)
			if userID <= 0 || !hasTV || tv < 0 {
				return unauthorizedJSON(c)
			}

			user, err := userRepo.FindByID(c.Request().Context(), userID)
			switch {
			case errors.Is(err, repository.ErrNotFound), err == nil && user == nil:
				return unauthorizedJSON(c)
			case err != nil:
				return c.JSON(http.StatusInternalServerError, errorJSON("internal error"))
			case user.TokenVersion != tv:
				return unauthorizedJSON(c)
			}

			//roleはDB側を正とする（ADMIN_EMAILSの変更など）
			c.Set(CtxUserRoleKey, string(user.Role))

			return next(c)
		}
	}
}
