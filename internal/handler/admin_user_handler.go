package handler

import (
	"net/http"

	"market/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminUserHandler struct {
	uc *usecase.AuthUsecase
}

func NewAdminUserHandler(uc *usecase.AuthUsecase) *AdminUserHandler {
	return &AdminUserHandler{uc: uc}
}

// adminはガード済みのグループ
func (h *AdminUserHandler) RegisterRoutes(admin *echo.Group) {
	admin.POST("/users/:id/force-logout", h.forceLogout)
}

// 対象ユーザーのtoken_versionを上げる。発行済みトークンは次のリクエストから401
func (h *AdminUserHandler) forceLogout(c echo.Context) error {
	userID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid user_id")
	}

	res, err := h.uc.ForceLogout(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, res)
}
