package handler

import (
	"net/http"

	"market/internal/usecase"

	"github.com/labstack/echo/v4"
)

// InventoryUpdateRequest は在庫更新の入力です。
type InventoryUpdateRequest struct {
	Stock  *int64 `json:"stock"`
	Reason string `json:"reason"`
}

// /admin/inventory。商品マスタの編集はしない
type AdminProductHandler struct {
	uc *usecase.ProductUsecase
}

// DI
func NewAdminProductHandler(uc *usecase.ProductUsecase) *AdminProductHandler {
	return &AdminProductHandler{uc: uc}
}

// adminはガード済みのグループ
func (h *AdminProductHandler) RegisterRoutes(admin *echo.Group) {
	admin.PUT("/inventory/:product_id", h.updateInventory)
}

func (h *AdminProductHandler) updateInventory(c echo.Context) error {
	productID, ok := paramID(c, "product_id")
	if !ok {
		return badRequest(c, "invalid product_id")
	}

	var req InventoryUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Stock == nil {
		return badRequest(c, "stock is required")
	}

	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.AdminUpdateInventory(
		c.Request().Context(),
		adminID,
		productID,
		*req.Stock,
		req.Reason,
	)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}
