package handler

import (
	"net/http"

	"market/internal/config"
	"market/internal/middleware"
	"market/internal/repository"
	"market/internal/usecase"

	"github.com/labstack/echo/v4"
)

const headerIdempotencyKey = "X-Idempotency-Key"

type OrderHandler struct {
	orders   *usecase.OrderUsecase
	checkout *usecase.CheckoutUsecase
}

func NewOrderHandler(orders *usecase.OrderUsecase, checkout *usecase.CheckoutUsecase) *OrderHandler {
	return &OrderHandler{orders: orders, checkout: checkout}
}

func (h *OrderHandler) RegisterRoutes(api *echo.Group, cfg config.Config, userRepo repository.UserRepository) {
	g := api.Group("/orders")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.TokenVersionGuard(userRepo))

	g.POST("/checkout", h.checkoutDirect)
	g.GET("", h.list)
	g.GET("/:id", h.detail)
}

// カートから即時に注文を確定
func (h *OrderHandler) checkoutDirect(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req usecase.ShippingInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	//二重送信防止キーはヘッダーから受け取る（bodyには入れない）
	idemKey := c.Request().Header.Get(headerIdempotencyKey)

	out, err := h.checkout.PlaceOrderDirect(c.Request().Context(), userID, req, idemKey)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, out)
}

func (h *OrderHandler) list(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	page, ok := queryInt(c, "page", 1)
	if !ok {
		return badRequest(c, "invalid page")
	}
	limit, ok := queryInt(c, "limit", 20)
	if !ok {
		return badRequest(c, "invalid limit")
	}

	out, err := h.orders.ListMyOrders(c.Request().Context(), userID, page, limit)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	orderID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.orders.GetMyOrderDetail(c.Request().Context(), userID, orderID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}
