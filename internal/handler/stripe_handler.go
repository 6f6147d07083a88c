package handler

import (
	"io"
	"net/http"

	"market/internal/config"
	"market/internal/middleware"
	"market/internal/repository"
	"market/internal/usecase"

	"github.com/labstack/echo/v4"
)

// Stripeの署名付きペイロードの上限
const maxWebhookBodyBytes = 65536

// /stripe 配下。決済セッションの作成・確認とwebhook
type StripeHandler struct {
	uc *usecase.CheckoutUsecase
}

func NewStripeHandler(uc *usecase.CheckoutUsecase) *StripeHandler {
	return &StripeHandler{uc: uc}
}

func (h *StripeHandler) RegisterRoutes(api *echo.Group, cfg config.Config, userRepo repository.UserRepository) {
	g := api.Group("/stripe")

	//webhookはStripeから直接来るのでJWTなし（署名で検証）
	g.POST("/webhook", h.webhook)

	authed := g.Group("", middleware.AuthJWT(cfg), middleware.TokenVersionGuard(userRepo))
	authed.POST("/checkout-session", h.createSession)
	authed.POST("/confirm/:sessionId", h.confirm)
}

func (h *StripeHandler) createSession(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req usecase.ShippingInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.CreatePaymentSession(c.Request().Context(), userID, req)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, out)
}

func (h *StripeHandler) confirm(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.ConfirmPaymentSession(c.Request().Context(), userID, c.Param("sessionId"))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

// 署名検証には加工前のbodyが要る
func (h *StripeHandler) webhook(c echo.Context) error {
	req := c.Request()
	body, err := io.ReadAll(http.MaxBytesReader(c.Response(), req.Body, maxWebhookBodyBytes))
	if err != nil {
		return c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "payload too large"})
	}

	if err := h.uc.HandleWebhook(req.Context(), body, req.Header.Get("Stripe-Signature")); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}
