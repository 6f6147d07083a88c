package server

import (
	"net/http"

	"market/internal/config"
	"market/internal/handler"
	"market/internal/middleware"
	"market/internal/repository"

	"github.com/labstack/echo/v4"
)

// Handlers はルーティングに載せるhandlerの束
type Handlers struct {
	Auth         *handler.AuthHandler
	Product      *handler.ProductHandler
	Cart         *handler.CartHandler
	Order        *handler.OrderHandler
	Stripe       *handler.StripeHandler
	AdminOrder   *handler.AdminOrderHandler
	AdminProduct *handler.AdminProductHandler
	AdminUser    *handler.AdminUserHandler
}

// 全ルートは /api 配下
func RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository, h Handlers) {
	api := e.Group("/api")
	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	h.Auth.RegisterRoutes(api, cfg, userRepo)
	h.Product.RegisterRoutes(api)
	h.Cart.RegisterRoutes(api, cfg, userRepo)
	h.Order.RegisterRoutes(api, cfg, userRepo)
	h.Stripe.RegisterRoutes(api, cfg, userRepo)

	// /admin 配下は全部「JWT必須 + token_version一致 + ADMIN限定」
	admin := api.Group(
		"/admin",
		middleware.AuthJWT(cfg),
		middleware.TokenVersionGuard(userRepo),
		middleware.AdminRoleGuard(),
	)
	h.AdminOrder.RegisterRoutes(admin)
	h.AdminProduct.RegisterRoutes(admin)
	h.AdminUser.RegisterRoutes(admin)
}
