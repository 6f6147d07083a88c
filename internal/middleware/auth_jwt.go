package middleware

import (
	"net/http"
	"strings"

	"market/internal/config"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	CtxUserIDKey       = "user_id"       // int64
	CtxUserRoleKey     = "user_role"     // string
	CtxTokenVersionKey = "token_version" // int
)

// アクセストークンのclaims。発行側はusecase.AuthUsecase
type accessClaims struct {
	UserID int64  `json:"sub"`
	Role   string `json:"role"`
	TV     *int   `json:"tv"`
	jwt.RegisteredClaims
}

func (c *accessClaims) usable() bool {
	return c.UserID > 0 && c.Role != "" && c.TV != nil && *c.TV >= 0
}

// Bearerトークン（HS256）を検証してuser_id/role/token_versionをcontextに入れる。
func AuthJWT(cfg config.Config) echo.MiddlewareFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	key := func(*jwt.Token) (interface{}, error) { return []byte(cfg.JWTSecret), nil }

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return unauthorizedJSON(c)
			}

			claims := &accessClaims{}
			token, err := parser.ParseWithClaims(raw, claims, key)
			if err != nil || !token.Valid || !claims.usable() {
				return unauthorizedJSON(c)
			}

			c.Set(CtxUserIDKey, claims.UserID)
			c.Set(CtxUserRoleKey, claims.Role)
			c.Set(CtxTokenVersionKey, *claims.TV)

			return next(c)
		}
	}
}

// "Bearer <token>"。スキームの大文字小文字は問わない
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}

func unauthorizedJSON(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
}
