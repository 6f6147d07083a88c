package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"market/internal/config"
	"market/internal/middleware"
	"market/internal/repository"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

type Server struct {
	e    *echo.Echo
	addr string
	log  *slog.Logger
}

func New(cfg config.Config, log *slog.Logger, userRepo repository.UserRepository, h Handlers) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{cfg.ClientOrigin},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAuthorization,
			"X-Idempotency-Key",
		},
	}))

	RegisterRoutes(e, cfg, userRepo, h)

	return &Server{e: e, addr: listenAddr(cfg.Port), log: log}
}

func listenAddr(port string) string {
	if port != "" && port[0] == ':' {
		return port
	}
	return ":" + port
}

// Handler はテストでhttptestに渡す用
func (s *Server) Handler() http.Handler {
	return s.e
}

// Start はShutdownされるまでブロックする
func (s *Server) Start() error {
	s.log.Info("http listening", slog.String("addr", s.addr))
	if err := s.e.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.e.Shutdown(ctx)
}
