package router // package router defines how HTTP routes are registered for the API

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/tapin-reveal/internal/handler"
	"github.com/iliyamo/tapin-reveal/internal/metrics"
	"github.com/iliyamo/tapin-reveal/internal/middleware"
)

// New builds the Echo instance with the server-wide middleware chain and
// error rendering.  Routes are added by the Register* functions.
func New(logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.HTTPErrorHandler
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(logger))
	return e
}

// RegisterRoutes registers the unauthenticated operational endpoints.  The
// metrics endpoint is omitted when m is nil.
func RegisterRoutes(e *echo.Echo, m *metrics.Metrics) {
	e.GET("/healthz", handler.Health)
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}
}
