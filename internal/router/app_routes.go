package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tapin-reveal/internal/handler"
	"github.com/iliyamo/tapin-reveal/internal/identity"
	"github.com/iliyamo/tapin-reveal/internal/middleware"
)

// AppHandlers groups the handlers behind bearer authentication.
type AppHandlers struct {
	Presence *handler.PresenceHandler
	Reveal   *handler.RevealHandler
	Cycle    *handler.CycleHandler
	Push     *handler.PushHandler
}

// RegisterApp registers the mobile app endpoints.  Every route requires a
// verified token with the authenticated role.  limit is applied after
// authentication so buckets are per user; cache wraps only the media lookup,
// whose key includes the caller.
func RegisterApp(e *echo.Echo, h AppHandlers, v identity.Verifier, limit, cache echo.MiddlewareFunc) {
	auth := []echo.MiddlewareFunc{
		middleware.JWTAuth(v),
		middleware.RequireRole(middleware.RoleAuthenticated),
		limit,
	}

	v1 := e.Group("/v1", auth...)
	v1.POST("/presence/heartbeat", h.Presence.Heartbeat)
	v1.POST("/presence/nearby", h.Presence.Nearby)
	v1.GET("/cycle/today", h.Cycle.Today)
	v1.POST("/push/register", h.Push.Register)

	v2 := e.Group("/v2/reveal", auth...)
	v2.POST("/decision", h.Reveal.Decision)
	v2.GET("/media", h.Reveal.Media, cache)
}
