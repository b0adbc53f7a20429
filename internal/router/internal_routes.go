package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tapin-reveal/internal/handler"
	"github.com/iliyamo/tapin-reveal/internal/middleware"
)

// RegisterInternal registers server-to-server endpoints.  They are guarded
// by the shared webhook secret instead of user tokens.
func RegisterInternal(e *echo.Echo, w *handler.WebhookHandler, secret string) {
	guard := middleware.RequireWebhookSecret(secret)
	e.POST("/v1/webhooks/messages", w.Messages, guard)
	e.GET("/v1/internal/blocklist", w.Blocklist, guard)
}
