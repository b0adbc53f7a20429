package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tapin-reveal/internal/middleware"
)

// requestTimeout bounds the work of a single request.
const requestTimeout = 5 * time.Second

// requestContext derives the bounded context used by every handler.
func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// callerID returns the authenticated user or writes a 401.
func callerID(c echo.Context) (string, bool, error) {
	uid := middleware.UserID(c)
	if uid == "" {
		return "", false, c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return uid, true, nil
}
