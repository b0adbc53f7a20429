package middleware // middleware provides shared request processing for handlers

import (
    "errors"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/tapin-reveal/internal/identity"
)

// JWTAuth returns an Echo middleware that verifies the Bearer token with v
// and stores the caller's id and role in the context under "user_id" and
// "role".  A token that fails verification yields 401; a key set that could
// not be fetched yields 502 so clients can tell an outage from a bad token.
func JWTAuth(v identity.Verifier) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
            if raw == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }

            id, err := v.Verify(c.Request().Context(), raw)
            if err != nil {
                var fe *identity.FetchError
                if errors.As(err, &fe) {
                    return c.JSON(http.StatusBadGateway, echo.Map{"error": "auth provider unavailable"})
                }
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }

            c.Set("user_id", id.UserID)
            c.Set("role", id.Role)
            return next(c)
        }
    }
}
