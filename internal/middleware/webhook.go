package middleware

import (
    "crypto/subtle"
    "net/http"

    "github.com/labstack/echo/v4"
)

// WebhookSecretHeader carries the shared secret on server-to-server calls.
const WebhookSecretHeader = "X-Webhook-Secret"

// RequireWebhookSecret guards internal endpoints with a shared secret.  An
// empty secret rejects everything.
func RequireWebhookSecret(secret string) echo.MiddlewareFunc {
    want := []byte(secret)
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            got := []byte(c.Request().Header.Get(WebhookSecretHeader))
            if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
            }
            return next(c)
        }
    }
}
