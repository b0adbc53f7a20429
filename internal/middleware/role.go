package middleware // middleware provides shared request processing for handlers

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// RoleAuthenticated is the role the auth provider puts on signed-in users.
const RoleAuthenticated = "authenticated"

// RequireRole rejects requests whose "role" (set by JWTAuth) is not one of
// roles with 403.  Anonymous provider tokens carry role "anon" and are
// refused by RequireRole(RoleAuthenticated).
func RequireRole(roles ...string) echo.MiddlewareFunc {
    allowed := make(map[string]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            role, ok := c.Get("role").(string)
            if !ok || !allowed[role] {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            return next(c)
        }
    }
}
