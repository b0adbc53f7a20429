package middleware

// identity.go holds the context accessors shared by the middleware and the
// handlers.  JWTAuth is the only writer of these keys.

import "github.com/labstack/echo/v4"

// UserID returns the authenticated user's id, or "" when the request was
// not authenticated.
func UserID(c echo.Context) string {
    if s, ok := c.Get("user_id").(string); ok {
        return s
    }
    return ""
}

// currentUserID is UserID with a placeholder for key building.
func currentUserID(c echo.Context) string {
    if s := UserID(c); s != "" {
        return s
    }
    return "anon"
}
