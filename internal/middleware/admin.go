package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireAdmin returns a middleware that rejects requests whose
// access token does not carry the admin flag.  It assumes JWTAuth has
// already stored "is_admin" in the context.  Invoice mutation routes
// are guarded with this; most other admin overrides (e.g. deleting
// another user's attendance record) are per-operation decisions made
// in the handlers instead.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			v := c.Get("is_admin")
			isAdmin, ok := v.(bool)
			if !ok || !isAdmin {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "User unauthorized to perform this request"})
			}
			return next(c)
		}
	}
}
