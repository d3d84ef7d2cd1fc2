package middleware

// identity.go holds the helper that turns whatever JWTAuth stored in
// the context into a stable string identity for cache and rate-limit
// keys.  Unauthenticated requests share the "guest" identity.

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// identityKey returns a string form of the authenticated user's ID,
// or "guest" when the request carries no identity.  JWT numeric
// claims arrive as float64, so the value is normalized through
// formatting rather than type-switched.
func identityKey(c echo.Context) string {
	v := c.Get("user_id")
	if v == nil {
		return "guest"
	}
	switch t := v.(type) {
	case string:
		if t != "" {
			return t
		}
	case float64:
		return fmt.Sprintf("%.0f", t)
	case uint64, int64, int:
		return fmt.Sprintf("%d", t)
	}
	return "guest"
}
