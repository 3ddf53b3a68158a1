package middleware

// identity.go holds helpers shared by the rate limiter and cache
// middlewares for deriving a stable per-user identity from the request.

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// userID extracts a user identifier from the context populated by JWTAuth.
// Returns "guest" when the request is unauthenticated.  JWT numeric claims
// decode to float64, so the value is normalised through Sprint.
func userID(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return fmt.Sprintf("%.0f", v)
	case uint64, int64, int:
		return fmt.Sprint(v)
	}
	return "guest"
}
