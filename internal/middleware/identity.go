package middleware

// identity.go holds the accessors for the identity JWTAuth stores in the
// Echo context.  Handlers and the rate limiter use them instead of reading
// context keys directly.

import (
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/hotel-booking/internal/model"
)

// UserID returns the authenticated user's id.  JSON numbers decode as
// float64, so every numeric form is accepted.
func UserID(c echo.Context) (uint64, bool) {
    switch t := c.Get("user_id").(type) {
    case uint64:
        return t, t > 0
    case int:
        return uint64(t), t > 0
    case int64:
        return uint64(t), t > 0
    case float64:
        return uint64(t), t > 0
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil {
            return n, n > 0
        }
    }
    return 0, false
}

// Role returns the role claim, or "" for anonymous requests.
func Role(c echo.Context) string {
    r, _ := c.Get("role").(string)
    return r
}

// IsAdmin reports whether the caller holds the admin role.
func IsAdmin(c echo.Context) bool { return Role(c) == model.RoleAdmin }

// identityKey is the user part of rate limit keys: the user id, or "anon".
func identityKey(c echo.Context) string {
    if id, ok := UserID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}
