package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/hotel-booking/internal/model"
)

// Access tiers used by the router.
const (
    TierAdmin = "admin" // admins only
    TierUser  = "user"  // regular users only
    TierAny   = "any"   // any authenticated caller
)

// RequireRole returns a middleware function that enforces that the
// authenticated user has one of the specified roles.  It assumes JWTAuth
// has already stored the role claim in the context.  Callers without a
// matching role get 403 Forbidden.
func RequireRole(roles ...string) echo.MiddlewareFunc {
    allowed := make(map[string]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !allowed[Role(c)] {
                return c.JSON(http.StatusForbidden, echo.Map{
                    "error": "forbidden: you do not have permission to access this resource",
                })
            }
            return next(c)
        }
    }
}

// RequireTier maps an access tier to the roles it admits.  Unknown tiers
// admit nobody.
func RequireTier(tier string) echo.MiddlewareFunc {
    switch tier {
    case TierAdmin:
        return RequireRole(model.RoleAdmin)
    case TierUser:
        return RequireRole(model.RoleUser)
    case TierAny:
        return RequireRole(model.RoleUser, model.RoleAdmin)
    }
    return RequireRole()
}

// Authenticated chains JWTAuth with the tier check.
func Authenticated(secret, tier string) []echo.MiddlewareFunc {
    return []echo.MiddlewareFunc{JWTAuth(secret), RequireTier(tier)}
}
