package router // package router registers the HTTP routes of the booking API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-booking/internal/handler"
	"github.com/iliyamo/hotel-booking/internal/middleware"
)

// Handlers bundles every handler the router mounts.
type Handlers struct {
	Health   *handler.HealthHandler
	Auth     *handler.AuthHandler
	Users    *handler.UserHandler
	Hotels   *handler.HotelHandler
	Rooms    *handler.RoomHandler
	Bookings *handler.BookingHandler
	Payments *handler.PaymentHandler
	Tickets  *handler.TicketHandler
}

// Options carries the cross-cutting middleware shared by the route groups.
// A nil limiter or cache disables that layer.
type Options struct {
	JWTSecret   string
	AuthLimiter echo.MiddlewareFunc
	Cache       *middleware.ResponseCache
}

// Register mounts /healthz and the whole /api surface.
func Register(e *echo.Echo, h Handlers, opt Options) {
	e.GET("/healthz", h.Health.Health)

	api := e.Group("/api")
	RegisterAuth(api, h.Auth, opt)
	RegisterPublic(api, h, opt)
	RegisterUser(api, h, opt.JWTSecret)
	RegisterAdmin(api, h, opt.JWTSecret)

	// Stripe signs the raw body; no JWT here.
	api.POST("/webhook", h.Payments.Webhook)
}

// RegisterAuth registers the credential endpoints.  Register, login and the
// password reset pair sit behind the stricter auth limiter.
func RegisterAuth(api *echo.Group, a *handler.AuthHandler, opt Options) {
	var limited []echo.MiddlewareFunc
	if opt.AuthLimiter != nil {
		limited = append(limited, opt.AuthLimiter)
	}
	g := api.Group("/auth")
	g.POST("/register", a.Register, limited...)
	g.POST("/login", a.Login, limited...)
	g.POST("/refresh", a.Refresh)
	// logout accepts either a refresh token in the body or a bearer token
	g.POST("/logout", a.Logout)
	g.POST("/password-reset", a.RequestPasswordReset, limited...)
	g.POST("/password-reset/:token", a.ResetPassword, limited...)

	api.GET("/me", a.Me, middleware.Authenticated(opt.JWTSecret, middleware.TierAny)...)
}

// RegisterPublic registers the unauthenticated hotel and room reads.  The
// listings are cached; the availability probe is not.
func RegisterPublic(api *echo.Group, h Handlers, opt Options) {
	hotels := opt.Cache.Middleware(middleware.ScopeHotels)
	rooms := opt.Cache.Middleware(middleware.ScopeRooms)

	api.GET("/hotels", h.Hotels.List, hotels)
	api.GET("/hotels/:id", h.Hotels.Get, hotels)
	api.GET("/hotels/slug/:slug", h.Hotels.GetBySlug, hotels)
	api.GET("/hotels/:id/rooms", h.Hotels.ListRooms, rooms)

	api.GET("/rooms", h.Rooms.List, rooms)
	api.GET("/rooms/available", h.Rooms.Available, rooms)
	api.GET("/rooms/:id", h.Rooms.Get, rooms)
	api.GET("/rooms/:id/availability", h.Rooms.Availability)
}
