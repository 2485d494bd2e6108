package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-booking/internal/middleware"
)

// RegisterUser registers the endpoints open to any signed-in caller.
// Ownership of individual bookings, payments, tickets and profiles is
// checked inside the handlers, so admins reach them too.
func RegisterUser(api *echo.Group, h Handlers, jwtSecret string) {
	authed := middleware.Authenticated(jwtSecret, middleware.TierAny)
	on := func(method, path string, fn echo.HandlerFunc) { api.Add(method, path, fn, authed...) }

	// ---- Profiles ----
	on(echo.GET, "/users/:id", h.Users.Get)
	on(echo.PUT, "/users/:id", h.Users.Update)

	// ---- Bookings ----
	on(echo.POST, "/bookings", h.Bookings.Create)
	on(echo.GET, "/bookings/me", h.Bookings.Mine)
	on(echo.GET, "/bookings/:id", h.Bookings.Get)
	on(echo.PATCH, "/bookings/:id/cancel", h.Bookings.Cancel)

	// ---- Payments ----
	on(echo.POST, "/payments/checkout-session", h.Payments.Checkout)
	on(echo.GET, "/payments/booking/:id", h.Payments.ByBooking)

	// ---- Support tickets ----
	on(echo.POST, "/tickets", h.Tickets.Create)
	on(echo.GET, "/tickets/me", h.Tickets.Mine)
	on(echo.GET, "/tickets/:id", h.Tickets.Get)
	on(echo.PUT, "/tickets/:id", h.Tickets.Update)
}
