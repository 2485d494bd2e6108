package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-booking/internal/middleware"
)

// RegisterAdmin registers the admin-only endpoints.
func RegisterAdmin(api *echo.Group, h Handlers, jwtSecret string) {
	admin := middleware.Authenticated(jwtSecret, middleware.TierAdmin)
	on := func(method, path string, fn echo.HandlerFunc) { api.Add(method, path, fn, admin...) }

	// ---- Users ----
	on(echo.GET, "/users", h.Users.List)
	on(echo.DELETE, "/users/:id", h.Users.Delete)

	// ---- Hotels ----
	on(echo.POST, "/hotels", h.Hotels.Create)
	on(echo.PUT, "/hotels/:id", h.Hotels.Update)
	on(echo.DELETE, "/hotels/:id", h.Hotels.Delete)
	on(echo.POST, "/hotels/:id/image", h.Hotels.UploadImage)
	on(echo.GET, "/hotels/:id/stats", h.Hotels.Stats)

	// ---- Rooms ----
	on(echo.POST, "/rooms", h.Rooms.Create)
	on(echo.PUT, "/rooms/:id", h.Rooms.Update)
	on(echo.PATCH, "/rooms/:id/availability", h.Rooms.SetAvailability)
	on(echo.DELETE, "/rooms/:id", h.Rooms.Delete)
	on(echo.POST, "/rooms/:id/image", h.Rooms.UploadImage)

	// ---- Bookings ----
	on(echo.GET, "/bookings", h.Bookings.List)
	on(echo.PUT, "/bookings/:id", h.Bookings.Update)
	on(echo.PATCH, "/bookings/:id/status", h.Bookings.UpdateStatus)
	on(echo.PATCH, "/bookings/:id/confirm", h.Bookings.Confirm)
	on(echo.PATCH, "/bookings/:id/change-room", h.Bookings.ChangeRoom)
	on(echo.DELETE, "/bookings/:id", h.Bookings.Delete)
	on(echo.GET, "/bookings/reports/upcoming-checkins", h.Bookings.UpcomingCheckIns)
	on(echo.GET, "/bookings/reports/upcoming-checkouts", h.Bookings.UpcomingCheckOuts)
	on(echo.GET, "/bookings/reports/export", h.Bookings.Export)

	// ---- Payments ----
	on(echo.GET, "/payments", h.Payments.List)

	// ---- Support tickets ----
	on(echo.GET, "/tickets", h.Tickets.List)
	on(echo.PATCH, "/tickets/:id/resolve", h.Tickets.Resolve)
	on(echo.DELETE, "/tickets/:id", h.Tickets.Delete)
}
