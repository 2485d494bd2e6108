package handler

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-booking/internal/booking"
	"github.com/iliyamo/hotel-booking/internal/booking/bookingtest"
	"github.com/iliyamo/hotel-booking/internal/middleware"
	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/repository"
)

var handlerNow = time.Date(2025, 1, 5, 9, 30, 0, 0, time.UTC)

type fakeQueries struct {
	details  map[uint64]model.BookingDetail
	export   []model.BookingDetail
	filter   model.BookingFilter
	from, to time.Time
}

func (f *fakeQueries) GetDetail(_ context.Context, id uint64) (*model.BookingDetail, error) {
	d, ok := f.details[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	return &d, nil
}

func (f *fakeQueries) List(_ context.Context, fl model.BookingFilter, _ repository.Page) ([]model.BookingDetail, int, error) {
	f.filter = fl
	var out []model.BookingDetail
	for _, d := range f.details {
		if fl.UserID == 0 || d.UserID == fl.UserID {
			out = append(out, d)
		}
	}
	return out, len(out), nil
}

func (f *fakeQueries) Export(_ context.Context, fl model.BookingFilter) ([]model.BookingDetail, error) {
	f.filter = fl
	return f.export, nil
}

func (f *fakeQueries) UpcomingCheckIns(_ context.Context, from, to time.Time) ([]model.BookingDetail, error) {
	f.from, f.to = from, to
	return nil, nil
}

func (f *fakeQueries) UpcomingCheckOuts(_ context.Context, from, to time.Time) ([]model.BookingDetail, error) {
	f.from, f.to = from, to
	return nil, nil
}

func bookingServer(t *testing.T) (*echo.Echo, *bookingtest.Store, *fakeQueries) {
	t.Helper()
	s := bookingtest.NewStore()
	s.AddUser(1)
	s.AddUser(2)
	s.AddRoom(5, 10000)
	s.AddRoom(6, 15000)
	m := booking.NewManager(s, s.Rooms(), clockwork.NewFakeClockAt(handlerNow), s)
	q := &fakeQueries{details: map[uint64]model.BookingDetail{}}
	h := NewBookingHandler(m, q)

	e := newEcho()
	authed := middleware.Authenticated(testSecret, middleware.TierAny)
	admin := middleware.Authenticated(testSecret, middleware.TierAdmin)
	e.POST("/bookings", h.Create, authed...)
	e.GET("/bookings/me", h.Mine, authed...)
	e.GET("/bookings/:id", h.Get, authed...)
	e.PATCH("/bookings/:id/cancel", h.Cancel, authed...)
	e.PATCH("/bookings/:id/status", h.UpdateStatus, admin...)
	e.PATCH("/bookings/:id/change-room", h.ChangeRoom, admin...)
	e.GET("/bookings/reports/upcoming-checkins", h.UpcomingCheckIns, admin...)
	e.GET("/bookings/reports/export", h.Export, admin...)
	return e, s, q
}

func TestCreateBookingForSelf(t *testing.T) {
	e, s, _ := bookingServer(t)
	rec := serve(e, http.MethodPost, "/bookings",
		`{"room_id":5,"check_in_date":"2025-01-10","check_out_date":"2025-01-12"}`, bearer(t, 1, "user"))
	wantStatus(t, rec, http.StatusCreated)

	body := decode(t, rec)
	if body["user_id"] != float64(1) || body["nights"] != float64(2) {
		t.Fatalf("body = %v", body)
	}
	if body["total_amount_cents"] != float64(20000) || body["total_amount"] != "200.00" {
		t.Fatalf("amount = %v / %v", body["total_amount_cents"], body["total_amount"])
	}
	if body["booking_status"] != string(model.BookingPending) {
		t.Fatalf("status = %v", body["booking_status"])
	}
	if s.Len() != 1 {
		t.Fatalf("stored %d bookings", s.Len())
	}
}

func TestCreateBookingOnBehalfNeedsAdmin(t *testing.T) {
	e, _, _ := bookingServer(t)
	body := `{"user_id":2,"room_id":5,"check_in_date":"2025-01-10","check_out_date":"2025-01-12"}`

	rec := serve(e, http.MethodPost, "/bookings", body, bearer(t, 1, "user"))
	wantStatus(t, rec, http.StatusForbidden)

	rec = serve(e, http.MethodPost, "/bookings", body, bearer(t, 1, "admin"))
	wantStatus(t, rec, http.StatusCreated)
	if got := decode(t, rec)["user_id"]; got != float64(2) {
		t.Fatalf("user_id = %v", got)
	}
}

func TestCreateBookingErrors(t *testing.T) {
	e, s, _ := bookingServer(t)
	s.Seed(model.Booking{
		UserID: 2, RoomID: 5, Status: model.BookingConfirmed,
		CheckInDate: bookingtest.DatePtr("2025-01-20"), CheckOutDate: bookingtest.DatePtr("2025-01-22"),
	})
	cases := []struct {
		name string
		body string
		want int
	}{
		{"past check-in", `{"room_id":5,"check_in_date":"2025-01-04","check_out_date":"2025-01-06"}`, http.StatusBadRequest},
		{"reversed dates", `{"room_id":5,"check_in_date":"2025-01-12","check_out_date":"2025-01-10"}`, http.StatusBadRequest},
		{"same day", `{"room_id":5,"check_in_date":"2025-01-12","check_out_date":"2025-01-12"}`, http.StatusBadRequest},
		{"bad format", `{"room_id":5,"check_in_date":"10/01/2025","check_out_date":"2025-01-12"}`, http.StatusBadRequest},
		{"missing room", `{"check_in_date":"2025-01-10","check_out_date":"2025-01-12"}`, http.StatusBadRequest},
		{"unknown room", `{"room_id":99,"check_in_date":"2025-01-10","check_out_date":"2025-01-12"}`, http.StatusNotFound},
		{"overlap", `{"room_id":5,"check_in_date":"2025-01-21","check_out_date":"2025-01-25"}`, http.StatusConflict},
		{"touching checkout day", `{"room_id":5,"check_in_date":"2025-01-22","check_out_date":"2025-01-24"}`, http.StatusConflict},
	}
	for _, tc := range cases {
		rec := serve(e, http.MethodPost, "/bookings", tc.body, bearer(t, 1, "user"))
		if rec.Code != tc.want {
			t.Errorf("%s: status = %d, want %d (%s)", tc.name, rec.Code, tc.want, rec.Body.String())
		}
	}
	if s.Len() != 1 {
		t.Fatalf("rejected requests wrote bookings: %d stored", s.Len())
	}
}

func TestCreateBookingRequiresToken(t *testing.T) {
	e, _, _ := bookingServer(t)
	rec := serve(e, http.MethodPost, "/bookings", `{"room_id":5}`, "")
	wantStatus(t, rec, http.StatusUnauthorized)
}

func TestCancelBookingOwnership(t *testing.T) {
	e, s, _ := bookingServer(t)
	id := s.Seed(model.Booking{
		UserID: 2, RoomID: 5, Status: model.BookingPending,
		CheckInDate: bookingtest.DatePtr("2025-01-10"), CheckOutDate: bookingtest.DatePtr("2025-01-12"),
	})
	path := "/bookings/" + itoa(id) + "/cancel"

	wantStatus(t, serve(e, http.MethodPatch, path, "", bearer(t, 1, "user")), http.StatusForbidden)

	rec := serve(e, http.MethodPatch, path, "", bearer(t, 2, "user"))
	wantStatus(t, rec, http.StatusOK)
	if got := decode(t, rec)["booking_status"]; got != string(model.BookingCancelled) {
		t.Fatalf("status = %v", got)
	}

	rec = serve(e, http.MethodPatch, "/bookings/"+itoa(id)+"/status", `{"booking_status":"confirmed"}`, bearer(t, 9, "admin"))
	wantStatus(t, rec, http.StatusBadRequest)

	wantStatus(t, serve(e, http.MethodPatch, "/bookings/404/cancel", "", bearer(t, 2, "user")), http.StatusNotFound)
}

func TestUpdateStatus(t *testing.T) {
	e, s, _ := bookingServer(t)
	id := s.Seed(model.Booking{
		UserID: 2, RoomID: 5, Status: model.BookingPending,
		CheckInDate: bookingtest.DatePtr("2025-01-10"), CheckOutDate: bookingtest.DatePtr("2025-01-12"),
	})
	path := "/bookings/" + itoa(id) + "/status"

	wantStatus(t, serve(e, http.MethodPatch, path, `{"booking_status":"Confirmed"}`, bearer(t, 2, "user")), http.StatusForbidden)
	wantStatus(t, serve(e, http.MethodPatch, path, `{"booking_status":"Bogus"}`, bearer(t, 9, "admin")), http.StatusBadRequest)

	rec := serve(e, http.MethodPatch, path, `{"booking_status":"confirmed"}`, bearer(t, 9, "admin"))
	wantStatus(t, rec, http.StatusOK)
	if got := decode(t, rec)["booking_status"]; got != string(model.BookingConfirmed) {
		t.Fatalf("status = %v", got)
	}
	if len(s.Confirmed) != 1 {
		t.Fatalf("confirmation events = %d", len(s.Confirmed))
	}
}

func TestChangeRoom(t *testing.T) {
	e, s, _ := bookingServer(t)
	id := s.Seed(model.Booking{
		UserID: 2, RoomID: 5, Status: model.BookingConfirmed, TotalAmountCents: 20000,
		CheckInDate: bookingtest.DatePtr("2025-01-10"), CheckOutDate: bookingtest.DatePtr("2025-01-12"),
	})
	s.Seed(model.Booking{
		UserID: 1, RoomID: 6, Status: model.BookingConfirmed,
		CheckInDate: bookingtest.DatePtr("2025-01-11"), CheckOutDate: bookingtest.DatePtr("2025-01-13"),
	})
	path := "/bookings/" + itoa(id) + "/change-room"

	wantStatus(t, serve(e, http.MethodPatch, path, `{"room_id":6}`, bearer(t, 9, "admin")), http.StatusConflict)
	wantStatus(t, serve(e, http.MethodPatch, path, `{"room_id":77}`, bearer(t, 9, "admin")), http.StatusNotFound)

	s.AddRoom(7, 9000)
	rec := serve(e, http.MethodPatch, path, `{"room_id":7}`, bearer(t, 9, "admin"))
	wantStatus(t, rec, http.StatusOK)
	body := decode(t, rec)
	if body["room_id"] != float64(7) || body["total_amount_cents"] != float64(20000) {
		t.Fatalf("body = %v", body)
	}
}

func TestGetBookingVisibility(t *testing.T) {
	e, _, q := bookingServer(t)
	q.details[7] = model.BookingDetail{
		Booking:   model.Booking{ID: 7, UserID: 2, RoomID: 5, Status: model.BookingPending},
		HotelName: "Sea View",
	}

	wantStatus(t, serve(e, http.MethodGet, "/bookings/7", "", bearer(t, 1, "user")), http.StatusForbidden)

	rec := serve(e, http.MethodGet, "/bookings/7", "", bearer(t, 2, "user"))
	wantStatus(t, rec, http.StatusOK)
	if got := decode(t, rec)["hotel_name"]; got != "Sea View" {
		t.Fatalf("hotel_name = %v", got)
	}

	wantStatus(t, serve(e, http.MethodGet, "/bookings/7", "", bearer(t, 1, "admin")), http.StatusOK)
	wantStatus(t, serve(e, http.MethodGet, "/bookings/8", "", bearer(t, 1, "admin")), http.StatusNotFound)
	wantStatus(t, serve(e, http.MethodGet, "/bookings/abc", "", bearer(t, 1, "admin")), http.StatusBadRequest)
}

func TestMineFiltersByCaller(t *testing.T) {
	e, _, q := bookingServer(t)
	q.details[1] = model.BookingDetail{Booking: model.Booking{ID: 1, UserID: 2}}
	q.details[2] = model.BookingDetail{Booking: model.Booking{ID: 2, UserID: 1}}

	rec := serve(e, http.MethodGet, "/bookings/me", "", bearer(t, 2, "user"))
	wantStatus(t, rec, http.StatusOK)
	if q.filter.UserID != 2 {
		t.Fatalf("filter user = %d", q.filter.UserID)
	}
	if got := decode(t, rec)["total"]; got != float64(1) {
		t.Fatalf("total = %v", got)
	}
}

func TestUpcomingWindow(t *testing.T) {
	e, _, q := bookingServer(t)
	admin := bearer(t, 9, "admin")

	rec := serve(e, http.MethodGet, "/bookings/reports/upcoming-checkins", "", admin)
	wantStatus(t, rec, http.StatusOK)
	if !q.from.Equal(bookingtest.Date("2025-01-05")) || !q.to.Equal(bookingtest.Date("2025-01-12")) {
		t.Fatalf("window = %s..%s", q.from, q.to)
	}

	rec = serve(e, http.MethodGet, "/bookings/reports/upcoming-checkins?days=3", "", admin)
	wantStatus(t, rec, http.StatusOK)
	body := decode(t, rec)
	if body["from"] != "2025-01-05" || body["to"] != "2025-01-08" || body["count"] != float64(0) {
		t.Fatalf("body = %v", body)
	}

	for _, q := range []string{"-1", "91", "soon"} {
		rec := serve(e, http.MethodGet, "/bookings/reports/upcoming-checkins?days="+q, "", admin)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("days=%s: status = %d", q, rec.Code)
		}
	}
}

func TestExportWorkbook(t *testing.T) {
	e, _, q := bookingServer(t)
	q.export = []model.BookingDetail{{
		Booking: model.Booking{
			ID: 3, UserID: 2, RoomID: 5, Status: model.BookingConfirmed, TotalAmountCents: 30000,
			CheckInDate: bookingtest.DatePtr("2025-02-01"), CheckOutDate: bookingtest.DatePtr("2025-02-04"),
		},
		HotelName: "Sea View", GuestEmail: "guest@example.com",
	}}

	rec := serve(e, http.MethodGet, "/bookings/reports/export?status=confirmed&hotel_id=1", "", bearer(t, 9, "admin"))
	wantStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get(echo.HeaderContentType); ct != xlsxContentType {
		t.Fatalf("content type = %q", ct)
	}
	if cd := rec.Header().Get(echo.HeaderContentDisposition); !strings.Contains(cd, "bookings-20250105.xlsx") {
		t.Fatalf("disposition = %q", cd)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Fatal("body is not a zip archive")
	}
	if q.filter.Status != model.BookingConfirmed || q.filter.HotelID != 1 {
		t.Fatalf("filter = %+v", q.filter)
	}

	rec = serve(e, http.MethodGet, "/bookings/reports/export?start_date=2025-02-10&end_date=2025-02-01", "", bearer(t, 9, "admin"))
	wantStatus(t, rec, http.StatusBadRequest)
}

func TestUpcomingRejectsDaysBeforeQuerying(t *testing.T) {
	h := &BookingHandler{}
	e := newEcho()
	e.GET("/in", h.UpcomingCheckIns)
	e.GET("/out", h.UpcomingCheckOuts)
	for _, path := range []string{"/in?days=400", "/out?days=-3"} {
		wantStatus(t, serve(e, http.MethodGet, path, "", ""), http.StatusBadRequest)
	}
}

type acceptAll struct{}

func (acceptAll) Validate(any) error { return nil }

func TestBookingDatesParsedStrictly(t *testing.T) {
	s := bookingtest.NewStore()
	s.AddUser(1)
	s.AddRoom(5, 10000)
	m := booking.NewManager(s, s.Rooms(), clockwork.NewFakeClockAt(handlerNow), s)
	h := NewBookingHandler(m, &fakeQueries{details: map[uint64]model.BookingDetail{}})
	id := s.Seed(model.Booking{UserID: 1, RoomID: 5, Status: model.BookingPending,
		CheckInDate: bookingtest.DatePtr("2025-01-10"), CheckOutDate: bookingtest.DatePtr("2025-01-12")})

	e := newEcho()
	e.Validator = acceptAll{}
	e.POST("/bookings", h.Create, middleware.Authenticated(testSecret, middleware.TierAny)...)
	e.PUT("/bookings/:id", h.Update, middleware.Authenticated(testSecret, middleware.TierAdmin)...)

	user := bearer(t, 1, model.RoleUser)
	admin := bearer(t, 9, model.RoleAdmin)
	cases := []struct {
		method, path, body, authz string
	}{
		{http.MethodPost, "/bookings", `{"room_id":5,"check_in_date":"10/01/2025","check_out_date":"2025-01-12"}`, user},
		{http.MethodPost, "/bookings", `{"room_id":5,"check_in_date":"2025-01-10","check_out_date":"2025-1-12"}`, user},
		{http.MethodPut, "/bookings/" + itoa(id), `{"check_in_date":"tomorrow"}`, admin},
		{http.MethodPut, "/bookings/" + itoa(id), `{"check_out_date":"2025-13-01"}`, admin},
	}
	for _, tc := range cases {
		wantStatus(t, serve(e, tc.method, tc.path, tc.body, tc.authz), http.StatusBadRequest)
	}
	if s.Len() != 1 {
		t.Fatalf("bookings stored = %d, want 1", s.Len())
	}
	if b, _ := s.Booking(id); b.CheckInDate == nil || !b.CheckInDate.Equal(bookingtest.Date("2025-01-10")) {
		t.Fatalf("check-in moved to %s", b.CheckInDate)
	}
}
