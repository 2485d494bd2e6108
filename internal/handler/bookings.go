package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-booking/internal/booking"
	"github.com/iliyamo/hotel-booking/internal/middleware"
	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/report"
	"github.com/iliyamo/hotel-booking/internal/repository"
)

// BookingQueries are the read-only booking queries that bypass the
// lifecycle manager.
type BookingQueries interface {
	GetDetail(ctx context.Context, id uint64) (*model.BookingDetail, error)
	List(ctx context.Context, f model.BookingFilter, p repository.Page) ([]model.BookingDetail, int, error)
	Export(ctx context.Context, f model.BookingFilter) ([]model.BookingDetail, error)
	UpcomingCheckIns(ctx context.Context, from, to time.Time) ([]model.BookingDetail, error)
	UpcomingCheckOuts(ctx context.Context, from, to time.Time) ([]model.BookingDetail, error)
}

type BookingHandler struct {
	Manager *booking.Manager
	Queries BookingQueries
}

func NewBookingHandler(m *booking.Manager, q BookingQueries) *BookingHandler {
	return &BookingHandler{Manager: m, Queries: q}
}

const (
	defaultUpcomingDays = 7
	maxUpcomingDays     = 90
	xlsxContentType     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type createBookingReq struct {
	UserID       uint64 `json:"user_id"`
	RoomID       uint64 `json:"room_id" validate:"required,gt=0"`
	CheckInDate  string `json:"check_in_date" validate:"required,datetime=2006-01-02"`
	CheckOutDate string `json:"check_out_date" validate:"required,datetime=2006-01-02"`
}

type updateBookingReq struct {
	RoomID           *uint64  `json:"room_id" validate:"omitempty,gt=0"`
	CheckInDate      *string  `json:"check_in_date" validate:"omitempty,datetime=2006-01-02"`
	CheckOutDate     *string  `json:"check_out_date" validate:"omitempty,datetime=2006-01-02"`
	TotalAmount      *float64 `json:"total_amount" validate:"omitempty,gte=0"`
	TotalAmountCents *int64   `json:"total_amount_cents" validate:"omitempty,gte=0"`
	Status           *string  `json:"booking_status"`
}

type statusReq struct {
	Status string `json:"booking_status" validate:"required"`
}

type changeRoomReq struct {
	RoomID uint64 `json:"room_id" validate:"required,gt=0"`
}

// Create books a room.  Regular users always book for themselves; an admin
// may book on behalf of user_id.
func (h *BookingHandler) Create(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return errJSON(c, http.StatusUnauthorized, "unauthorized")
	}
	var req createBookingReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	if req.UserID != 0 && req.UserID != uid {
		if !middleware.IsAdmin(c) {
			return forbidden(c)
		}
		uid = req.UserID
	}
	in, err := parseDate(req.CheckInDate)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "check_in_date must be YYYY-MM-DD")
	}
	out, err := parseDate(req.CheckOutDate)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "check_out_date must be YYYY-MM-DD")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Manager.Create(ctx, booking.NewBooking{UserID: uid, RoomID: req.RoomID, CheckIn: in, CheckOut: out})
	if err != nil {
		return bookingErr(c, err)
	}
	return c.JSON(http.StatusCreated, newBookingResp(*b))
}

// Mine lists the caller's bookings.
func (h *BookingHandler) Mine(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return errJSON(c, http.StatusUnauthorized, "unauthorized")
	}
	p, err := pageOf(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	mine, total, err := h.Queries.List(ctx, model.BookingFilter{UserID: uid}, p)
	if err != nil {
		return repoErr(c, err, "list bookings")
	}
	return list(c, bookingDetailResps(mine), p, total)
}

// Get returns a booking with its hotel and guest to the owner or an admin.
func (h *BookingHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	d, err := h.Queries.GetDetail(ctx, id)
	if err != nil {
		return repoErr(c, err, "load booking")
	}
	if !selfOrAdmin(c, d.UserID) {
		return forbidden(c)
	}
	return c.JSON(http.StatusOK, newBookingDetailResp(*d))
}

// Cancel moves a booking to Cancelled (owner or admin).
func (h *BookingHandler) Cancel(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Manager.Get(ctx, id)
	if err != nil {
		return bookingErr(c, err)
	}
	if !selfOrAdmin(c, b.UserID) {
		return forbidden(c)
	}
	b, err = h.Manager.Cancel(ctx, id)
	if err != nil {
		return bookingErr(c, err)
	}
	return c.JSON(http.StatusOK, newBookingResp(*b))
}

// bookingFilter reads ?status, ?room_id, ?user_id, ?hotel_id,
// ?start_date and ?end_date.
func bookingFilter(c echo.Context) (model.BookingFilter, error) {
	var f model.BookingFilter
	if v := c.QueryParam("status"); v != "" {
		s, err := model.ParseBookingStatus(v)
		if err != nil {
			return f, err
		}
		f.Status = s
	}
	ids := []struct {
		name string
		dst  *uint64
	}{
		{"room_id", &f.RoomID},
		{"user_id", &f.UserID},
		{"hotel_id", &f.HotelID},
	}
	for _, q := range ids {
		v := c.QueryParam(q.name)
		if v == "" {
			continue
		}
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil || n == 0 {
			return f, fmt.Errorf("%s must be a positive integer", q.name)
		}
		*q.dst = n
	}
	var err error
	if f.StartDate, err = optionalDate(c.QueryParam("start_date")); err != nil {
		return f, fmt.Errorf("start_date must be YYYY-MM-DD")
	}
	if f.EndDate, err = optionalDate(c.QueryParam("end_date")); err != nil {
		return f, fmt.Errorf("end_date must be YYYY-MM-DD")
	}
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		return f, fmt.Errorf("end_date must not be before start_date")
	}
	return f, nil
}

// List returns bookings matching the query filters (admin).
func (h *BookingHandler) List(c echo.Context) error {
	f, err := bookingFilter(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, err.Error())
	}
	p, err := pageOf(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, total, err := h.Queries.List(ctx, f, p)
	if err != nil {
		return repoErr(c, err, "list bookings")
	}
	return list(c, bookingDetailResps(out), p, total)
}

// Update applies a partial update through the lifecycle manager (admin).
func (h *BookingHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c)
	}
	var req updateBookingReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	var patch model.BookingPatch
	patch.RoomID = req.RoomID
	if req.CheckInDate != nil {
		t, err := parseDate(*req.CheckInDate)
		if err != nil {
			return errJSON(c, http.StatusBadRequest, "check_in_date must be YYYY-MM-DD")
		}
		patch.CheckInDate = &t
	}
	if req.CheckOutDate != nil {
		t, err := parseDate(*req.CheckOutDate)
		if err != nil {
			return errJSON(c, http.StatusBadRequest, "check_out_date must be YYYY-MM-DD")
		}
		patch.CheckOutDate = &t
	}
	patch.TotalAmountCents = priceCents(req.TotalAmount, req.TotalAmountCents)
	if req.Status != nil {
		s, err := model.ParseBookingStatus(*req.Status)
		if err != nil {
			return errJSON(c, http.StatusBadRequest, err.Error())
		}
		patch.Status = &s
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Manager.Update(ctx, id, patch)
	if err != nil {
		return bookingErr(c, err)
	}
	return c.JSON(http.StatusOK, newBookingResp(*b))
}

// UpdateStatus sets booking_status (admin).
func (h *BookingHandler) UpdateStatus(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c)
	}
	var req statusReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	s, err := model.ParseBookingStatus(req.Status)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Manager.UpdateStatus(ctx, id, s)
	if err != nil {
		return bookingErr(c, err)
	}
	return c.JSON(http.StatusOK, newBookingResp(*b))
}

// Confirm moves a booking to Confirmed (admin).
func (h *BookingHandler) Confirm(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Manager.Confirm(ctx, id)
	if err != nil {
		return bookingErr(c, err)
	}
	return c.JSON(http.StatusOK, newBookingResp(*b))
}

// ChangeRoom moves a booking to another room for the same dates (admin).
func (h *BookingHandler) ChangeRoom(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c)
	}
	var req changeRoomReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Manager.ChangeRoom(ctx, id, req.RoomID)
	if err != nil {
		return bookingErr(c, err)
	}
	return c.JSON(http.StatusOK, newBookingResp(*b))
}

func (h *BookingHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Manager.Delete(ctx, id); err != nil {
		return bookingErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// upcomingWindow is [today, today+days] from ?days.
func (h *BookingHandler) upcomingWindow(c echo.Context) (time.Time, time.Time, error) {
	days := defaultUpcomingDays
	if v := c.QueryParam("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > maxUpcomingDays {
			return time.Time{}, time.Time{}, fmt.Errorf("days must be between 0 and %d", maxUpcomingDays)
		}
		days = n
	}
	from := h.Manager.Today()
	return from, from.AddDate(0, 0, days), nil
}

type upcomingFunc func(ctx context.Context, from, to time.Time) ([]model.BookingDetail, error)

func (h *BookingHandler) upcoming(c echo.Context, fetch upcomingFunc) error {
	from, to, err := h.upcomingWindow(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := fetch(ctx, from, to)
	if err != nil {
		return repoErr(c, err, "upcoming bookings")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"from":  from.Format(dateLayout),
		"to":    to.Format(dateLayout),
		"count": len(out),
		"data":  bookingDetailResps(out),
	})
}

// UpcomingCheckIns lists confirmed arrivals in the next ?days days (admin).
func (h *BookingHandler) UpcomingCheckIns(c echo.Context) error {
	return h.upcoming(c, func(ctx context.Context, from, to time.Time) ([]model.BookingDetail, error) {
		return h.Queries.UpcomingCheckIns(ctx, from, to)
	})
}

// UpcomingCheckOuts lists confirmed departures in the next ?days days (admin).
func (h *BookingHandler) UpcomingCheckOuts(c echo.Context) error {
	return h.upcoming(c, func(ctx context.Context, from, to time.Time) ([]model.BookingDetail, error) {
		return h.Queries.UpcomingCheckOuts(ctx, from, to)
	})
}

// Export streams the filtered bookings as an XLSX workbook (admin).
func (h *BookingHandler) Export(c echo.Context) error {
	f, err := bookingFilter(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, err := h.Queries.Export(ctx, f)
	if err != nil {
		return repoErr(c, err, "export bookings")
	}
	data, err := report.Bookings(rows)
	if err != nil {
		return repoErr(c, err, "render bookings report")
	}
	name := fmt.Sprintf("bookings-%s.xlsx", h.Manager.Today().Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, xlsxContentType, data)
}
