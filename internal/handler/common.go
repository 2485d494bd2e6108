package handler // handler defines the HTTP handlers of the booking API

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/hotel-booking/internal/booking"
	"github.com/iliyamo/hotel-booking/internal/middleware"
	"github.com/iliyamo/hotel-booking/internal/repository"
)

const (
	dateLayout = "2006-01-02"
	dbTimeout  = 5 * time.Second
)

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

func errJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"error": msg})
}

// bindValid binds the request into req and runs the registered validator.
// On failure it writes the 400 response and returns false.
func bindValid(c echo.Context, req any) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, errJSON(c, http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(req); err != nil {
		return false, errJSON(c, http.StatusBadRequest, middleware.ValidationMessage(err))
	}
	return true, nil
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func badID(c echo.Context) error {
	return errJSON(c, http.StatusBadRequest, "invalid id")
}

// parseDate parses a YYYY-MM-DD date as UTC midnight.
func parseDate(v string) (time.Time, error) {
	return time.Parse(dateLayout, strings.TrimSpace(v))
}

// optionalDate parses v when non-empty.
func optionalDate(v string) (*time.Time, error) {
	if strings.TrimSpace(v) == "" {
		return nil, nil
	}
	t, err := parseDate(v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func dateString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

type pageQuery struct {
	Page     int `query:"page" validate:"omitempty,gte=1"`
	PageSize int `query:"page_size" validate:"omitempty,gte=1,lte=100"`
}

func (q pageQuery) page() repository.Page {
	return repository.Page{Number: q.Page, Size: q.PageSize}.Normalize()
}

// pageOf reads ?page and ?page_size.
func pageOf(c echo.Context) (repository.Page, error) {
	q := pageQuery{}
	if v := c.QueryParam("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return repository.Page{}, errors.New("page must be a number")
		}
		q.Page = n
	}
	if v := c.QueryParam("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return repository.Page{}, errors.New("page_size must be a number")
		}
		q.PageSize = n
	}
	if err := c.Validate(&q); err != nil {
		return repository.Page{}, errors.New(middleware.ValidationMessage(err))
	}
	return q.page(), nil
}

type listResp struct {
	Data     any `json:"data"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

func list(c echo.Context, data any, p repository.Page, total int) error {
	return c.JSON(http.StatusOK, listResp{Data: data, Page: p.Number, PageSize: p.Size, Total: total})
}

// bookingErr renders an error from the booking core.
func bookingErr(c echo.Context, err error) error {
	switch {
	case errors.Is(err, booking.ErrInvalidInput):
		return errJSON(c, http.StatusBadRequest, booking.Message(err))
	case errors.Is(err, booking.ErrNotFound):
		return errJSON(c, http.StatusNotFound, booking.Message(err))
	case errors.Is(err, booking.ErrUnavailable):
		return errJSON(c, http.StatusConflict, booking.Message(err))
	}
	log.Errorf("booking: %v", err)
	return errJSON(c, http.StatusInternalServerError, booking.Message(err))
}

// repoErr renders a repository error, logging anything unexpected.
func repoErr(c echo.Context, err error, op string) error {
	switch {
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrHotelNotFound),
		errors.Is(err, repository.ErrRoomNotFound),
		errors.Is(err, repository.ErrBookingNotFound),
		errors.Is(err, repository.ErrPaymentNotFound),
		errors.Is(err, repository.ErrTicketNotFound):
		return errJSON(c, http.StatusNotFound, err.Error())
	case errors.Is(err, sql.ErrNoRows):
		return errJSON(c, http.StatusNotFound, "not found")
	case errors.Is(err, repository.ErrEmailExists):
		return errJSON(c, http.StatusConflict, err.Error())
	case errors.Is(err, repository.ErrConflict):
		return errJSON(c, http.StatusConflict, "resource already exists")
	case errors.Is(err, repository.ErrForbidden):
		return errJSON(c, http.StatusForbidden, "forbidden")
	}
	log.Errorf("%s: %v", op, err)
	return errJSON(c, http.StatusInternalServerError, op+" failed")
}

// selfOrAdmin reports whether the caller is owner or an admin.
func selfOrAdmin(c echo.Context, owner uint64) bool {
	if middleware.IsAdmin(c) {
		return true
	}
	uid, ok := middleware.UserID(c)
	return ok && uid == owner
}

func forbidden(c echo.Context) error {
	return errJSON(c, http.StatusForbidden, "forbidden: you do not have permission to access this resource")
}

// HTTPErrorHandler renders echo errors (404 routes, 405, body limit, bind
// failures) in the same {"error": ...} shape as the handlers.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	msg := "internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		switch m := he.Message.(type) {
		case string:
			msg = m
		case error:
			msg = m.Error()
		default:
			msg = http.StatusText(status)
		}
	} else {
		log.Errorf("unhandled error on %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = errJSON(c, status, msg)
	}
	if err != nil {
		log.Errorf("write error response: %v", err)
	}
}
