// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers and the booking manager to distinguish between different
// failure scenarios without inspecting driver errors themselves.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an insert or update violates a unique
// constraint that is not covered by a more specific error. Handlers
// should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrHotelNotFound   = errors.New("hotel not found")
	ErrRoomNotFound    = errors.New("room not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrTicketNotFound  = errors.New("ticket not found")
)

// MySQL server error numbers inspected by the repositories.
const (
	errDuplicateEntry  = 1062
	errNoReferencedRow = 1452
)

func mysqlErr(err error) (*mysql.MySQLError, bool) {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me, true
	}
	return nil, false
}

func isDuplicate(err error) bool {
	me, ok := mysqlErr(err)
	return ok && me.Number == errDuplicateEntry
}

// missingParent reports whether err is a foreign-key violation on insert or
// update and, when so, the name of the offending column as quoted in the
// server message, e.g. "user_id".
func missingParent(err error) (string, bool) {
	me, ok := mysqlErr(err)
	if !ok || me.Number != errNoReferencedRow {
		return "", false
	}
	// ... FOREIGN KEY (`user_id`) REFERENCES `users` (`id`) ...
	msg := me.Message
	if i := strings.Index(msg, "FOREIGN KEY (`"); i >= 0 {
		rest := msg[i+len("FOREIGN KEY (`"):]
		if j := strings.Index(rest, "`"); j >= 0 {
			return rest[:j], true
		}
	}
	return "", true
}

// parentErr maps a foreign-key violation to the not-found sentinel of the
// referenced table. Other errors are returned unchanged.
func parentErr(err error) error {
	col, ok := missingParent(err)
	if !ok {
		return err
	}
	switch col {
	case "user_id":
		return ErrUserNotFound
	case "hotel_id":
		return ErrHotelNotFound
	case "room_id":
		return ErrRoomNotFound
	case "booking_id":
		return ErrBookingNotFound
	}
	return ErrConflict
}
