// Package booking holds the availability checker and the booking lifecycle
// manager. Both talk to storage through the small interfaces declared
// here, so tests run against an in-memory store.
package booking

import (
	"context"
	"time"

	"github.com/iliyamo/hotel-booking/internal/model"
)

// BookingLister is the read port the checker needs.
type BookingLister interface {
	ListByRoomAndStatus(ctx context.Context, roomID uint64, status model.BookingStatus) ([]model.Booking, error)
}

// Checker decides whether a room is free for a date range. Only Confirmed
// bookings occupy a room. Ranges are compared as closed intervals, so a
// stay ending on day D collides with one starting on day D.
//
// Room existence is not checked: a room without bookings is available.
type Checker struct {
	bookings BookingLister
}

func NewChecker(bookings BookingLister) *Checker {
	return &Checker{bookings: bookings}
}

// IsAvailable reports whether no Confirmed booking of roomID overlaps
// [checkIn, checkOut]. Bookings whose id is in exclude are ignored. A
// storage failure is returned as ErrPersistence, never as false.
func (c *Checker) IsAvailable(ctx context.Context, roomID uint64, checkIn, checkOut time.Time, exclude ...uint64) (bool, error) {
	conflicts, err := c.Conflicts(ctx, roomID, checkIn, checkOut, exclude...)
	if err != nil {
		return false, err
	}
	return len(conflicts) == 0, nil
}

// Conflicts returns the Confirmed bookings of roomID that overlap
// [checkIn, checkOut], skipping the ids in exclude.
func (c *Checker) Conflicts(ctx context.Context, roomID uint64, checkIn, checkOut time.Time, exclude ...uint64) ([]model.Booking, error) {
	confirmed, err := c.bookings.ListByRoomAndStatus(ctx, roomID, model.BookingConfirmed)
	if err != nil {
		return nil, persistence("availability lookup", err)
	}
	in, out := Day(checkIn), Day(checkOut)
	var hits []model.Booking
	for _, b := range confirmed {
		if skip(b.ID, exclude) || b.CheckInDate == nil || b.CheckOutDate == nil {
			continue
		}
		if Overlaps(Day(*b.CheckInDate), Day(*b.CheckOutDate), in, out) {
			hits = append(hits, b)
		}
	}
	return hits, nil
}

// Overlaps is the closed-interval test: [aIn, aOut] and [bIn, bOut]
// overlap unless one ends strictly before the other begins.
func Overlaps(aIn, aOut, bIn, bOut time.Time) bool {
	return !aIn.After(bOut) && !aOut.Before(bIn)
}

// Day truncates t to its calendar date at UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func skip(id uint64, exclude []uint64) bool {
	for _, x := range exclude {
		if x == id {
			return true
		}
	}
	return false
}
