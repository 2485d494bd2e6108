package model

import (
    "fmt"
    "strings"
    "time"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
    BookingPending   BookingStatus = "Pending"
    BookingConfirmed BookingStatus = "Confirmed"
    BookingCancelled BookingStatus = "Cancelled"
)

// bookingTransitions lists the states reachable from each state.
// Confirmed→Confirmed covers room and date changes of a confirmed booking.
var bookingTransitions = map[BookingStatus][]BookingStatus{
    BookingPending:   {BookingConfirmed, BookingCancelled},
    BookingConfirmed: {BookingConfirmed, BookingCancelled},
    BookingCancelled: {},
}

// Valid reports whether s is one of the known states.
func (s BookingStatus) Valid() bool {
    _, ok := bookingTransitions[s]
    return ok
}

// CanTransitionTo reports whether a booking in state s may move to next.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
    for _, allowed := range bookingTransitions[s] {
        if allowed == next {
            return true
        }
    }
    return false
}

// IsTerminal reports whether no transition leaves s.
func (s BookingStatus) IsTerminal() bool {
    return s.Valid() && len(bookingTransitions[s]) == 0
}

func (s BookingStatus) String() string { return string(s) }

// ParseBookingStatus accepts a status name case-insensitively.
func ParseBookingStatus(v string) (BookingStatus, error) {
    for s := range bookingTransitions {
        if strings.EqualFold(string(s), strings.TrimSpace(v)) {
            return s, nil
        }
    }
    return "", fmt.Errorf("invalid booking status %q", v)
}

// Booking mirrors the `bookings` table.  Check-in and check-out are
// calendar dates (UTC midnight); either may be NULL for bookings imported
// without dates, which can then not be moved between rooms.
type Booking struct {
    ID               uint64        // bookings.id
    UserID           uint64        // bookings.user_id
    RoomID           uint64        // bookings.room_id
    CheckInDate      *time.Time    // bookings.check_in_date (nullable)
    CheckOutDate     *time.Time    // bookings.check_out_date (nullable)
    TotalAmountCents int64         // bookings.total_amount_cents
    Status           BookingStatus // bookings.booking_status
    CreatedAt        time.Time     // bookings.created_at
    UpdatedAt        time.Time     // bookings.updated_at
}

// Nights returns the number of nights between the booking's dates, or 0
// when a date is missing.
func (b Booking) Nights() int {
    if b.CheckInDate == nil || b.CheckOutDate == nil {
        return 0
    }
    return NightsBetween(*b.CheckInDate, *b.CheckOutDate)
}

// NightsBetween is ceil((out-in)/24h).  It is negative or zero when out
// does not come after in.
func NightsBetween(in, out time.Time) int {
    d := out.Sub(in)
    n := int(d / (24 * time.Hour))
    if d%(24*time.Hour) > 0 {
        n++
    }
    return n
}

// BookingPatch enumerates the booking fields an update may touch.  Nil
// pointers are left untouched.
type BookingPatch struct {
    RoomID           *uint64
    CheckInDate      *time.Time
    CheckOutDate     *time.Time
    TotalAmountCents *int64
    Status           *BookingStatus
}

// Empty reports whether the patch sets nothing.
func (p BookingPatch) Empty() bool {
    return p.RoomID == nil && p.CheckInDate == nil && p.CheckOutDate == nil &&
        p.TotalAmountCents == nil && p.Status == nil
}

// TouchesAssignment reports whether the patch changes the room or either
// date, the only fields that require an availability check.
func (p BookingPatch) TouchesAssignment() bool {
    return p.RoomID != nil || p.CheckInDate != nil || p.CheckOutDate != nil
}

// BookingFilter narrows admin booking listings.  Zero values mean "any".
type BookingFilter struct {
    Status    BookingStatus
    RoomID    uint64
    UserID    uint64
    HotelID   uint64
    StartDate *time.Time // check-in on or after
    EndDate   *time.Time // check-out on or before
}

// BookingDetail is a booking joined with its room, hotel and guest, used
// for listings, reports and notifications.
type BookingDetail struct {
    Booking
    HotelID    uint64
    HotelName  string
    RoomType   string
    GuestName  string
    GuestEmail string
}
