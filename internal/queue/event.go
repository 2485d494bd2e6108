// Package queue defines the booking event payloads exchanged over RabbitMQ
// and the consumer that processes them.
package queue

import (
    "time"

    "github.com/iliyamo/hotel-booking/internal/model"
)

// BookingConfirmedQueue is the durable queue carrying BookingConfirmedEvent.
const BookingConfirmedQueue = "booking.confirmed"

// BookingConfirmedEvent is published when a booking enters Confirmed.  It
// carries enough of the booking, room, hotel and guest for the consumer to
// log and notify without querying the database.
type BookingConfirmedEvent struct {
    BookingID        uint64 `json:"booking_id"`
    UserID           uint64 `json:"user_id"`
    RoomID           uint64 `json:"room_id"`
    HotelID          uint64 `json:"hotel_id"`
    HotelName        string `json:"hotel_name"`
    RoomType         string `json:"room_type"`
    GuestName        string `json:"guest_name"`
    GuestEmail       string `json:"guest_email"`
    CheckInDate      string `json:"check_in_date"`
    CheckOutDate     string `json:"check_out_date"`
    Nights           int    `json:"nights"`
    TotalAmountCents int64  `json:"total_amount_cents"`
    ConfirmedAt      string `json:"confirmed_at"`
}

// NewBookingConfirmedEvent flattens a booking detail into an event.
func NewBookingConfirmedEvent(d model.BookingDetail, at time.Time) BookingConfirmedEvent {
    ev := BookingConfirmedEvent{
        BookingID:        d.ID,
        UserID:           d.UserID,
        RoomID:           d.RoomID,
        HotelID:          d.HotelID,
        HotelName:        d.HotelName,
        RoomType:         d.RoomType,
        GuestName:        d.GuestName,
        GuestEmail:       d.GuestEmail,
        Nights:           d.Nights(),
        TotalAmountCents: d.TotalAmountCents,
        ConfirmedAt:      at.UTC().Format(time.RFC3339),
    }
    if d.CheckInDate != nil {
        ev.CheckInDate = d.CheckInDate.Format("2006-01-02")
    }
    if d.CheckOutDate != nil {
        ev.CheckOutDate = d.CheckOutDate.Format("2006-01-02")
    }
    return ev
}

// Detail rebuilds the booking detail carried by the event.  Unparseable
// dates are left nil.
func (ev BookingConfirmedEvent) Detail() model.BookingDetail {
    d := model.BookingDetail{
        Booking: model.Booking{
            ID:               ev.BookingID,
            UserID:           ev.UserID,
            RoomID:           ev.RoomID,
            TotalAmountCents: ev.TotalAmountCents,
            Status:           model.BookingConfirmed,
        },
        HotelID:    ev.HotelID,
        HotelName:  ev.HotelName,
        RoomType:   ev.RoomType,
        GuestName:  ev.GuestName,
        GuestEmail: ev.GuestEmail,
    }
    if t, err := time.Parse("2006-01-02", ev.CheckInDate); err == nil {
        d.CheckInDate = &t
    }
    if t, err := time.Parse("2006-01-02", ev.CheckOutDate); err == nil {
        d.CheckOutDate = &t
    }
    return d
}
