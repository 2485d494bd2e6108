package handler

import (
	"time"

	"github.com/jinzhu/copier"

	"github.com/iliyamo/hotel-booking/internal/model"
)

// JSON views of the models.  Fields whose names match the model are filled
// by copier; money and dates are formatted by hand.

type userResp struct {
	ID           uint64    `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	ContactPhone *string   `json:"contact_phone"`
	Address      *string   `json:"address"`
	ProfileURL   *string   `json:"profile_url"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func newUserResp(u model.User) userResp {
	var r userResp
	_ = copier.Copy(&r, &u)
	return r
}

type hotelResp struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Location     string    `json:"location"`
	Address      *string   `json:"address"`
	ContactPhone *string   `json:"contact_phone"`
	Category     *string   `json:"category"`
	Rating       *float64  `json:"rating"`
	ImageURL     *string   `json:"image_url"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func newHotelResp(h model.Hotel) hotelResp {
	var r hotelResp
	_ = copier.Copy(&r, &h)
	return r
}

type roomResp struct {
	ID                 uint64    `json:"id"`
	HotelID            uint64    `json:"hotel_id"`
	RoomType           *string   `json:"room_type"`
	PricePerNightCents int64     `json:"price_per_night_cents"`
	PricePerNight      string    `json:"price_per_night"`
	Capacity           *int      `json:"capacity"`
	Amenities          *string   `json:"amenities"`
	ImageURL           *string   `json:"image_url"`
	IsAvailable        bool      `json:"is_available"`
	CreatedAt          time.Time `json:"created_at"`
}

func newRoomResp(rm model.Room) roomResp {
	var r roomResp
	_ = copier.Copy(&r, &rm)
	r.PricePerNight = model.FormatCents(rm.PricePerNightCents)
	return r
}

type bookingResp struct {
	ID               uint64              `json:"id"`
	UserID           uint64              `json:"user_id"`
	RoomID           uint64              `json:"room_id"`
	CheckInDate      *string             `json:"check_in_date"`
	CheckOutDate     *string             `json:"check_out_date"`
	Nights           int                 `json:"nights"`
	TotalAmountCents int64               `json:"total_amount_cents"`
	TotalAmount      string              `json:"total_amount"`
	Status           model.BookingStatus `json:"booking_status"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`

	HotelID    uint64 `json:"hotel_id,omitempty"`
	HotelName  string `json:"hotel_name,omitempty"`
	RoomType   string `json:"room_type,omitempty"`
	GuestName  string `json:"guest_name,omitempty"`
	GuestEmail string `json:"guest_email,omitempty"`
}

func newBookingResp(b model.Booking) bookingResp {
	return bookingResp{
		ID:               b.ID,
		UserID:           b.UserID,
		RoomID:           b.RoomID,
		CheckInDate:      dateString(b.CheckInDate),
		CheckOutDate:     dateString(b.CheckOutDate),
		Nights:           b.Nights(),
		TotalAmountCents: b.TotalAmountCents,
		TotalAmount:      model.FormatCents(b.TotalAmountCents),
		Status:           b.Status,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}
}

func newBookingDetailResp(d model.BookingDetail) bookingResp {
	r := newBookingResp(d.Booking)
	r.HotelID = d.HotelID
	r.HotelName = d.HotelName
	r.RoomType = d.RoomType
	r.GuestName = d.GuestName
	r.GuestEmail = d.GuestEmail
	return r
}

func bookingDetailResps(list []model.BookingDetail) []bookingResp {
	out := make([]bookingResp, 0, len(list))
	for _, d := range list {
		out = append(out, newBookingDetailResp(d))
	}
	return out
}

type paymentResp struct {
	ID            uint64              `json:"id"`
	BookingID     uint64              `json:"booking_id"`
	UserID        uint64              `json:"user_id"`
	AmountCents   int64               `json:"amount_cents"`
	Amount        string              `json:"amount"`
	Status        model.PaymentStatus `json:"payment_status"`
	PaymentDate   *string             `json:"payment_date"`
	PaymentMethod *string             `json:"payment_method"`
	TransactionID *string             `json:"transaction_id"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func newPaymentResp(p model.Payment) paymentResp {
	return paymentResp{
		ID:            p.ID,
		BookingID:     p.BookingID,
		UserID:        p.UserID,
		AmountCents:   p.AmountCents,
		Amount:        model.FormatCents(p.AmountCents),
		Status:        p.Status,
		PaymentDate:   dateString(p.PaymentDate),
		PaymentMethod: p.PaymentMethod,
		TransactionID: p.TransactionID,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

type ticketResp struct {
	ID          uint64             `json:"id"`
	UserID      uint64             `json:"user_id"`
	Subject     string             `json:"subject"`
	Description string             `json:"description"`
	Status      model.TicketStatus `json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func newTicketResp(t model.SupportTicket) ticketResp {
	var r ticketResp
	_ = copier.Copy(&r, &t)
	return r
}
