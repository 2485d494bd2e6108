package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/hotel-booking/internal/model"
)

func TestBookingsWorkbook(t *testing.T) {
	in := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	out := time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC)
	list := []model.BookingDetail{
		{
			Booking: model.Booking{
				ID: 1, RoomID: 5, CheckInDate: &in, CheckOutDate: &out,
				TotalAmountCents: 30000, Status: model.BookingConfirmed,
			},
			HotelName: "Seaside Inn", RoomType: "Double", GuestName: "Ada Lovelace", GuestEmail: "ada@example.com",
		},
		{
			Booking:   model.Booking{ID: 2, RoomID: 6, TotalAmountCents: 9900, Status: model.BookingPending},
			HotelName: "Seaside Inn",
		},
	}

	raw, err := Bookings(list)
	if err != nil {
		t.Fatalf("Bookings: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(bookingsSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("rows = %d, want header + 2 bookings + blank + totals", len(rows))
	}
	if rows[0][0] != "Booking ID" || rows[0][10] != "Total" {
		t.Errorf("header = %v", rows[0])
	}
	first := rows[1]
	if first[0] != "1" || first[1] != "Confirmed" || first[7] != "2025-06-01" || first[9] != "3" || first[10] != "300.00" {
		t.Errorf("first row = %v", first)
	}
	if rows[2][7] != "" {
		t.Errorf("undated booking check-in = %q", rows[2][7])
	}
	if got := rows[4][10]; got != "300.00" {
		t.Errorf("confirmed revenue = %q, want 300.00", got)
	}
}
