// Package report renders booking exports as XLSX workbooks.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/hotel-booking/internal/model"
)

const bookingsSheet = "Bookings"

// BookingHeader is the first row of the bookings sheet.
var BookingHeader = []any{
	"Booking ID", "Status", "Hotel", "Room ID", "Room Type", "Guest", "Email",
	"Check-in", "Check-out", "Nights", "Total", "Created",
}

// Bookings writes one row per booking plus a totals row summing the
// confirmed revenue, and returns the workbook bytes.
func Bookings(list []model.BookingDetail) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", bookingsSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(bookingsSheet, "A1", &BookingHeader); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(bookingsSheet, 1, 1, bold); err != nil {
		return nil, err
	}

	var confirmed int64
	for i, d := range list {
		row := []any{
			d.ID, string(d.Status), d.HotelName, d.RoomID, d.RoomType, d.GuestName, d.GuestEmail,
			dateCell(d.CheckInDate), dateCell(d.CheckOutDate), d.Nights(),
			model.FormatCents(d.TotalAmountCents), d.CreatedAt.UTC().Format("2006-01-02 15:04"),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(bookingsSheet, cell, &row); err != nil {
			return nil, err
		}
		if d.Status == model.BookingConfirmed {
			confirmed += d.TotalAmountCents
		}
	}

	totalRow := len(list) + 3
	if err := f.SetCellValue(bookingsSheet, fmt.Sprintf("J%d", totalRow), "Confirmed revenue"); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(bookingsSheet, fmt.Sprintf("K%d", totalRow), model.FormatCents(confirmed)); err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(bookingsSheet, totalRow, totalRow, bold); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(bookingsSheet, "C", "G", 22); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return bytes.Clone(buf.Bytes()), nil
}

func dateCell(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
