package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/hotel-booking/internal/model"
)

// BookingRepo encapsulates the queries for the bookings table. It is the
// persistence port of the booking manager.
type BookingRepo struct {
	db *sql.DB
}

func NewBookingRepo(db *sql.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

const dateLayout = "2006-01-02"

const bookingColumns = "b.id, b.user_id, b.room_id, b.check_in_date, b.check_out_date, b.total_amount_cents, b.booking_status, b.created_at, b.updated_at"

const bookingDetailSelect = "SELECT " + bookingColumns + `,
       h.id, h.name, COALESCE(rm.room_type, ''), CONCAT(u.first_name, ' ', u.last_name), u.email
  FROM bookings b
  JOIN rooms rm ON rm.id = b.room_id
  JOIN hotels h ON h.id = rm.hotel_id
  JOIN users u ON u.id = b.user_id`

// dateArg renders a calendar date for a DATE column; nil stays NULL.
func dateArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(dateLayout)
}

func scanBooking(row interface{ Scan(...any) error }, extra ...any) (model.Booking, error) {
	var (
		b       model.Booking
		in, out sql.NullTime
		status  string
	)
	dest := []any{&b.ID, &b.UserID, &b.RoomID, &in, &out, &b.TotalAmountCents, &status, &b.CreatedAt, &b.UpdatedAt}
	err := row.Scan(append(dest, extra...)...)
	if in.Valid {
		t := in.Time
		b.CheckInDate = &t
	}
	if out.Valid {
		t := out.Time
		b.CheckOutDate = &t
	}
	b.Status = model.BookingStatus(status)
	return b, err
}

func scanBookingDetail(row interface{ Scan(...any) error }) (model.BookingDetail, error) {
	var d model.BookingDetail
	b, err := scanBooking(row, &d.HotelID, &d.HotelName, &d.RoomType, &d.GuestName, &d.GuestEmail)
	d.Booking = b
	return d, err
}

// Create inserts b and sets its ID. A missing user or room surfaces as
// ErrUserNotFound or ErrRoomNotFound.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	if b.Status == "" {
		b.Status = model.BookingPending
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO bookings (user_id, room_id, check_in_date, check_out_date, total_amount_cents, booking_status)
		 VALUES (?,?,?,?,?,?)`,
		b.UserID, b.RoomID, dateArg(b.CheckInDate), dateArg(b.CheckOutDate), b.TotalAmountCents, string(b.Status))
	if err != nil {
		return parentErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// GetByID returns ErrBookingNotFound when no row matches.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, "SELECT "+bookingColumns+" FROM bookings b WHERE b.id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

// GetDetail returns the booking joined with room, hotel and guest.
func (r *BookingRepo) GetDetail(ctx context.Context, id uint64) (*model.BookingDetail, error) {
	d, err := scanBookingDetail(r.db.QueryRowContext(ctx, bookingDetailSelect+" WHERE b.id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &d, nil
}

// ListByRoomAndStatus returns every booking of a room in the given state.
// The availability checker calls it with model.BookingConfirmed.
func (r *BookingRepo) ListByRoomAndStatus(ctx context.Context, roomID uint64, status model.BookingStatus) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings b WHERE b.room_id = ? AND b.booking_status = ? ORDER BY b.check_in_date",
		roomID, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update applies a partial update keyed by booking id and returns
// ErrBookingNotFound when no row matches.
func (r *BookingRepo) Update(ctx context.Context, id uint64, p model.BookingPatch) error {
	var s setList
	if p.RoomID != nil {
		s.add("room_id", *p.RoomID)
	}
	if p.CheckInDate != nil {
		s.add("check_in_date", dateArg(p.CheckInDate))
	}
	if p.CheckOutDate != nil {
		s.add("check_out_date", dateArg(p.CheckOutDate))
	}
	if p.TotalAmountCents != nil {
		s.add("total_amount_cents", *p.TotalAmountCents)
	}
	if p.Status != nil {
		s.add("booking_status", string(*p.Status))
	}
	if s.empty() {
		return nil
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE bookings SET "+strings.Join(s.cols, ", ")+" WHERE id = ?", append(s.args, id)...)
	if err != nil {
		return parentErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// Delete removes the booking; payments follow by cascade.
func (r *BookingRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM bookings WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

func bookingWhere(f model.BookingFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "b.booking_status = ?")
		args = append(args, string(f.Status))
	}
	if f.RoomID != 0 {
		where = append(where, "b.room_id = ?")
		args = append(args, f.RoomID)
	}
	if f.UserID != 0 {
		where = append(where, "b.user_id = ?")
		args = append(args, f.UserID)
	}
	if f.HotelID != 0 {
		where = append(where, "rm.hotel_id = ?")
		args = append(args, f.HotelID)
	}
	if f.StartDate != nil {
		where = append(where, "b.check_in_date >= ?")
		args = append(args, dateArg(f.StartDate))
	}
	if f.EndDate != nil {
		where = append(where, "b.check_out_date <= ?")
		args = append(args, dateArg(f.EndDate))
	}
	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func (r *BookingRepo) queryDetails(ctx context.Context, q string, args ...any) ([]model.BookingDetail, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.BookingDetail
	for rows.Next() {
		d, err := scanBookingDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// List returns one page of bookings matching f, newest first, and the
// total number of matches.
func (r *BookingRepo) List(ctx context.Context, f model.BookingFilter, p Page) ([]model.BookingDetail, int, error) {
	cond, args := bookingWhere(f)
	var total int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM bookings b JOIN rooms rm ON rm.id = b.room_id"+cond, args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}
	out, err := r.queryDetails(ctx,
		bookingDetailSelect+cond+" ORDER BY b.created_at DESC, b.id DESC LIMIT ? OFFSET ?",
		append(args, p.Limit(), p.Offset())...)
	return out, total, err
}

// Export returns every booking matching f ordered by check-in date.
func (r *BookingRepo) Export(ctx context.Context, f model.BookingFilter) ([]model.BookingDetail, error) {
	cond, args := bookingWhere(f)
	return r.queryDetails(ctx, bookingDetailSelect+cond+" ORDER BY b.check_in_date, b.id", args...)
}

// UpcomingCheckIns lists confirmed bookings whose check-in falls in
// [from, to].
func (r *BookingRepo) UpcomingCheckIns(ctx context.Context, from, to time.Time) ([]model.BookingDetail, error) {
	return r.upcoming(ctx, "b.check_in_date", from, to)
}

// UpcomingCheckOuts lists confirmed bookings whose check-out falls in
// [from, to].
func (r *BookingRepo) UpcomingCheckOuts(ctx context.Context, from, to time.Time) ([]model.BookingDetail, error) {
	return r.upcoming(ctx, "b.check_out_date", from, to)
}

func (r *BookingRepo) upcoming(ctx context.Context, col string, from, to time.Time) ([]model.BookingDetail, error) {
	return r.queryDetails(ctx,
		bookingDetailSelect+" WHERE b.booking_status = ? AND "+col+" BETWEEN ? AND ? ORDER BY "+col+", b.id",
		string(model.BookingConfirmed), dateArg(&from), dateArg(&to))
}
