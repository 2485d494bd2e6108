package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/hotel-booking/internal/model"
)

// HotelRepo encapsulates the queries for the hotels table.
type HotelRepo struct {
	db *sql.DB
}

func NewHotelRepo(db *sql.DB) *HotelRepo {
	return &HotelRepo{db: db}
}

// HotelFilter narrows hotel listings. Empty fields are ignored; Location
// and Category match case-insensitively by substring.
type HotelFilter struct {
	Location string
	Category string
}

const hotelColumns = "id, name, slug, location, address, contact_phone, category, rating, image_url, created_at, updated_at"

func scanHotel(row interface{ Scan(...any) error }) (model.Hotel, error) {
	var (
		h                           model.Hotel
		addr, phone, category, img sql.NullString
		rating                     sql.NullFloat64
	)
	err := row.Scan(&h.ID, &h.Name, &h.Slug, &h.Location, &addr, &phone, &category, &rating, &img, &h.CreatedAt, &h.UpdatedAt)
	h.Address = nullStr(addr)
	h.ContactPhone = nullStr(phone)
	h.Category = nullStr(category)
	h.ImageURL = nullStr(img)
	if rating.Valid {
		v := rating.Float64
		h.Rating = &v
	}
	return h, err
}

// Create inserts a hotel. The caller supplies a unique slug; a duplicate
// slug yields ErrConflict.
func (r *HotelRepo) Create(ctx context.Context, h *model.Hotel) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO hotels (name, slug, location, address, contact_phone, category, rating, image_url)
		 VALUES (?,?,?,?,?,?,?,?)`,
		h.Name, h.Slug, h.Location, h.Address, h.ContactPhone, h.Category, h.Rating, h.ImageURL)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)
	return nil
}

func (r *HotelRepo) GetByID(ctx context.Context, id uint64) (*model.Hotel, error) {
	h, err := scanHotel(r.db.QueryRowContext(ctx, "SELECT "+hotelColumns+" FROM hotels WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrHotelNotFound
		}
		return nil, err
	}
	return &h, nil
}

func (r *HotelRepo) GetBySlug(ctx context.Context, slug string) (*model.Hotel, error) {
	h, err := scanHotel(r.db.QueryRowContext(ctx, "SELECT "+hotelColumns+" FROM hotels WHERE slug = ?", slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrHotelNotFound
		}
		return nil, err
	}
	return &h, nil
}

// SlugExists reports whether a hotel already uses slug.
func (r *HotelRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM hotels WHERE slug = ?", slug).Scan(&n)
	return n > 0, err
}

// List returns one page of hotels matching f, ordered by id, and the total
// number of matches.
func (r *HotelRepo) List(ctx context.Context, f HotelFilter, p Page) ([]model.Hotel, int, error) {
	var (
		where []string
		args  []any
	)
	if f.Location != "" {
		where = append(where, "LOWER(location) LIKE ?")
		args = append(args, "%"+strings.ToLower(f.Location)+"%")
	}
	if f.Category != "" {
		where = append(where, "LOWER(category) LIKE ?")
		args = append(args, "%"+strings.ToLower(f.Category)+"%")
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM hotels"+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+hotelColumns+" FROM hotels"+cond+" ORDER BY id LIMIT ? OFFSET ?",
		append(args, p.Limit(), p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []model.Hotel
	for rows.Next() {
		h, err := scanHotel(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Update applies a partial update. It returns ErrHotelNotFound when no row
// matches.
func (r *HotelRepo) Update(ctx context.Context, id uint64, p model.HotelPatch) error {
	var s setList
	if p.Name != nil {
		s.add("name", *p.Name)
	}
	if p.Location != nil {
		s.add("location", *p.Location)
	}
	if p.Address != nil {
		s.add("address", *p.Address)
	}
	if p.ContactPhone != nil {
		s.add("contact_phone", *p.ContactPhone)
	}
	if p.Category != nil {
		s.add("category", *p.Category)
	}
	if p.Rating != nil {
		s.add("rating", *p.Rating)
	}
	if p.ImageURL != nil {
		s.add("image_url", *p.ImageURL)
	}
	if s.empty() {
		return nil
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE hotels SET "+strings.Join(s.cols, ", ")+" WHERE id = ?", append(s.args, id)...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrHotelNotFound
	}
	return nil
}

// Delete removes a hotel; rooms and their bookings go with it by cascade.
func (r *HotelRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM hotels WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrHotelNotFound
	}
	return nil
}

// Stats aggregates room and booking counts for a hotel. The hotel must
// exist; otherwise ErrHotelNotFound is returned.
func (r *HotelRepo) Stats(ctx context.Context, id uint64) (model.HotelStats, error) {
	st := model.HotelStats{HotelID: id}
	if _, err := r.GetByID(ctx, id); err != nil {
		return st, err
	}
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(is_available), 0) FROM rooms WHERE hotel_id = ?`, id,
	).Scan(&st.Rooms, &st.AvailableRooms); err != nil {
		return st, err
	}
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(b.booking_status = 'Confirmed'), 0),
		        COALESCE(SUM(CASE WHEN b.booking_status = 'Confirmed' THEN b.total_amount_cents ELSE 0 END), 0)
		   FROM bookings b
		   JOIN rooms rm ON rm.id = b.room_id
		  WHERE rm.hotel_id = ?`, id,
	).Scan(&st.Bookings, &st.ConfirmedBookings, &st.RevenueCents)
	return st, err
}
