package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/hotel-booking/internal/model"
)

// RoomRepo encapsulates the queries for the rooms table. It also serves
// the booking manager as its room lookup.
type RoomRepo struct {
	db *sql.DB
}

func NewRoomRepo(db *sql.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// RoomFilter narrows room listings. Zero values are ignored.
type RoomFilter struct {
	HotelID       uint64
	OnlyAvailable bool
	MinCapacity   int
	MaxPriceCents int64
}

const roomColumns = "id, hotel_id, room_type, price_per_night_cents, capacity, amenities, image_url, is_available, created_at"

func scanRoom(row interface{ Scan(...any) error }) (model.Room, error) {
	var (
		rm                       model.Room
		roomType, amenities, img sql.NullString
		capacity                 sql.NullInt64
	)
	err := row.Scan(&rm.ID, &rm.HotelID, &roomType, &rm.PricePerNightCents, &capacity, &amenities, &img, &rm.IsAvailable, &rm.CreatedAt)
	rm.RoomType = nullStr(roomType)
	rm.Amenities = nullStr(amenities)
	rm.ImageURL = nullStr(img)
	if capacity.Valid {
		c := int(capacity.Int64)
		rm.Capacity = &c
	}
	return rm, err
}

// Create inserts a room. A missing hotel yields ErrHotelNotFound.
func (r *RoomRepo) Create(ctx context.Context, rm *model.Room) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO rooms (hotel_id, room_type, price_per_night_cents, capacity, amenities, image_url, is_available)
		 VALUES (?,?,?,?,?,?,?)`,
		rm.HotelID, rm.RoomType, rm.PricePerNightCents, rm.Capacity, rm.Amenities, rm.ImageURL, rm.IsAvailable)
	if err != nil {
		return parentErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rm.ID = uint64(id)
	return nil
}

// GetByID returns ErrRoomNotFound when no row matches.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (*model.Room, error) {
	rm, err := scanRoom(r.db.QueryRowContext(ctx, "SELECT "+roomColumns+" FROM rooms WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return &rm, nil
}

// List returns one page of rooms matching f and the total match count.
func (r *RoomRepo) List(ctx context.Context, f RoomFilter, p Page) ([]model.Room, int, error) {
	var (
		where []string
		args  []any
	)
	if f.HotelID != 0 {
		where = append(where, "hotel_id = ?")
		args = append(args, f.HotelID)
	}
	if f.OnlyAvailable {
		where = append(where, "is_available = 1")
	}
	if f.MinCapacity > 0 {
		where = append(where, "capacity >= ?")
		args = append(args, f.MinCapacity)
	}
	if f.MaxPriceCents > 0 {
		where = append(where, "price_per_night_cents <= ?")
		args = append(args, f.MaxPriceCents)
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM rooms"+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+roomColumns+" FROM rooms"+cond+" ORDER BY id LIMIT ? OFFSET ?",
		append(args, p.Limit(), p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []model.Room
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rm)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Update applies a partial update; the hotel reference is not updatable.
func (r *RoomRepo) Update(ctx context.Context, id uint64, p model.RoomPatch) error {
	var s setList
	if p.RoomType != nil {
		s.add("room_type", *p.RoomType)
	}
	if p.PricePerNightCents != nil {
		s.add("price_per_night_cents", *p.PricePerNightCents)
	}
	if p.Capacity != nil {
		s.add("capacity", *p.Capacity)
	}
	if p.Amenities != nil {
		s.add("amenities", *p.Amenities)
	}
	if p.ImageURL != nil {
		s.add("image_url", *p.ImageURL)
	}
	if p.IsAvailable != nil {
		s.add("is_available", *p.IsAvailable)
	}
	if s.empty() {
		return nil
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE rooms SET "+strings.Join(s.cols, ", ")+" WHERE id = ?", append(s.args, id)...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// Delete removes a room; its bookings follow by cascade.
func (r *RoomRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM rooms WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRoomNotFound
	}
	return nil
}
