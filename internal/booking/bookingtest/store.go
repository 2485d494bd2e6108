// Package bookingtest provides an in-memory booking and room store for
// tests of code built on the booking manager.
package bookingtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/repository"
)

// Store keeps bookings and rooms in maps and reports the same sentinel
// errors as the MySQL repositories. Set Err to make every call fail.
type Store struct {
	mu       sync.Mutex
	nextID   uint64
	bookings map[uint64]model.Booking
	rooms    map[uint64]model.Room
	users    map[uint64]bool

	// Err, when non-nil, is returned by every method.
	Err error
	// ListCalls counts ListByRoomAndStatus invocations.
	ListCalls int
	// Confirmed records bookings passed to BookingConfirmed.
	Confirmed []model.Booking
}

func NewStore() *Store {
	return &Store{
		bookings: map[uint64]model.Booking{},
		rooms:    map[uint64]model.Room{},
		users:    map[uint64]bool{},
	}
}

// AddRoom registers a room priced in cents per night.
func (s *Store) AddRoom(id uint64, priceCents int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[id] = model.Room{ID: id, HotelID: 1, PricePerNightCents: priceCents, IsAvailable: true}
}

// AddUser registers a user id so bookings referencing it can be created.
func (s *Store) AddUser(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = true
}

// Seed stores b as is, assigning an id when b.ID is zero, and returns the id.
func (s *Store) Seed(b model.Booking) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == 0 {
		s.nextID++
		b.ID = s.nextID
	} else if b.ID > s.nextID {
		s.nextID = b.ID
	}
	s.bookings[b.ID] = b
	return b.ID
}

// Booking returns a copy of the stored booking.
func (s *Store) Booking(id uint64) (model.Booking, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	return b, ok
}

// Len returns the number of stored bookings.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bookings)
}

func (s *Store) ListByRoomAndStatus(_ context.Context, roomID uint64, status model.BookingStatus) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ListCalls++
	if s.Err != nil {
		return nil, s.Err
	}
	var out []model.Booking
	for _, b := range s.bookings {
		if b.RoomID == roomID && b.Status == status {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetByID(_ context.Context, id uint64) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	b, ok := s.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	return &b, nil
}

func (s *Store) Create(_ context.Context, b *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if !s.users[b.UserID] {
		return repository.ErrUserNotFound
	}
	if _, ok := s.rooms[b.RoomID]; !ok {
		return repository.ErrRoomNotFound
	}
	s.nextID++
	b.ID = s.nextID
	b.CreatedAt = time.Now().UTC()
	b.UpdatedAt = b.CreatedAt
	s.bookings[b.ID] = *b
	return nil
}

func (s *Store) Update(_ context.Context, id uint64, p model.BookingPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	b, ok := s.bookings[id]
	if !ok {
		return repository.ErrBookingNotFound
	}
	if p.RoomID != nil {
		if _, ok := s.rooms[*p.RoomID]; !ok {
			return repository.ErrRoomNotFound
		}
		b.RoomID = *p.RoomID
	}
	if p.CheckInDate != nil {
		t := *p.CheckInDate
		b.CheckInDate = &t
	}
	if p.CheckOutDate != nil {
		t := *p.CheckOutDate
		b.CheckOutDate = &t
	}
	if p.TotalAmountCents != nil {
		b.TotalAmountCents = *p.TotalAmountCents
	}
	if p.Status != nil {
		b.Status = *p.Status
	}
	b.UpdatedAt = time.Now().UTC()
	s.bookings[id] = b
	return nil
}

func (s *Store) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.bookings[id]; !ok {
		return repository.ErrBookingNotFound
	}
	delete(s.bookings, id)
	return nil
}

// Rooms returns a RoomLookup over the same store.
func (s *Store) Rooms() *Rooms { return &Rooms{s: s} }

// Rooms adapts Store to the room lookup port.
type Rooms struct{ s *Store }

func (r *Rooms) GetByID(_ context.Context, id uint64) (*model.Room, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	rm, ok := r.s.rooms[id]
	if !ok {
		return nil, repository.ErrRoomNotFound
	}
	return &rm, nil
}

// BookingConfirmed makes Store usable as an event sink.
func (s *Store) BookingConfirmed(_ context.Context, b model.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Confirmed = append(s.Confirmed, b)
}

// Date parses a YYYY-MM-DD literal and panics on malformed input.
func Date(v string) time.Time {
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		panic(err)
	}
	return t
}

// DatePtr is Date returning a pointer.
func DatePtr(v string) *time.Time {
	t := Date(v)
	return &t
}
