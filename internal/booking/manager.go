package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/repository"
)

// BookingStore is the persistence port of the manager. The repository
// implementation returns repository.ErrBookingNotFound for missing rows
// and repository.ErrUserNotFound / ErrRoomNotFound for broken references.
type BookingStore interface {
	BookingLister
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	Create(ctx context.Context, b *model.Booking) error
	Update(ctx context.Context, id uint64, p model.BookingPatch) error
	Delete(ctx context.Context, id uint64) error
}

// RoomLookup resolves a room and its nightly price.
type RoomLookup interface {
	GetByID(ctx context.Context, id uint64) (*model.Room, error)
}

// EventSink receives lifecycle notifications. Implementations must not
// block the caller; delivery is best-effort.
type EventSink interface {
	BookingConfirmed(ctx context.Context, b model.Booking)
}

type noopSink struct{}

func (noopSink) BookingConfirmed(context.Context, model.Booking) {}

// NewBooking is the input of Manager.Create.
type NewBooking struct {
	UserID   uint64
	RoomID   uint64
	CheckIn  time.Time
	CheckOut time.Time
}

// Manager orchestrates booking creation, updates, room changes and status
// transitions. Every operation that changes a room or date assignment
// consults the Checker first.
//
// The check and the write are separate statements, so two concurrent
// requests for the same room and dates can both pass the check.
type Manager struct {
	bookings BookingStore
	rooms    RoomLookup
	checker  *Checker
	clock    clockwork.Clock
	events   EventSink
}

// NewManager wires a Manager. A nil clock uses the wall clock and a nil
// sink drops events.
func NewManager(bookings BookingStore, rooms RoomLookup, clock clockwork.Clock, events EventSink) *Manager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if events == nil {
		events = noopSink{}
	}
	return &Manager{
		bookings: bookings,
		rooms:    rooms,
		checker:  NewChecker(bookings),
		clock:    clock,
		events:   events,
	}
}

// Checker exposes the availability checker used by the manager.
func (m *Manager) Checker() *Checker { return m.checker }

// Today is the current UTC calendar date.
func (m *Manager) Today() time.Time { return Day(m.clock.Now().UTC()) }

// Create validates the request, checks availability, prices the stay from
// the room's nightly rate and stores the booking as Pending.
func (m *Manager) Create(ctx context.Context, nb NewBooking) (*model.Booking, error) {
	if nb.UserID == 0 {
		return nil, invalid("user_id is required")
	}
	if nb.RoomID == 0 {
		return nil, invalid("room_id is required")
	}
	if nb.CheckIn.IsZero() || nb.CheckOut.IsZero() {
		return nil, invalid("check_in_date and check_out_date are required")
	}
	in, out := Day(nb.CheckIn), Day(nb.CheckOut)
	if !in.Before(out) {
		return nil, invalid("check-out date must be after check-in date")
	}
	if in.Before(m.Today()) {
		return nil, invalid("check-in date cannot be in the past")
	}

	ok, err := m.checker.IsAvailable(ctx, nb.RoomID, in, out)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, unavailable()
	}

	room, err := m.room(ctx, nb.RoomID)
	if err != nil {
		return nil, err
	}

	nights := model.NightsBetween(in, out)
	if nights < 1 {
		return nil, invalid("a booking must cover at least one night")
	}

	b := &model.Booking{
		UserID:           nb.UserID,
		RoomID:           nb.RoomID,
		CheckInDate:      &in,
		CheckOutDate:     &out,
		TotalAmountCents: room.PricePerNightCents * int64(nights),
		Status:           model.BookingPending,
	}
	if err := m.bookings.Create(ctx, b); err != nil {
		return nil, storeErr("create booking", err)
	}
	return b, nil
}

// Update applies a partial update. Only patches touching the room or a
// date run the availability check, and that check ignores the booking
// itself. A status in the patch follows the same transition rules as
// UpdateStatus.
func (m *Manager) Update(ctx context.Context, id uint64, p model.BookingPatch) (*model.Booking, error) {
	if p.Empty() {
		return nil, invalid("no fields to update")
	}
	if p.Status != nil && !p.Status.Valid() {
		return nil, invalid(fmt.Sprintf("invalid booking status %q", *p.Status))
	}
	if p.TotalAmountCents != nil && *p.TotalAmountCents < 0 {
		return nil, invalid("total_amount must not be negative")
	}
	if p.RoomID != nil && *p.RoomID == 0 {
		return nil, invalid("room_id must be positive")
	}

	cur, err := m.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if p.TouchesAssignment() {
		if cur.Status.IsTerminal() {
			return nil, invalid("a cancelled booking cannot be changed")
		}
		roomID, in, out := cur.RoomID, cur.CheckInDate, cur.CheckOutDate
		if p.RoomID != nil {
			roomID = *p.RoomID
		}
		if p.CheckInDate != nil {
			in = p.CheckInDate
		}
		if p.CheckOutDate != nil {
			out = p.CheckOutDate
		}
		if in == nil || out == nil {
			return nil, invalid("check_in_date and check_out_date are required")
		}
		if !Day(*in).Before(Day(*out)) {
			return nil, invalid("check-out date must be after check-in date")
		}
		if roomID != cur.RoomID {
			if _, err := m.room(ctx, roomID); err != nil {
				return nil, err
			}
		}
		ok, err := m.checker.IsAvailable(ctx, roomID, *in, *out, cur.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, unavailable()
		}
		if p.CheckInDate != nil {
			d := Day(*p.CheckInDate)
			p.CheckInDate = &d
		}
		if p.CheckOutDate != nil {
			d := Day(*p.CheckOutDate)
			p.CheckOutDate = &d
		}
	}

	if p.Status != nil {
		if err := checkTransition(cur.Status, *p.Status); err != nil {
			return nil, err
		}
	}

	if err := m.bookings.Update(ctx, id, p); err != nil {
		return nil, storeErr("update booking", err)
	}
	updated, err := m.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != nil && *p.Status == model.BookingConfirmed && cur.Status != model.BookingConfirmed {
		m.events.BookingConfirmed(ctx, *updated)
	}
	return updated, nil
}

// ChangeRoom moves a booking to another room for its existing dates. Only
// room_id is written; dates, status and total stay as they are.
func (m *Manager) ChangeRoom(ctx context.Context, id, newRoomID uint64) (*model.Booking, error) {
	if newRoomID == 0 {
		return nil, invalid("room_id is required")
	}
	b, err := m.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.CheckInDate == nil || b.CheckOutDate == nil {
		return nil, invalid("booking has no check-in or check-out date and cannot be moved")
	}
	if b.Status.IsTerminal() {
		return nil, invalid("a cancelled booking cannot be moved")
	}
	if _, err := m.room(ctx, newRoomID); err != nil {
		return nil, err
	}
	ok, err := m.checker.IsAvailable(ctx, newRoomID, *b.CheckInDate, *b.CheckOutDate, b.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, unavailable()
	}
	if err := m.bookings.Update(ctx, id, model.BookingPatch{RoomID: &newRoomID}); err != nil {
		return nil, storeErr("change room", err)
	}
	return m.get(ctx, id)
}

// UpdateStatus moves a booking to status. It does not re-run the
// availability check, even when confirming.
func (m *Manager) UpdateStatus(ctx context.Context, id uint64, status model.BookingStatus) (*model.Booking, error) {
	if !status.Valid() {
		return nil, invalid(fmt.Sprintf("invalid booking status %q", status))
	}
	b, err := m.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(b.Status, status); err != nil {
		return nil, err
	}
	if err := m.bookings.Update(ctx, id, model.BookingPatch{Status: &status}); err != nil {
		return nil, storeErr("update booking status", err)
	}
	prev := b.Status
	b.Status = status
	if status == model.BookingConfirmed && prev != model.BookingConfirmed {
		m.events.BookingConfirmed(ctx, *b)
	}
	return b, nil
}

// Confirm is UpdateStatus(id, Confirmed).
func (m *Manager) Confirm(ctx context.Context, id uint64) (*model.Booking, error) {
	return m.UpdateStatus(ctx, id, model.BookingConfirmed)
}

// Cancel is UpdateStatus(id, Cancelled).
func (m *Manager) Cancel(ctx context.Context, id uint64) (*model.Booking, error) {
	return m.UpdateStatus(ctx, id, model.BookingCancelled)
}

// Delete removes a booking; its payments are removed by the storage layer.
func (m *Manager) Delete(ctx context.Context, id uint64) error {
	if err := m.bookings.Delete(ctx, id); err != nil {
		return storeErr("delete booking", err)
	}
	return nil
}

// Get loads a booking, mapping a missing row to ErrNotFound.
func (m *Manager) Get(ctx context.Context, id uint64) (*model.Booking, error) {
	return m.get(ctx, id)
}

func (m *Manager) get(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := m.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("load booking", err)
	}
	return b, nil
}

func (m *Manager) room(ctx context.Context, id uint64) (*model.Room, error) {
	r, err := m.rooms.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("load room", err)
	}
	return r, nil
}

// checkTransition allows staying in the same state and the moves listed
// in the model's transition table.
func checkTransition(from, to model.BookingStatus) error {
	if from == to || from.CanTransitionTo(to) {
		return nil
	}
	if from.IsTerminal() {
		return invalid("a cancelled booking cannot change status")
	}
	return invalid(fmt.Sprintf("cannot change booking status from %s to %s", from, to))
}

// storeErr classifies a store error into a kind.
func storeErr(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrBookingNotFound):
		return notFound("booking not found")
	case errors.Is(err, repository.ErrRoomNotFound):
		return notFound("room not found")
	case errors.Is(err, repository.ErrUserNotFound):
		return notFound("user not found")
	}
	return persistence(op, err)
}
