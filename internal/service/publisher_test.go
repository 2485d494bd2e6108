package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/iliyamo/hotel-booking/internal/config"
	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/queue"
)

type detailStub struct {
	detail *model.BookingDetail
	err    error
}

func (s detailStub) GetDetail(context.Context, uint64) (*model.BookingDetail, error) {
	return s.detail, s.err
}

func TestPublisherSendsEvent(t *testing.T) {
	in := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	out := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	d := &model.BookingDetail{
		Booking:   model.Booking{ID: 9, UserID: 1, RoomID: 4, CheckInDate: &in, CheckOutDate: &out, TotalAmountCents: 18000},
		HotelName: "Harbour View",
	}
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC))
	p := NewPublisher(config.QueueConfig{}, detailStub{detail: d}, clock)

	var mu sync.Mutex
	var bodies [][]byte
	p.publish = func(_ context.Context, body []byte) error {
		mu.Lock()
		defer mu.Unlock()
		bodies = append(bodies, body)
		return nil
	}

	p.BookingConfirmed(context.Background(), d.Booking)
	p.Wait()

	if len(bodies) != 1 {
		t.Fatalf("published %d messages, want 1", len(bodies))
	}
	var ev queue.BookingConfirmedEvent
	if err := json.Unmarshal(bodies[0], &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.BookingID != 9 || ev.HotelName != "Harbour View" || ev.Nights != 2 || ev.ConfirmedAt != "2025-03-01T08:00:00Z" {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestPublisherSwallowsLoadErrors(t *testing.T) {
	p := NewPublisher(config.QueueConfig{}, detailStub{err: errors.New("db down")}, nil)
	called := false
	p.publish = func(context.Context, []byte) error {
		called = true
		return nil
	}
	p.BookingConfirmed(context.Background(), model.Booking{ID: 1})
	p.Wait()
	if called {
		t.Fatal("publish should not run when the detail cannot be loaded")
	}
}
