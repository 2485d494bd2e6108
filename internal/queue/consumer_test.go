package queue

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iliyamo/hotel-booking/internal/config"
	"github.com/iliyamo/hotel-booking/internal/model"
)

type recordingNotifier struct {
	got []model.BookingDetail
	err error
}

func (n *recordingNotifier) BookingConfirmed(d model.BookingDetail) error {
	n.got = append(n.got, d)
	return n.err
}

func sampleEvent() BookingConfirmedEvent {
	in := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	out := time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC)
	d := model.BookingDetail{
		Booking: model.Booking{
			ID: 11, UserID: 2, RoomID: 5,
			CheckInDate: &in, CheckOutDate: &out,
			TotalAmountCents: 30000,
		},
		HotelID:    1,
		HotelName:  "Seaside Inn",
		RoomType:   "Suite",
		GuestName:  "Ada Lovelace",
		GuestEmail: "ada@example.com",
	}
	return NewBookingConfirmedEvent(d, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
}

func TestHandleAppendsLogAndNotifies(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "logs", "booking.log")
	n := &recordingNotifier{}
	c := NewConsumer(config.QueueConfig{LogFile: logFile}, n)

	body, _ := json.Marshal(sampleEvent())
	if err := c.Handle(body); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if err := c.Handle(body); err != nil {
		t.Fatalf("Handle (second): %v", err)
	}

	raw, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 2 {
		t.Fatalf("log has %d lines, want 2", len(lines))
	}
	want := `[2025-03-01T12:00:00Z] Booking confirmed | booking_id=11 | user_id=2 | room_id=5 | hotel="Seaside Inn" | room_type="Suite" | check_in=2025-03-10 | check_out=2025-03-13 | nights=3 | total=30000 cents`
	if lines[0] != want {
		t.Errorf("log line\n got %s\nwant %s", lines[0], want)
	}

	if len(n.got) != 2 {
		t.Fatalf("notifier called %d times, want 2", len(n.got))
	}
	d := n.got[0]
	if d.ID != 11 || d.Status != model.BookingConfirmed || d.CheckInDate == nil || d.Nights() != 3 {
		t.Errorf("unexpected detail %+v", d)
	}
}

func TestHandleRejectsMalformedBody(t *testing.T) {
	c := NewConsumer(config.QueueConfig{LogFile: filepath.Join(t.TempDir(), "b.log")}, nil)
	if err := c.Handle([]byte("{not json")); err == nil {
		t.Fatal("expected error for malformed body")
	}
}

func TestHandleIgnoresNotifierFailure(t *testing.T) {
	n := &recordingNotifier{err: errors.New("smtp down")}
	c := NewConsumer(config.QueueConfig{LogFile: filepath.Join(t.TempDir(), "b.log")}, n)
	body, _ := json.Marshal(sampleEvent())
	if err := c.Handle(body); err != nil {
		t.Fatalf("Handle: %v", err)
	}
}
