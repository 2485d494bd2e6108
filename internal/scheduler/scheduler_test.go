package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/iliyamo/hotel-booking/internal/config"
	"github.com/iliyamo/hotel-booking/internal/model"
)

type upcomingStub struct {
	from, to time.Time
	list     []model.BookingDetail
}

func (u *upcomingStub) UpcomingCheckIns(_ context.Context, from, to time.Time) ([]model.BookingDetail, error) {
	u.from, u.to = from, to
	return u.list, nil
}

type reminderStub struct {
	sent []uint64
	fail uint64
}

func (r *reminderStub) CheckInReminder(d model.BookingDetail) error {
	if d.ID == r.fail {
		return errors.New("smtp down")
	}
	r.sent = append(r.sent, d.ID)
	return nil
}

type purgeStub struct{ cutoff time.Time }

func (p *purgeStub) PurgeExpired(_ context.Context, cutoff time.Time) (int64, error) {
	p.cutoff = cutoff
	return 3, nil
}

func schedCfg() config.SchedulerConfig {
	return config.SchedulerConfig{ReminderEnabled: true, ReminderHour: 8, TimeZone: "UTC", LeadDays: 1}
}

func TestSendRemindersTargetsTomorrow(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 5, 9, 22, 15, 0, 0, time.UTC))
	src := &upcomingStub{list: []model.BookingDetail{
		{Booking: model.Booking{ID: 1}, GuestEmail: "a@example.com"},
		{Booking: model.Booking{ID: 2}, GuestEmail: "b@example.com"},
		{Booking: model.Booking{ID: 3}},
	}}
	mail := &reminderStub{fail: 2}
	s, err := New(schedCfg(), clock, src, mail, &purgeStub{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	n, err := s.SendReminders(context.Background())
	if err != nil {
		t.Fatalf("SendReminders: %v", err)
	}
	want := time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC)
	if !src.from.Equal(want) || !src.to.Equal(want) {
		t.Errorf("window = %s..%s, want %s", src.from, src.to, want)
	}
	if n != 1 || len(mail.sent) != 1 || mail.sent[0] != 1 {
		t.Errorf("sent %d (%v), want only booking 1", n, mail.sent)
	}
}

func TestPurgeTokensUsesClock(t *testing.T) {
	now := time.Date(2025, 5, 9, 3, 0, 0, 0, time.UTC)
	p := &purgeStub{}
	s, err := New(schedCfg(), clockwork.NewFakeClockAt(now), &upcomingStub{}, &reminderStub{}, p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	n, err := s.PurgeTokens(context.Background())
	if err != nil || n != 3 {
		t.Fatalf("PurgeTokens = %d, %v", n, err)
	}
	if !p.cutoff.Equal(now) {
		t.Errorf("cutoff = %s, want %s", p.cutoff, now)
	}
}

func TestNewRegistersJobs(t *testing.T) {
	s, err := New(schedCfg(), clockwork.NewFakeClock(), &upcomingStub{}, &reminderStub{}, &purgeStub{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := len(s.Jobs()); got != 2 {
		t.Fatalf("jobs = %v, want 2", s.Jobs())
	}

	cfg := schedCfg()
	cfg.ReminderEnabled = false
	s, err = New(cfg, clockwork.NewFakeClock(), &upcomingStub{}, &reminderStub{}, &purgeStub{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := s.Jobs(); len(got) != 1 || got[0] != "refresh-token-purge" {
		t.Fatalf("jobs = %v, want only the purge job", got)
	}
}

func TestNewRejectsUnknownZone(t *testing.T) {
	cfg := schedCfg()
	cfg.TimeZone = "Mars/Olympus"
	if _, err := New(cfg, nil, &upcomingStub{}, &reminderStub{}, &purgeStub{}); err == nil {
		t.Fatal("expected error for unknown time zone")
	}
}
