// Package scheduler runs the daily background jobs: check-in reminder
// emails and the purge of expired refresh tokens.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/hotel-booking/internal/booking"
	"github.com/iliyamo/hotel-booking/internal/config"
	"github.com/iliyamo/hotel-booking/internal/model"
)

// UpcomingSource lists confirmed bookings whose check-in falls in [from, to].
type UpcomingSource interface {
	UpcomingCheckIns(ctx context.Context, from, to time.Time) ([]model.BookingDetail, error)
}

type ReminderSender interface {
	CheckInReminder(d model.BookingDetail) error
}

type TokenPurger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// Scheduler wraps a gocron scheduler driven by a clockwork clock.
type Scheduler struct {
	cfg      config.SchedulerConfig
	clock    clockwork.Clock
	cron     gocron.Scheduler
	bookings UpcomingSource
	mail     ReminderSender
	tokens   TokenPurger
	timeout  time.Duration
}

// New registers the jobs without starting them.
func New(cfg config.SchedulerConfig, clock clockwork.Clock, bookings UpcomingSource, mail ReminderSender, tokens TokenPurger) (*Scheduler, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("scheduler time zone %q: %w", cfg.TimeZone, err)
	}
	cron, err := gocron.NewScheduler(
		gocron.WithLocation(loc),
		gocron.WithClock(clock),
	)
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		cfg:      cfg,
		clock:    clock,
		cron:     cron,
		bookings: bookings,
		mail:     mail,
		tokens:   tokens,
		timeout:  5 * time.Minute,
	}

	if cfg.ReminderEnabled {
		_, err = cron.NewJob(
			gocron.DailyJob(
				1,
				gocron.NewAtTimes(
					gocron.NewAtTime(cfg.ReminderHour, cfg.ReminderMinute, 0),
				),
			),
			gocron.NewTask(s.run("check-in reminders", func(ctx context.Context) error {
				_, err := s.SendReminders(ctx)
				return err
			})),
			gocron.WithName("checkin-reminders"),
		)
		if err != nil {
			return nil, err
		}
	}

	_, err = cron.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(3, 0, 0))),
		gocron.NewTask(s.run("refresh token purge", func(ctx context.Context) error {
			_, err := s.PurgeTokens(ctx)
			return err
		})),
		gocron.WithName("refresh-token-purge"),
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Infof("scheduler: started %d job(s) in %s", len(s.cron.Jobs()), s.cfg.TimeZone)
}

// Shutdown stops the scheduler and waits for running jobs.
func (s *Scheduler) Shutdown() error { return s.cron.Shutdown() }

// Jobs returns the registered job names.
func (s *Scheduler) Jobs() []string {
	var names []string
	for _, j := range s.cron.Jobs() {
		names = append(names, j.Name())
	}
	return names
}

func (s *Scheduler) run(name string, fn func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Errorf("scheduler: %s: %v", name, err)
		}
	}
}

// SendReminders mails every guest whose confirmed stay starts LeadDays
// from today and returns how many emails went out.  A failed email is
// logged and skipped.
func (s *Scheduler) SendReminders(ctx context.Context) (int, error) {
	lead := s.cfg.LeadDays
	if lead < 0 {
		lead = 0
	}
	day := booking.Day(s.clock.Now().UTC()).AddDate(0, 0, lead)
	list, err := s.bookings.UpcomingCheckIns(ctx, day, day)
	if err != nil {
		return 0, fmt.Errorf("load upcoming check-ins: %w", err)
	}
	sent := 0
	for _, d := range list {
		if d.GuestEmail == "" {
			continue
		}
		if err := s.mail.CheckInReminder(d); err != nil {
			log.Warnf("scheduler: reminder for booking %d: %v", d.ID, err)
			continue
		}
		sent++
	}
	log.Infof("scheduler: sent %d check-in reminder(s) for %s", sent, day.Format("2006-01-02"))
	return sent, nil
}

// PurgeTokens deletes refresh tokens that expired or were revoked before now.
func (s *Scheduler) PurgeTokens(ctx context.Context) (int64, error) {
	n, err := s.tokens.PurgeExpired(ctx, s.clock.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge refresh tokens: %w", err)
	}
	if n > 0 {
		log.Infof("scheduler: purged %d refresh token(s)", n)
	}
	return n, nil
}
