package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "sync"
    "time"

    "github.com/labstack/gommon/log"
    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/hotel-booking/internal/config"
    "github.com/iliyamo/hotel-booking/internal/model"
)

// Notifier sends the guest-facing confirmation for a booking.
type Notifier interface {
    BookingConfirmed(d model.BookingDetail) error
}

// Consumer listens on the booking.confirmed queue.  Every message is
// appended to the booking log as a single line and handed to the
// notifier.
type Consumer struct {
    url      string
    logFile  string
    notifier Notifier
    mu       sync.Mutex
}

// NewConsumer builds a consumer from cfg.  notifier may be nil.
func NewConsumer(cfg config.QueueConfig, notifier Notifier) *Consumer {
    logFile := cfg.LogFile
    if logFile == "" {
        logFile = filepath.Join("logs", "booking.log")
    }
    return &Consumer{url: cfg.URL, logFile: logFile, notifier: notifier}
}

// Run dials the broker and consumes until ctx is cancelled, reconnecting
// with exponential backoff (capped at 30s) whenever the connection drops.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.url)
        if err != nil {
            log.Warnf("booking-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.Warnf("booking-consumer: consume loop ended: %v; reconnecting", err)
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Warnf("booking-consumer: set QoS failed: %v", err)
    }

    if _, err := ch.QueueDeclare(BookingConfirmedQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    msgs, err := ch.ConsumeWithContext(ctx, BookingConfirmedQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for d := range msgs {
        if err := c.Handle(d.Body); err != nil {
            log.Errorf("booking-consumer: handle message failed: %v", err)
            _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
            continue
        }
        _ = d.Ack(false)
    }
    return errors.New("deliveries channel closed")
}

// Handle processes one message body.  A malformed body or a failed log
// write is an error; a failed notification is only logged.
func (c *Consumer) Handle(body []byte) error {
    var ev BookingConfirmedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if err := c.appendLog(FormatLogLine(ev)); err != nil {
        return err
    }
    if c.notifier != nil && ev.GuestEmail != "" {
        if err := c.notifier.BookingConfirmed(ev.Detail()); err != nil {
            log.Errorf("booking-consumer: confirmation email for booking %d: %v", ev.BookingID, err)
        }
    }
    return nil
}

// FormatLogLine renders the single-line booking log entry.
func FormatLogLine(ev BookingConfirmedEvent) string {
    return fmt.Sprintf("[%s] Booking confirmed | booking_id=%d | user_id=%d | room_id=%d | hotel=%q | room_type=%q | check_in=%s | check_out=%s | nights=%d | total=%d cents\n",
        ev.ConfirmedAt, ev.BookingID, ev.UserID, ev.RoomID, ev.HotelName, ev.RoomType,
        ev.CheckInDate, ev.CheckOutDate, ev.Nights, ev.TotalAmountCents)
}

func (c *Consumer) appendLog(line string) error {
    c.mu.Lock()
    defer c.mu.Unlock()
    if err := os.MkdirAll(filepath.Dir(c.logFile), 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()
    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}
