// Package service holds adapters that sit between the booking core and
// external infrastructure.
package service

import (
    "context"
    "encoding/json"
    "sync"
    "time"

    "github.com/jonboulle/clockwork"
    "github.com/labstack/gommon/log"
    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/hotel-booking/internal/config"
    "github.com/iliyamo/hotel-booking/internal/model"
    "github.com/iliyamo/hotel-booking/internal/queue"
)

// DetailLoader loads a booking joined with its room, hotel and guest.
type DetailLoader interface {
    GetDetail(ctx context.Context, id uint64) (*model.BookingDetail, error)
}

// Publisher is the booking manager's event sink.  BookingConfirmed returns
// immediately; loading the booking detail and publishing happen on a
// separate goroutine and failures are only logged.
type Publisher struct {
    url     string
    details DetailLoader
    clock   clockwork.Clock
    timeout time.Duration
    publish func(ctx context.Context, body []byte) error
    wg      sync.WaitGroup
}

func NewPublisher(cfg config.QueueConfig, details DetailLoader, clock clockwork.Clock) *Publisher {
    if clock == nil {
        clock = clockwork.NewRealClock()
    }
    p := &Publisher{url: cfg.URL, details: details, clock: clock, timeout: 10 * time.Second}
    p.publish = p.publishAMQP
    return p
}

// BookingConfirmed implements booking.EventSink.
func (p *Publisher) BookingConfirmed(_ context.Context, b model.Booking) {
    p.wg.Add(1)
    go func() {
        defer p.wg.Done()
        ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
        defer cancel()
        if err := p.send(ctx, b); err != nil {
            log.Errorf("rabbitmq: booking %d confirmed event not published: %v", b.ID, err)
        }
    }()
}

// Wait blocks until in-flight publishes finish.
func (p *Publisher) Wait() { p.wg.Wait() }

func (p *Publisher) send(ctx context.Context, b model.Booking) error {
    d, err := p.details.GetDetail(ctx, b.ID)
    if err != nil {
        return err
    }
    body, err := json.Marshal(queue.NewBookingConfirmedEvent(*d, p.clock.Now()))
    if err != nil {
        return err
    }
    return p.publish(ctx, body)
}

// publishAMQP delivers one persistent message to the booking.confirmed
// queue on the default exchange.
func (p *Publisher) publishAMQP(ctx context.Context, body []byte) error {
    conn, err := amqp.Dial(p.url)
    if err != nil {
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        return err
    }
    defer func() { _ = ch.Close() }()

    if _, err := ch.QueueDeclare(
        queue.BookingConfirmedQueue, // name
        true,                        // durable
        false,                       // autoDelete
        false,                       // exclusive
        false,                       // noWait
        nil,                         // args
    ); err != nil {
        return err
    }

    return ch.PublishWithContext(ctx,
        "",                          // default exchange
        queue.BookingConfirmedQueue, // routing key = queue name
        false,                       // mandatory
        false,                       // immediate
        amqp.Publishing{
            ContentType:  "application/json",
            DeliveryMode: amqp.Persistent,
            Timestamp:    p.clock.Now().UTC(),
            Body:         body,
        },
    )
}
