// Package payment creates Stripe checkout sessions for bookings and
// applies the outcome reported by the Stripe webhook.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/gommon/log"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/iliyamo/hotel-booking/internal/booking"
	"github.com/iliyamo/hotel-booking/internal/config"
	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/repository"
)

const (
	metadataBookingID = "bookingId"
	paymentMethodCard = "card"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMissingMetadata  = errors.New("missing Stripe metadata")
	ErrNotPayable       = errors.New("only pending bookings can be paid")
	ErrDisabled         = errors.New("payments are not configured")
)

// SessionCreator is the part of the Stripe client used to open checkout
// sessions.
type SessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// Store persists payment rows.
type Store interface {
	Create(ctx context.Context, p *model.Payment) error
	GetByTransaction(ctx context.Context, txID string) (*model.Payment, error)
	Settle(ctx context.Context, id uint64, status model.PaymentStatus, amountCents int64, txID string, paidOn *time.Time, method string) error
}

// Bookings loads bookings and moves them to Confirmed once their payment
// completes.
type Bookings interface {
	Get(ctx context.Context, id uint64) (*model.Booking, error)
	Confirm(ctx context.Context, id uint64) (*model.Booking, error)
}

// Service ties Stripe checkout to the payments table and the booking
// lifecycle.
type Service struct {
	cfg       config.StripeConfig
	clientURL string
	sessions  SessionCreator
	payments  Store
	bookings  Bookings
	clock     clockwork.Clock
}

// NewService builds a Service. sessions may be nil, in which case a Stripe
// API client is created from cfg.SecretKey.
func NewService(cfg config.StripeConfig, clientURL string, sessions SessionCreator, payments Store, bookings Bookings, clock clockwork.Clock) *Service {
	if sessions == nil && cfg.SecretKey != "" {
		sessions = client.New(cfg.SecretKey, nil).CheckoutSessions
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		cfg:       cfg,
		clientURL: clientURL,
		sessions:  sessions,
		payments:  payments,
		bookings:  bookings,
		clock:     clock,
	}
}

// Checkout is the result of opening a checkout session.
type Checkout struct {
	SessionID string
	URL       string
	Payment   model.Payment
}

// CreateCheckout opens a one-item checkout session for the booking's total
// and records a Pending payment keyed by the session id.
func (s *Service) CreateCheckout(ctx context.Context, b model.Booking) (*Checkout, error) {
	if s.sessions == nil {
		return nil, ErrDisabled
	}
	if b.Status != model.BookingPending {
		return nil, ErrNotPayable
	}
	if b.TotalAmountCents <= 0 {
		return nil, fmt.Errorf("booking %d has no amount to pay", b.ID)
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(s.cfg.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(s.cfg.ProductName),
				},
				UnitAmount: stripe.Int64(b.TotalAmountCents),
			},
			Quantity: stripe.Int64(1),
		}},
		PaymentMethodOptions: &stripe.CheckoutSessionPaymentMethodOptionsParams{
			Card: &stripe.CheckoutSessionPaymentMethodOptionsCardParams{
				RequestThreeDSecure: stripe.String("any"),
			},
		},
		SuccessURL: stripe.String(s.clientURL + "/success"),
		CancelURL:  stripe.String(s.clientURL + "/cancel"),
	}
	params.Context = ctx
	params.AddMetadata(metadataBookingID, strconv.FormatUint(b.ID, 10))
	params.SetIdempotencyKey(uuid.NewString())

	sess, err := s.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	method := paymentMethodCard
	p := model.Payment{
		BookingID:     b.ID,
		UserID:        b.UserID,
		AmountCents:   b.TotalAmountCents,
		Status:        model.PaymentPending,
		PaymentMethod: &method,
		TransactionID: &sess.ID,
	}
	if err := s.payments.Create(ctx, &p); err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}
	return &Checkout{SessionID: sess.ID, URL: sess.URL, Payment: p}, nil
}

// WebhookResult summarises what a webhook delivery changed.
type WebhookResult struct {
	EventType string
	BookingID uint64
	Status    model.PaymentStatus
	Confirmed bool
}

// HandleWebhook verifies the Stripe signature and applies checkout
// session events. Unknown event types are acknowledged without effect.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	if s.cfg.WebhookSecret == "" {
		return nil, ErrDisabled
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	res := &WebhookResult{EventType: string(event.Type)}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionExpired:
	default:
		return res, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	bookingID, err := strconv.ParseUint(sess.Metadata[metadataBookingID], 10, 64)
	if err != nil || bookingID == 0 {
		return nil, ErrMissingMetadata
	}
	res.BookingID = bookingID

	if event.Type == stripe.EventTypeCheckoutSessionExpired {
		res.Status = model.PaymentFailed
		return res, s.expire(ctx, &sess)
	}
	return res, s.complete(ctx, &sess, bookingID, res)
}

// SessionStatus maps a checkout session payment status onto a payment
// status.
func SessionStatus(st stripe.CheckoutSessionPaymentStatus) model.PaymentStatus {
	switch st {
	case stripe.CheckoutSessionPaymentStatusPaid:
		return model.PaymentCompleted
	case stripe.CheckoutSessionPaymentStatusUnpaid:
		return model.PaymentFailed
	default:
		return model.PaymentPending
	}
}

func (s *Service) complete(ctx context.Context, sess *stripe.CheckoutSession, bookingID uint64, res *WebhookResult) error {
	status := SessionStatus(sess.PaymentStatus)
	res.Status = status

	txID := sess.ID
	if sess.PaymentIntent != nil && sess.PaymentIntent.ID != "" {
		txID = sess.PaymentIntent.ID
	}
	var paidOn *time.Time
	if status == model.PaymentCompleted {
		today := booking.Day(s.clock.Now().UTC())
		paidOn = &today
	}

	existing, err := s.payments.GetByTransaction(ctx, sess.ID)
	if errors.Is(err, repository.ErrPaymentNotFound) && txID != sess.ID {
		// redelivery after the row was settled under the payment intent
		existing, err = s.payments.GetByTransaction(ctx, txID)
	}
	switch {
	case err == nil:
		if err := s.payments.Settle(ctx, existing.ID, status, sess.AmountTotal, txID, paidOn, paymentMethodCard); err != nil {
			return fmt.Errorf("settle payment %d: %w", existing.ID, err)
		}
	case errors.Is(err, repository.ErrPaymentNotFound):
		method := paymentMethodCard
		p := model.Payment{
			BookingID:     bookingID,
			AmountCents:   sess.AmountTotal,
			Status:        status,
			PaymentDate:   paidOn,
			PaymentMethod: &method,
			TransactionID: &txID,
		}
		if err := s.createForBooking(ctx, &p); err != nil {
			if errors.Is(err, booking.ErrNotFound) {
				log.Warnf("payment: session %s refers to missing booking %d", sess.ID, bookingID)
				return nil
			}
			return err
		}
	default:
		return fmt.Errorf("load payment: %w", err)
	}
	log.Infof("payment: booking %d session %s recorded as %s", bookingID, sess.ID, status)

	if status != model.PaymentCompleted {
		return nil
	}
	if _, err := s.bookings.Confirm(ctx, bookingID); err != nil {
		if errors.Is(err, booking.ErrPersistence) {
			return err
		}
		log.Warnf("payment: booking %d paid but not confirmed: %v", bookingID, err)
		return nil
	}
	res.Confirmed = true
	return nil
}

// createForBooking inserts a payment for a session that has no Pending
// row, taking the user from the booking.
func (s *Service) createForBooking(ctx context.Context, p *model.Payment) error {
	b, err := s.bookings.Get(ctx, p.BookingID)
	if err != nil {
		return err
	}
	p.UserID = b.UserID
	if err := s.payments.Create(ctx, p); err != nil {
		return fmt.Errorf("record payment: %w", err)
	}
	return nil
}

func (s *Service) expire(ctx context.Context, sess *stripe.CheckoutSession) error {
	existing, err := s.payments.GetByTransaction(ctx, sess.ID)
	if errors.Is(err, repository.ErrPaymentNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load payment: %w", err)
	}
	if existing.Status != model.PaymentPending {
		return nil
	}
	method := paymentMethodCard
	if existing.PaymentMethod != nil {
		method = *existing.PaymentMethod
	}
	return s.payments.Settle(ctx, existing.ID, model.PaymentFailed, existing.AmountCents, sess.ID, nil, method)
}
