package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/payment"
	"github.com/iliyamo/hotel-booking/internal/repository"
)

// maxWebhookBytes caps the Stripe event body read by Webhook.
const maxWebhookBytes = 64 << 10

// Checkouts is the payment service as seen by the handlers.
type Checkouts interface {
	CreateCheckout(ctx context.Context, b model.Booking) (*payment.Checkout, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*payment.WebhookResult, error)
}

// BookingLoader loads a booking by id.
type BookingLoader interface {
	Get(ctx context.Context, id uint64) (*model.Booking, error)
}

type PaymentHandler struct {
	Payments *repository.PaymentRepo
	Bookings BookingLoader
	Service  Checkouts
}

func NewPaymentHandler(payments *repository.PaymentRepo, bookings BookingLoader, svc Checkouts) *PaymentHandler {
	return &PaymentHandler{Payments: payments, Bookings: bookings, Service: svc}
}

type checkoutReq struct {
	BookingID uint64 `json:"booking_id" validate:"required,gt=0"`
}

// Checkout opens a Stripe checkout session for one of the caller's pending
// bookings.
func (h *PaymentHandler) Checkout(c echo.Context) error {
	var req checkoutReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Bookings.Get(ctx, req.BookingID)
	if err != nil {
		return bookingErr(c, err)
	}
	if !selfOrAdmin(c, b.UserID) {
		return forbidden(c)
	}
	co, err := h.Service.CreateCheckout(ctx, *b)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrDisabled):
			return errJSON(c, http.StatusServiceUnavailable, err.Error())
		case errors.Is(err, payment.ErrNotPayable):
			return errJSON(c, http.StatusConflict, err.Error())
		}
		log.Errorf("checkout for booking %d: %v", b.ID, err)
		return errJSON(c, http.StatusBadGateway, "create checkout session failed")
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"session_id": co.SessionID,
		"url":        co.URL,
		"payment":    newPaymentResp(co.Payment),
	})
}

// List returns payments page by page (admin).
func (h *PaymentHandler) List(c echo.Context) error {
	p, err := pageOf(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, total, err := h.Payments.List(ctx, p)
	if err != nil {
		return repoErr(c, err, "list payments")
	}
	out := make([]paymentResp, 0, len(rows))
	for _, pm := range rows {
		out = append(out, newPaymentResp(pm))
	}
	return list(c, out, p, total)
}

// ByBooking lists the payment attempts of a booking (owner or admin).
func (h *PaymentHandler) ByBooking(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Bookings.Get(ctx, id)
	if err != nil {
		return bookingErr(c, err)
	}
	if !selfOrAdmin(c, b.UserID) {
		return forbidden(c)
	}
	rows, err := h.Payments.ListByBooking(ctx, id)
	if err != nil {
		return repoErr(c, err, "list payments")
	}
	out := make([]paymentResp, 0, len(rows))
	for _, pm := range rows {
		out = append(out, newPaymentResp(pm))
	}
	return c.JSON(http.StatusOK, echo.Map{"booking_id": id, "data": out})
}

// Webhook verifies and applies a Stripe event.  Stripe retries on any
// non-2xx answer, so only failures worth retrying return 5xx.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBytes))
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "unreadable body")
	}
	res, err := h.Service.HandleWebhook(c.Request().Context(), payload, c.Request().Header.Get("Stripe-Signature"))
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrInvalidSignature), errors.Is(err, payment.ErrMissingMetadata):
			return errJSON(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, payment.ErrDisabled):
			return errJSON(c, http.StatusServiceUnavailable, err.Error())
		}
		log.Errorf("stripe webhook: %v", err)
		return errJSON(c, http.StatusInternalServerError, "webhook processing failed")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"received":   true,
		"event_type": res.EventType,
		"booking_id": res.BookingID,
		"status":     res.Status,
		"confirmed":  res.Confirmed,
	})
}
