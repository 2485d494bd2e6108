package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/hotel-booking/internal/model"
)

type PaymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) *PaymentRepo {
	return &PaymentRepo{db: db}
}

const paymentColumns = "id, booking_id, user_id, amount_cents, payment_status, payment_date, payment_method, transaction_id, created_at, updated_at"

func scanPayment(row interface{ Scan(...any) error }) (model.Payment, error) {
	var (
		p             model.Payment
		status        string
		paidOn        sql.NullTime
		method, txID sql.NullString
	)
	err := row.Scan(&p.ID, &p.BookingID, &p.UserID, &p.AmountCents, &status, &paidOn, &method, &txID, &p.CreatedAt, &p.UpdatedAt)
	p.Status = model.PaymentStatus(status)
	if paidOn.Valid {
		t := paidOn.Time
		p.PaymentDate = &t
	}
	p.PaymentMethod = nullStr(method)
	p.TransactionID = nullStr(txID)
	return p, err
}

// Create records a payment row and sets its ID.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	if p.Status == "" {
		p.Status = model.PaymentPending
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (booking_id, user_id, amount_cents, payment_status, payment_date, payment_method, transaction_id)
		 VALUES (?,?,?,?,?,?,?)`,
		p.BookingID, p.UserID, p.AmountCents, string(p.Status), dateArg(p.PaymentDate), p.PaymentMethod, p.TransactionID)
	if err != nil {
		return parentErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// GetByTransaction finds the payment recorded for a provider reference
// (checkout session id or payment intent id).
func (r *PaymentRepo) GetByTransaction(ctx context.Context, txID string) (*model.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE transaction_id = ? ORDER BY id DESC LIMIT 1", txID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Settle writes the provider outcome onto an existing payment row.
func (r *PaymentRepo) Settle(ctx context.Context, id uint64, status model.PaymentStatus, amountCents int64, txID string, paidOn *time.Time, method string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments
		    SET payment_status = ?, amount_cents = ?, transaction_id = ?, payment_date = ?, payment_method = ?
		  WHERE id = ?`,
		string(status), amountCents, txID, dateArg(paidOn), method, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

// List returns one page of payments, newest first, and the total count.
func (r *PaymentRepo) List(ctx context.Context, p Page) ([]model.Payment, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM payments").Scan(&total); err != nil {
		return nil, 0, err
	}
	out, err := r.query(ctx, "SELECT "+paymentColumns+" FROM payments ORDER BY id DESC LIMIT ? OFFSET ?", p.Limit(), p.Offset())
	return out, total, err
}

// ListByBooking returns every payment attempt for a booking.
func (r *PaymentRepo) ListByBooking(ctx context.Context, bookingID uint64) ([]model.Payment, error) {
	return r.query(ctx, "SELECT "+paymentColumns+" FROM payments WHERE booking_id = ? ORDER BY id", bookingID)
}

func (r *PaymentRepo) query(ctx context.Context, q string, args ...any) ([]model.Payment, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
