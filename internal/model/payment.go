package model

import "time"

type PaymentStatus string

const (
    PaymentPending   PaymentStatus = "Pending"
    PaymentCompleted PaymentStatus = "Completed"
    PaymentFailed    PaymentStatus = "Failed"
)

// Payment mirrors the `payments` table.  TransactionID holds the
// checkout session id until the provider reports a payment intent.
type Payment struct {
    ID            uint64        // payments.id
    BookingID     uint64        // payments.booking_id
    UserID        uint64        // payments.user_id
    AmountCents   int64         // payments.amount_cents
    Status        PaymentStatus // payments.payment_status
    PaymentDate   *time.Time    // payments.payment_date (nullable)
    PaymentMethod *string       // payments.payment_method (nullable)
    TransactionID *string       // payments.transaction_id (nullable)
    CreatedAt     time.Time     // payments.created_at
    UpdatedAt     time.Time     // payments.updated_at
}
