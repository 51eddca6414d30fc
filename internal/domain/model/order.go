package model

import (
	"time"

	"telegram-forecast-store/internal/domain"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusCreated     OrderStatus = "created"      // order row exists, no invoice yet
	OrderStatusInvoiceSent OrderStatus = "invoice_sent" // invoice issued to the payment provider
	OrderStatusPaid        OrderStatus = "paid"         // provider confirmed the charge
	OrderStatusFailed      OrderStatus = "failed"       // provider reported failure before any success
)

// Order is one purchase attempt for a product. Its status is independent of
// the owning user's lifecycle state: the order may already be paid while the
// user record still says payment_pending (webhook raced the chat flow).
type Order struct {
	ID           string
	UserID       int64  // Telegram user id (the storefront has no separate account system)
	ProductID    string // opaque key, e.g. "month:2025-12:leo" or "year:2026:aries"
	AmountMinor  int64  // minor currency units (kopeks)
	Currency     string
	Status       OrderStatus
	ProviderTxID *string // set once, by reconciliation, on success
	CreatedAt    time.Time
	PaidAt       *time.Time
	DeliveredAt  *time.Time
}

// NewOrder validates and constructs an order in the created status.
func NewOrder(userID int64, productID string, amountMinor int64, currency string) (*Order, error) {
	if userID <= 0 || productID == "" || amountMinor < 0 || currency == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Order{
		ID:          uuid.NewString(),
		UserID:      userID,
		ProductID:   productID,
		AmountMinor: amountMinor,
		Currency:    currency,
		Status:      OrderStatusCreated,
		CreatedAt:   time.Now(),
	}, nil
}

func (o *Order) IsZero() bool { return o == nil || o.ID == "" }

// Repriceable reports whether the amount may still be corrected (re-quote).
// Never after payment: paid_at is first-write-wins and the amount freezes
// with it.
func (o *Order) Repriceable() bool {
	return o.Status == OrderStatusCreated || o.Status == OrderStatusInvoiceSent
}
