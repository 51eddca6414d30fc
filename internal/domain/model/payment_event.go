package model

import (
	"time"

	"telegram-forecast-store/internal/domain"

	"github.com/google/uuid"
)

type PaymentEventStatus string

const (
	PaymentEventSuccess PaymentEventStatus = "success"
	PaymentEventFailed  PaymentEventStatus = "failed"
)

// PaymentEvent is an immutable record of one applied provider callback.
// ProviderTxID is globally unique and is the dedup key: the provider
// delivers at-least-once, we apply exactly once. Rows are append-only.
type PaymentEvent struct {
	ID           string
	OrderID      string
	ProviderTxID string
	Status       PaymentEventStatus
	AmountMinor  int64
	Currency     string
	RawPayload   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewPaymentEvent(orderID, providerTxID string, status PaymentEventStatus, amountMinor int64, currency, rawPayload string) (*PaymentEvent, error) {
	if orderID == "" || providerTxID == "" || currency == "" || amountMinor < 0 {
		return nil, domain.ErrInvalidArgument
	}
	if status != PaymentEventSuccess && status != PaymentEventFailed {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &PaymentEvent{
		ID:           uuid.NewString(),
		OrderID:      orderID,
		ProviderTxID: providerTxID,
		Status:       status,
		AmountMinor:  amountMinor,
		Currency:     currency,
		RawPayload:   rawPayload,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
