package repository

import (
	"context"

	"telegram-forecast-store/internal/domain/model"
)

// -----------------------------
// Payment events
// -----------------------------

type PaymentEventRepository interface {
	// Insert appends a new event row. The storage backend enforces a unique
	// constraint on provider_tx_id; a concurrent or repeated insert for the
	// same transaction id returns domain.ErrAlreadyExists so the caller can
	// fall back to the duplicate branch.
	Insert(ctx context.Context, tx Tx, ev *model.PaymentEvent) error

	FindByProviderTxID(ctx context.Context, tx Tx, providerTxID string) (*model.PaymentEvent, error)
}
