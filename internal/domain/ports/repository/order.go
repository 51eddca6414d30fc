package repository

import (
	"context"
	"time"

	"telegram-forecast-store/internal/domain/model"
)

// -----------------------------
// Orders
// -----------------------------

// ProductSales is one row of the admin sales report.
type ProductSales struct {
	ProductID   string
	PaidCount   int
	TotalAmount int64
}

type OrderRepository interface {
	Save(ctx context.Context, tx Tx, o *model.Order) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Order, error)

	// UpdateAmount re-quotes the order. It succeeds only while the order is
	// still repriceable (created/invoice_sent); the returned bool reports
	// whether a row was updated.
	UpdateAmount(ctx context.Context, tx Tx, id string, amountMinor int64) (bool, error)

	MarkInvoiceSent(ctx context.Context, tx Tx, id string) error

	// MarkPaid sets status=paid and fills paid_at/provider_tx_id first-write-wins:
	// replays never overwrite the original values.
	MarkPaid(ctx context.Context, tx Tx, id string, providerTxID string, paidAt time.Time) error

	// MarkFailed downgrades to failed unless the order is already paid.
	MarkFailed(ctx context.Context, tx Tx, id string) error

	// MarkDelivered sets delivered_at first-write-wins; the returned bool
	// reports whether this call was the first write.
	MarkDelivered(ctx context.Context, tx Tx, id string) (bool, error)

	// SalesTotals aggregates paid orders per product, most sold first.
	SalesTotals(ctx context.Context, tx Tx) ([]ProductSales, error)
}
