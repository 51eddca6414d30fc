package usecase

import (
	"context"
	"strings"
	"time"

	"telegram-forecast-store/internal/domain"
	"telegram-forecast-store/internal/domain/model"
	"telegram-forecast-store/internal/domain/ports/repository"
	"telegram-forecast-store/internal/infra/metrics"

	"github.com/rs/zerolog"
)

type OrderUseCase interface {
	Create(ctx context.Context, userID int64, productID string, amountMinor int64, currency string) (*model.Order, error)

	// CreatePaid records an order that arrives already settled (the provider
	// reported success without a prior invoice round-trip).
	CreatePaid(ctx context.Context, userID int64, productID string, amountMinor int64, currency, providerTxID string) (*model.Order, error)

	Get(ctx context.Context, orderID string) (*model.Order, error)

	// GetOwned rejects orders that exist but belong to another user; callers
	// must not trust any order field before this check.
	GetOwned(ctx context.Context, userID int64, orderID string) (*model.Order, error)

	// Requote corrects the amount of a not-yet-paid order. Once paid the
	// amount is frozen; ErrOrderFinalized.
	Requote(ctx context.Context, orderID string, amountMinor int64) error

	MarkInvoiceSent(ctx context.Context, orderID string) error

	// MarkDelivered is first-write-wins; the returned bool is true only for
	// the write that actually set delivered_at, so content goes out once.
	MarkDelivered(ctx context.Context, orderID string) (bool, error)
}

var _ OrderUseCase = (*orderUC)(nil)

type orderUC struct {
	orders repository.OrderRepository
	log    *zerolog.Logger
}

func NewOrderUseCase(orders repository.OrderRepository, logger *zerolog.Logger) *orderUC {
	return &orderUC{orders: orders, log: logger}
}

func (u *orderUC) Create(ctx context.Context, userID int64, productID string, amountMinor int64, currency string) (*model.Order, error) {
	order, err := model.NewOrder(userID, productID, amountMinor, currency)
	if err != nil {
		return nil, err
	}
	if err := u.orders.Save(ctx, nil, order); err != nil {
		return nil, err
	}
	metrics.IncOrderCreated(productKind(productID))
	u.log.Info().Int64("user_id", userID).Str("order_id", order.ID).Str("product_id", productID).Msg("order created")
	return order, nil
}

func (u *orderUC) CreatePaid(ctx context.Context, userID int64, productID string, amountMinor int64, currency, providerTxID string) (*model.Order, error) {
	if providerTxID == "" {
		return nil, domain.ErrInvalidArgument
	}
	order, err := model.NewOrder(userID, productID, amountMinor, currency)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	order.Status = model.OrderStatusPaid
	order.PaidAt = &now
	order.ProviderTxID = &providerTxID
	if err := u.orders.Save(ctx, nil, order); err != nil {
		return nil, err
	}
	metrics.IncOrderCreated(productKind(productID))
	u.log.Info().Int64("user_id", userID).Str("order_id", order.ID).Msg("paid order recorded")
	return order, nil
}

func (u *orderUC) Get(ctx context.Context, orderID string) (*model.Order, error) {
	return u.orders.FindByID(ctx, nil, orderID)
}

func (u *orderUC) GetOwned(ctx context.Context, userID int64, orderID string) (*model.Order, error) {
	order, err := u.orders.FindByID(ctx, nil, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, domain.ErrOwnershipMismatch
	}
	return order, nil
}

func (u *orderUC) Requote(ctx context.Context, orderID string, amountMinor int64) error {
	if amountMinor < 0 {
		return domain.ErrInvalidArgument
	}
	if _, err := u.orders.FindByID(ctx, nil, orderID); err != nil {
		return err
	}
	ok, err := u.orders.UpdateAmount(ctx, nil, orderID, amountMinor)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrOrderFinalized
	}
	return nil
}

func (u *orderUC) MarkInvoiceSent(ctx context.Context, orderID string) error {
	return u.orders.MarkInvoiceSent(ctx, nil, orderID)
}

func (u *orderUC) MarkDelivered(ctx context.Context, orderID string) (bool, error) {
	first, err := u.orders.MarkDelivered(ctx, nil, orderID)
	if err != nil {
		return false, err
	}
	if first {
		metrics.IncOrderDelivered()
	}
	return first, nil
}

// productKind extracts the kind prefix from an opaque product id like
// "month:2025-12:leo".
func productKind(productID string) string {
	if i := strings.IndexByte(productID, ':'); i > 0 {
		return productID[:i]
	}
	return productID
}
