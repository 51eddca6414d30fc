package usecase

import (
	"context"
	"errors"
	"fmt"

	"telegram-forecast-store/internal/domain"
	"telegram-forecast-store/internal/domain/model"
	"telegram-forecast-store/internal/domain/ports/repository"
	"telegram-forecast-store/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// ReconcileResult reports what happened to one provider callback. Applied is
// false for repeat deliveries; that is a normal outcome of at-least-once
// delivery, not an error, and the caller must not resend content or
// re-charge when it sees it.
type ReconcileResult struct {
	Applied bool
	Reason  string
	Event   *model.PaymentEvent
}

// ReconcileUseCase applies a payment-provider callback to durable state
// exactly once, no matter how many times the provider retries delivery. This
// is the only legal path that mutates an order's payment status.
type ReconcileUseCase interface {
	Reconcile(ctx context.Context, orderID, providerTxID string, status model.PaymentEventStatus, amountMinor int64, currency, rawPayload string) (*ReconcileResult, error)
}

var _ ReconcileUseCase = (*reconcileUC)(nil)

type reconcileUC struct {
	events repository.PaymentEventRepository
	orders repository.OrderRepository
	log    *zerolog.Logger
}

func NewReconcileUseCase(events repository.PaymentEventRepository, orders repository.OrderRepository, logger *zerolog.Logger) *reconcileUC {
	return &reconcileUC{events: events, orders: orders, log: logger}
}

func (u *reconcileUC) Reconcile(ctx context.Context, orderID, providerTxID string, status model.PaymentEventStatus, amountMinor int64, currency, rawPayload string) (*ReconcileResult, error) {
	existing, err := u.events.FindByProviderTxID(ctx, nil, providerTxID)
	if err == nil {
		return u.duplicate(providerTxID, existing), nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	// The callback must settle a real order; nothing is persisted otherwise.
	order, err := u.orders.FindByID(ctx, nil, orderID)
	if err != nil {
		return nil, err
	}

	ev, err := model.NewPaymentEvent(order.ID, providerTxID, status, amountMinor, currency, rawPayload)
	if err != nil {
		return nil, err
	}

	// The unique constraint on provider_tx_id is the concurrency guard: of
	// two racing inserts for the same transaction id exactly one succeeds,
	// the loser re-reads the winner's row and takes the duplicate branch.
	if err := u.events.Insert(ctx, nil, ev); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			winner, ferr := u.events.FindByProviderTxID(ctx, nil, providerTxID)
			if ferr != nil {
				return nil, ferr
			}
			return u.duplicate(providerTxID, winner), nil
		}
		return nil, err
	}

	switch status {
	case model.PaymentEventSuccess:
		// First write wins: a replayed success never moves paid_at or the
		// recorded transaction id.
		if err := u.orders.MarkPaid(ctx, nil, order.ID, providerTxID, ev.CreatedAt); err != nil {
			return nil, err
		}
		metrics.AddPaymentRevenue(currency, amountMinor)
	case model.PaymentEventFailed:
		// A late failure must never downgrade an order a prior success
		// already finalized; the repo update skips paid orders.
		if err := u.orders.MarkFailed(ctx, nil, order.ID); err != nil {
			return nil, err
		}
	}

	metrics.IncPaymentEvent(string(status))
	u.log.Info().
		Str("order_id", order.ID).
		Str("provider_tx_id", providerTxID).
		Str("status", string(status)).
		Msg("payment event recorded")

	return &ReconcileResult{Applied: true, Reason: string(status), Event: ev}, nil
}

func (u *reconcileUC) duplicate(providerTxID string, existing *model.PaymentEvent) *ReconcileResult {
	reason := fmt.Sprintf("duplicate_%s", existing.Status)
	metrics.IncPaymentEvent(reason)
	u.log.Info().
		Str("provider_tx_id", providerTxID).
		Str("status", string(existing.Status)).
		Msg("duplicate payment callback")
	return &ReconcileResult{Applied: false, Reason: reason, Event: existing}
}
