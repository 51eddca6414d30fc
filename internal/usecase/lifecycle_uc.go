package usecase

import (
	"context"
	"fmt"

	"telegram-forecast-store/internal/domain"
	"telegram-forecast-store/internal/domain/model"
	"telegram-forecast-store/internal/domain/ports/repository"
	"telegram-forecast-store/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// OrderRef tells a transition what to do with the user's last_order_id
// pointer: attach a new order, keep the current one, or clear it.
type OrderRef struct {
	set   bool
	clear bool
	id    string
}

func ToOrder(id string) OrderRef { return OrderRef{set: true, id: id} }
func KeepOrder() OrderRef        { return OrderRef{} }
func ClearOrder() OrderRef       { return OrderRef{clear: true} }

// LifecycleUseCase is the single authority on which action a user may take
// next. The pair (state, last_order_id) is written nowhere else.
type LifecycleUseCase interface {
	// State returns the user's lifecycle state, creating the user as idle on
	// first contact. An unrecognized persisted state is recovered by forcing
	// the user back to idle.
	State(ctx context.Context, userID int64) (model.UserState, error)
	Get(ctx context.Context, userID int64) (*model.User, error)

	SetOrderInitiated(ctx context.Context, userID int64, orderID string) (*model.User, error)
	SetPaymentPending(ctx context.Context, userID int64, orderID string) (*model.User, error)
	SetPaid(ctx context.Context, userID int64, orderID string) (*model.User, error)
	SetDelivered(ctx context.Context, userID int64, orderID string) (*model.User, error)
	SetReviewPending(ctx context.Context, userID int64, orderID string) (*model.User, error)
	SetReviewed(ctx context.Context, userID int64, ref OrderRef) (*model.User, error)

	// ForceIdle bypasses the transition table (always legal) and clears the
	// order pointer. It exists to recover from ambiguous or abandoned
	// sessions.
	ForceIdle(ctx context.Context, userID int64) (*model.User, error)
}

// allowedTransitions is the closed transition table. Anything absent here is
// a caller bug, surfaced as ErrInvalidTransition.
var allowedTransitions = map[model.UserState]map[model.UserState]struct{}{
	model.StateIdle:           targets(model.StateIdle, model.StateOrderInitiated),
	model.StateOrderInitiated: targets(model.StatePaymentPending, model.StateIdle),
	model.StatePaymentPending: targets(model.StatePaid, model.StateIdle, model.StatePaymentPending),
	model.StatePaid:           targets(model.StateDelivered, model.StatePaymentPending),
	model.StateDelivered:      targets(model.StateReviewPending),
	model.StateReviewPending:  targets(model.StateReviewed, model.StateIdle),
	model.StateReviewed:       targets(model.StateIdle, model.StateOrderInitiated),
}

func targets(states ...model.UserState) map[model.UserState]struct{} {
	m := make(map[model.UserState]struct{}, len(states))
	for _, s := range states {
		m[s] = struct{}{}
	}
	return m
}

var _ LifecycleUseCase = (*lifecycleUC)(nil)

type lifecycleUC struct {
	users  repository.UserRepository
	orders repository.OrderRepository
	log    *zerolog.Logger
}

func NewLifecycleUseCase(users repository.UserRepository, orders repository.OrderRepository, logger *zerolog.Logger) *lifecycleUC {
	return &lifecycleUC{users: users, orders: orders, log: logger}
}

func (l *lifecycleUC) Get(ctx context.Context, userID int64) (*model.User, error) {
	return l.users.Ensure(ctx, nil, userID)
}

func (l *lifecycleUC) State(ctx context.Context, userID int64) (model.UserState, error) {
	user, err := l.users.Ensure(ctx, nil, userID)
	if err != nil {
		return "", err
	}
	if user.State == model.StateUnknown {
		l.log.Warn().Int64("user_id", userID).Msg("unrecognized persisted state, resetting to idle")
		if _, err := l.ForceIdle(ctx, userID); err != nil {
			return "", err
		}
		return model.StateIdle, nil
	}
	return user.State, nil
}

func (l *lifecycleUC) SetOrderInitiated(ctx context.Context, userID int64, orderID string) (*model.User, error) {
	return l.transition(ctx, userID, model.StateOrderInitiated, ToOrder(orderID), false)
}

func (l *lifecycleUC) SetPaymentPending(ctx context.Context, userID int64, orderID string) (*model.User, error) {
	return l.transition(ctx, userID, model.StatePaymentPending, ToOrder(orderID), false)
}

func (l *lifecycleUC) SetPaid(ctx context.Context, userID int64, orderID string) (*model.User, error) {
	return l.transition(ctx, userID, model.StatePaid, ToOrder(orderID), false)
}

func (l *lifecycleUC) SetDelivered(ctx context.Context, userID int64, orderID string) (*model.User, error) {
	return l.transition(ctx, userID, model.StateDelivered, ToOrder(orderID), false)
}

func (l *lifecycleUC) SetReviewPending(ctx context.Context, userID int64, orderID string) (*model.User, error) {
	return l.transition(ctx, userID, model.StateReviewPending, ToOrder(orderID), false)
}

func (l *lifecycleUC) SetReviewed(ctx context.Context, userID int64, ref OrderRef) (*model.User, error) {
	return l.transition(ctx, userID, model.StateReviewed, ref, false)
}

func (l *lifecycleUC) ForceIdle(ctx context.Context, userID int64) (*model.User, error) {
	metrics.IncForcedReset()
	return l.transition(ctx, userID, model.StateIdle, ClearOrder(), true)
}

func (l *lifecycleUC) transition(ctx context.Context, userID int64, target model.UserState, ref OrderRef, force bool) (*model.User, error) {
	user, err := l.users.Ensure(ctx, nil, userID)
	if err != nil {
		return nil, err
	}

	// Idempotent re-entry (e.g. a retried webhook): same target, pointer
	// untouched — return the record unchanged, no write. Re-attaching the
	// order the user already carries counts as untouched.
	if target == user.State {
		if !ref.set && !ref.clear {
			return user, nil
		}
		if ref.set && user.LastOrderID != nil && *user.LastOrderID == ref.id {
			return user, nil
		}
	}

	if !force {
		if _, ok := allowedTransitions[user.State][target]; !ok {
			metrics.IncRejectedTransition(string(user.State), string(target))
			return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, user.State, target)
		}
	}

	nextOrderID := user.LastOrderID
	switch {
	case ref.clear:
		nextOrderID = nil
	case ref.set:
		// The pointer must reference an existing order owned by this user.
		order, err := l.orders.FindByID(ctx, nil, ref.id)
		if err != nil {
			return nil, err
		}
		if order.UserID != userID {
			return nil, domain.ErrOwnershipMismatch
		}
		nextOrderID = &ref.id
	}

	updated, err := l.users.UpdateState(ctx, nil, userID, target, nextOrderID)
	if err != nil {
		return nil, err
	}
	metrics.IncTransition(string(user.State), string(target))
	l.log.Info().
		Int64("user_id", userID).
		Str("from", string(user.State)).
		Str("to", string(target)).
		Msg("lifecycle transition")
	return updated, nil
}
