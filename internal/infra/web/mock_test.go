//go:build !integration

package web

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"telegram-forecast-store/internal/domain"
	"telegram-forecast-store/internal/domain/model"
	"telegram-forecast-store/internal/domain/ports/repository"
	"telegram-forecast-store/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

type mockStatsUC struct {
	users  int
	totals []repository.ProductSales
	err    error
}

var _ usecase.StatsUseCase = (*mockStatsUC)(nil)

func (m *mockStatsUC) SalesTotals(ctx context.Context) ([]repository.ProductSales, error) {
	return m.totals, m.err
}

func (m *mockStatsUC) CountUsers(ctx context.Context) (int, error) {
	return m.users, m.err
}

type mockLifecycleUC struct {
	user       *model.User
	forceCalls []int64
	err        error
}

var _ usecase.LifecycleUseCase = (*mockLifecycleUC)(nil)

func (m *mockLifecycleUC) State(ctx context.Context, userID int64) (model.UserState, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.user.State, nil
}

func (m *mockLifecycleUC) Get(ctx context.Context, userID int64) (*model.User, error) {
	return m.user, m.err
}

func (m *mockLifecycleUC) SetOrderInitiated(ctx context.Context, userID int64, orderID string) (*model.User, error) {
	return m.user, m.err
}

func (m *mockLifecycleUC) SetPaymentPending(ctx context.Context, userID int64, orderID string) (*model.User, error) {
	return m.user, m.err
}

func (m *mockLifecycleUC) SetPaid(ctx context.Context, userID int64, orderID string) (*model.User, error) {
	return m.user, m.err
}

func (m *mockLifecycleUC) SetDelivered(ctx context.Context, userID int64, orderID string) (*model.User, error) {
	return m.user, m.err
}

func (m *mockLifecycleUC) SetReviewPending(ctx context.Context, userID int64, orderID string) (*model.User, error) {
	return m.user, m.err
}

func (m *mockLifecycleUC) SetReviewed(ctx context.Context, userID int64, ref usecase.OrderRef) (*model.User, error) {
	return m.user, m.err
}

func (m *mockLifecycleUC) ForceIdle(ctx context.Context, userID int64) (*model.User, error) {
	m.forceCalls = append(m.forceCalls, userID)
	if m.err != nil {
		return nil, m.err
	}
	idle := *m.user
	idle.State = model.StateIdle
	idle.LastOrderID = nil
	return &idle, nil
}

type mockPromoUC struct {
	code *model.PromoCode
	err  error
}

var _ usecase.PromoUseCase = (*mockPromoUC)(nil)

func (m *mockPromoUC) GetOrCreateCode(ctx context.Context, userID int64) (*model.PromoCode, error) {
	return m.code, m.err
}

func (m *mockPromoUC) ReferralLink(code string) string {
	return "https://t.me/forecast_store_bot?start=ref_" + code
}

func (m *mockPromoUC) FindCode(ctx context.Context, code string) (*model.PromoCode, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.code == nil || m.code.Code != code {
		return nil, domain.ErrNotFound
	}
	return m.code, nil
}

func (m *mockPromoUC) CodeByOwner(ctx context.Context, ownerUserID int64) (*model.PromoCode, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.code == nil || m.code.OwnerUserID != ownerUserID {
		return nil, domain.ErrNotFound
	}
	return m.code, nil
}

func (m *mockPromoUC) BeginUse(ctx context.Context, orderID string, userID int64) (*model.PromoUse, error) {
	return nil, m.err
}

func (m *mockPromoUC) ResolveUse(ctx context.Context, orderID, code string) (*model.PromoUse, error) {
	return nil, m.err
}

func (m *mockPromoUC) PendingUse(ctx context.Context, orderID string) (*model.PromoUse, error) {
	return nil, domain.ErrNotFound
}

func (m *mockPromoUC) ApplyUse(ctx context.Context, orderID string) (bool, error) {
	return false, m.err
}

func (m *mockPromoUC) DiscardUse(ctx context.Context, orderID string) error { return m.err }

func (m *mockPromoUC) HasApplied(ctx context.Context, userID int64) (bool, error) {
	return false, m.err
}

type paidOrderCall struct {
	userID       int64
	productID    string
	amountMinor  int64
	currency     string
	providerTxID string
}

type mockOrderUC struct {
	order     *model.Order
	paidCalls []paidOrderCall
	err       error
}

var _ usecase.OrderUseCase = (*mockOrderUC)(nil)

func (m *mockOrderUC) Create(ctx context.Context, userID int64, productID string, amountMinor int64, currency string) (*model.Order, error) {
	return m.order, m.err
}

func (m *mockOrderUC) CreatePaid(ctx context.Context, userID int64, productID string, amountMinor int64, currency, providerTxID string) (*model.Order, error) {
	if providerTxID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if m.err != nil {
		return nil, m.err
	}
	m.paidCalls = append(m.paidCalls, paidOrderCall{userID, productID, amountMinor, currency, providerTxID})
	o, err := model.NewOrder(userID, productID, amountMinor, currency)
	if err != nil {
		return nil, err
	}
	o.Status = model.OrderStatusPaid
	return o, nil
}

func (m *mockOrderUC) Get(ctx context.Context, orderID string) (*model.Order, error) {
	return m.order, m.err
}

func (m *mockOrderUC) GetOwned(ctx context.Context, userID int64, orderID string) (*model.Order, error) {
	return m.order, m.err
}

func (m *mockOrderUC) Requote(ctx context.Context, orderID string, amountMinor int64) error {
	return m.err
}

func (m *mockOrderUC) MarkInvoiceSent(ctx context.Context, orderID string) error { return m.err }

func (m *mockOrderUC) MarkDelivered(ctx context.Context, orderID string) (bool, error) {
	return true, m.err
}
