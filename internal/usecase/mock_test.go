//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-forecast-store/internal/domain"
	"telegram-forecast-store/internal/domain/model"
	"telegram-forecast-store/internal/domain/ports/repository"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// =============================
// Repositories
// =============================

// ---- Mock UserRepository ----

type MockUserRepo struct {
	mu    sync.RWMutex
	store map[int64]*model.User

	EnsureFunc      func(ctx context.Context, tx repository.Tx, userID int64) (*model.User, error)
	UpdateStateFunc func(ctx context.Context, tx repository.Tx, userID int64, state model.UserState, lastOrderID *string) (*model.User, error)
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{store: make(map[int64]*model.User)}
}

// Seed drops a user row in directly, bypassing Ensure (e.g. to plant an
// unparseable persisted state).
func (m *MockUserRepo) Seed(u *model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.store[u.UserID] = &cp
}

func (m *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, userID int64) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.store[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MockUserRepo) Ensure(ctx context.Context, tx repository.Tx, userID int64) (*model.User, error) {
	if m.EnsureFunc != nil {
		return m.EnsureFunc(ctx, tx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.store[userID]; ok {
		cp := *u
		return &cp, nil
	}
	u := model.NewUser(userID)
	m.store[userID] = u
	cp := *u
	return &cp, nil
}

func (m *MockUserRepo) UpdateState(ctx context.Context, tx repository.Tx, userID int64, state model.UserState, lastOrderID *string) (*model.User, error) {
	if m.UpdateStateFunc != nil {
		return m.UpdateStateFunc(ctx, tx, userID, state, lastOrderID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	u.State = state
	u.LastOrderID = lastOrderID
	u.UpdatedAt = time.Now()
	cp := *u
	return &cp, nil
}

func (m *MockUserRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store), nil
}

// ---- Mock OrderRepository ----

type MockOrderRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Order

	SaveFunc func(ctx context.Context, tx repository.Tx, o *model.Order) error
}

var _ repository.OrderRepository = (*MockOrderRepo)(nil)

func NewMockOrderRepo() *MockOrderRepo {
	return &MockOrderRepo{store: make(map[string]*model.Order)}
}

func (m *MockOrderRepo) Save(ctx context.Context, tx repository.Tx, o *model.Order) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, o)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.store[o.ID] = &cp
	return nil
}

func (m *MockOrderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MockOrderRepo) UpdateAmount(ctx context.Context, tx repository.Tx, id string, amountMinor int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.store[id]
	if !ok || !o.Repriceable() {
		return false, nil
	}
	o.AmountMinor = amountMinor
	return true, nil
}

func (m *MockOrderRepo) MarkInvoiceSent(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.Status = model.OrderStatusInvoiceSent
	return nil
}

func (m *MockOrderRepo) MarkPaid(ctx context.Context, tx repository.Tx, id string, providerTxID string, paidAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.Status = model.OrderStatusPaid
	if o.PaidAt == nil {
		o.PaidAt = &paidAt
	}
	if o.ProviderTxID == nil {
		o.ProviderTxID = &providerTxID
	}
	return nil
}

func (m *MockOrderRepo) MarkFailed(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	if o.Status != model.OrderStatusPaid {
		o.Status = model.OrderStatusFailed
	}
	return nil
}

func (m *MockOrderRepo) MarkDelivered(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.store[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if o.DeliveredAt != nil {
		return false, nil
	}
	now := time.Now()
	o.DeliveredAt = &now
	return true, nil
}

func (m *MockOrderRepo) SalesTotals(ctx context.Context, tx repository.Tx) ([]repository.ProductSales, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	byProduct := make(map[string]*repository.ProductSales)
	for _, o := range m.store {
		if o.Status != model.OrderStatusPaid {
			continue
		}
		ps, ok := byProduct[o.ProductID]
		if !ok {
			ps = &repository.ProductSales{ProductID: o.ProductID}
			byProduct[o.ProductID] = ps
		}
		ps.PaidCount++
		ps.TotalAmount += o.AmountMinor
	}
	out := make([]repository.ProductSales, 0, len(byProduct))
	for _, ps := range byProduct {
		out = append(out, *ps)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PaidCount != out[j].PaidCount {
			return out[i].PaidCount > out[j].PaidCount
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out, nil
}

// ---- Mock PaymentEventRepository ----

type MockPaymentEventRepo struct {
	mu     sync.RWMutex
	byTxID map[string]*model.PaymentEvent

	InsertFunc func(ctx context.Context, tx repository.Tx, ev *model.PaymentEvent) error
}

var _ repository.PaymentEventRepository = (*MockPaymentEventRepo)(nil)

func NewMockPaymentEventRepo() *MockPaymentEventRepo {
	return &MockPaymentEventRepo{byTxID: make(map[string]*model.PaymentEvent)}
}

func (m *MockPaymentEventRepo) Insert(ctx context.Context, tx repository.Tx, ev *model.PaymentEvent) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, tx, ev)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byTxID[ev.ProviderTxID]; exists {
		return domain.ErrAlreadyExists
	}
	cp := *ev
	m.byTxID[ev.ProviderTxID] = &cp
	return nil
}

func (m *MockPaymentEventRepo) FindByProviderTxID(ctx context.Context, tx repository.Tx, providerTxID string) (*model.PaymentEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ev, ok := m.byTxID[providerTxID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *ev
	return &cp, nil
}

// ---- Mock PromoCodeRepository ----

type MockPromoCodeRepo struct {
	mu      sync.RWMutex
	byCode  map[string]*model.PromoCode
	byOwner map[int64]*model.PromoCode
}

var _ repository.PromoCodeRepository = (*MockPromoCodeRepo)(nil)

func NewMockPromoCodeRepo() *MockPromoCodeRepo {
	return &MockPromoCodeRepo{
		byCode:  make(map[string]*model.PromoCode),
		byOwner: make(map[int64]*model.PromoCode),
	}
}

func (m *MockPromoCodeRepo) Save(ctx context.Context, tx repository.Tx, c *model.PromoCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byCode[c.Code]; exists {
		return domain.ErrAlreadyExists
	}
	cp := *c
	m.byCode[c.Code] = &cp
	m.byOwner[c.OwnerUserID] = &cp
	return nil
}

func (m *MockPromoCodeRepo) FindByOwner(ctx context.Context, tx repository.Tx, ownerUserID int64) (*model.PromoCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.byOwner[ownerUserID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MockPromoCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.PromoCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.byCode[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MockPromoCodeRepo) IncrementPaidReferrals(ctx context.Context, tx repository.Tx, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byCode[code]
	if !ok {
		return domain.ErrNotFound
	}
	c.PaidReferrals++
	return nil
}

// ---- Mock PromoUseRepository ----

type MockPromoUseRepo struct {
	mu      sync.RWMutex
	byOrder map[string]*model.PromoUse
}

var _ repository.PromoUseRepository = (*MockPromoUseRepo)(nil)

func NewMockPromoUseRepo() *MockPromoUseRepo {
	return &MockPromoUseRepo{byOrder: make(map[string]*model.PromoUse)}
}

func (m *MockPromoUseRepo) Save(ctx context.Context, tx repository.Tx, u *model.PromoUse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.byOrder[u.OrderID] = &cp
	return nil
}

func (m *MockPromoUseRepo) FindByOrder(ctx context.Context, tx repository.Tx, orderID string) (*model.PromoUse, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byOrder[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MockPromoUseRepo) FindByUserAndStatus(ctx context.Context, tx repository.Tx, userID int64, status model.PromoUseStatus) (*model.PromoUse, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.byOrder {
		if u.UserID == userID && u.Status == status {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockPromoUseRepo) HasAppliedForUser(ctx context.Context, tx repository.Tx, userID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.byOrder {
		if u.UserID == userID && u.Status == model.PromoUseApplied {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockPromoUseRepo) Resolve(ctx context.Context, tx repository.Tx, orderID string, code string, referrerUserID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byOrder[orderID]
	if !ok {
		return domain.ErrNotFound
	}
	u.Status = model.PromoUsePending
	u.PromoCode = &code
	u.ReferrerUserID = &referrerUserID
	u.UpdatedAt = time.Now()
	return nil
}

func (m *MockPromoUseRepo) MarkApplied(ctx context.Context, tx repository.Tx, orderID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byOrder[orderID]
	if !ok || u.Status != model.PromoUsePending {
		return false, nil
	}
	u.Status = model.PromoUseApplied
	u.UpdatedAt = time.Now()
	return true, nil
}

func (m *MockPromoUseRepo) DeleteByOrder(ctx context.Context, tx repository.Tx, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byOrder, orderID)
	return nil
}

// ---- Mock TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}
