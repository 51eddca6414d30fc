//go:build !integration

package application_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-forecast-store/internal/domain"
	"telegram-forecast-store/internal/domain/model"
	"telegram-forecast-store/internal/domain/ports/adapter"
	"telegram-forecast-store/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// ---- Mock Telegram bot ----

type sentInvoice struct {
	UserID  int64
	Invoice adapter.Invoice
}

type MockTelegramBot struct {
	mu        sync.Mutex
	Messages  []string
	Invoices  []sentInvoice
	Documents []string

	SendDocumentFunc func(ctx context.Context, telegramID int64, path string) error
}

var _ adapter.TelegramBotAdapter = (*MockTelegramBot)(nil)

func (m *MockTelegramBot) SendMessage(ctx context.Context, telegramID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, text)
	return nil
}

func (m *MockTelegramBot) SendInvoice(ctx context.Context, telegramID int64, inv adapter.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Invoices = append(m.Invoices, sentInvoice{UserID: telegramID, Invoice: inv})
	return nil
}

func (m *MockTelegramBot) SendDocument(ctx context.Context, telegramID int64, path string) error {
	if m.SendDocumentFunc != nil {
		return m.SendDocumentFunc(ctx, telegramID, path)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Documents = append(m.Documents, path)
	return nil
}

// ---- In-memory repositories ----

type memUserRepo struct {
	mu    sync.RWMutex
	store map[int64]*model.User
}

var _ repository.UserRepository = (*memUserRepo)(nil)

func newMemUserRepo() *memUserRepo { return &memUserRepo{store: make(map[int64]*model.User)} }

func (m *memUserRepo) FindByID(ctx context.Context, tx repository.Tx, userID int64) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.store[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUserRepo) Ensure(ctx context.Context, tx repository.Tx, userID int64) (*model.User, error) {
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

func (m *memUserRepo) UpdateState(ctx context.Context, tx repository.Tx, userID int64, state model.UserState, lastOrderID *string) (*model.User, error) {
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

func (m *memUserRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store), nil
}

type memOrderRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Order
}

var _ repository.OrderRepository = (*memOrderRepo)(nil)

func newMemOrderRepo() *memOrderRepo { return &memOrderRepo{store: make(map[string]*model.Order)} }

func (m *memOrderRepo) Save(ctx context.Context, tx repository.Tx, o *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.store[o.ID] = &cp
	return nil
}

func (m *memOrderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrderRepo) UpdateAmount(ctx context.Context, tx repository.Tx, id string, amountMinor int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.store[id]
	if !ok || !o.Repriceable() {
		return false, nil
	}
	o.AmountMinor = amountMinor
	return true, nil
}

func (m *memOrderRepo) MarkInvoiceSent(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.Status = model.OrderStatusInvoiceSent
	return nil
}

func (m *memOrderRepo) MarkPaid(ctx context.Context, tx repository.Tx, id string, providerTxID string, paidAt time.Time) error {
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

func (m *memOrderRepo) MarkFailed(ctx context.Context, tx repository.Tx, id string) error {
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

func (m *memOrderRepo) MarkDelivered(ctx context.Context, tx repository.Tx, id string) (bool, error) {
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

func (m *memOrderRepo) SalesTotals(ctx context.Context, tx repository.Tx) ([]repository.ProductSales, error) {
	return nil, nil
}

type memPaymentEventRepo struct {
	mu     sync.RWMutex
	byTxID map[string]*model.PaymentEvent
}

var _ repository.PaymentEventRepository = (*memPaymentEventRepo)(nil)

func newMemPaymentEventRepo() *memPaymentEventRepo {
	return &memPaymentEventRepo{byTxID: make(map[string]*model.PaymentEvent)}
}

func (m *memPaymentEventRepo) Insert(ctx context.Context, tx repository.Tx, ev *model.PaymentEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byTxID[ev.ProviderTxID]; exists {
		return domain.ErrAlreadyExists
	}
	cp := *ev
	m.byTxID[ev.ProviderTxID] = &cp
	return nil
}

func (m *memPaymentEventRepo) FindByProviderTxID(ctx context.Context, tx repository.Tx, providerTxID string) (*model.PaymentEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ev, ok := m.byTxID[providerTxID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *ev
	return &cp, nil
}

type memPromoCodeRepo struct {
	mu     sync.RWMutex
	byCode map[string]*model.PromoCode
}

var _ repository.PromoCodeRepository = (*memPromoCodeRepo)(nil)

func newMemPromoCodeRepo() *memPromoCodeRepo {
	return &memPromoCodeRepo{byCode: make(map[string]*model.PromoCode)}
}

func (m *memPromoCodeRepo) Save(ctx context.Context, tx repository.Tx, c *model.PromoCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byCode[c.Code]; exists {
		return domain.ErrAlreadyExists
	}
	cp := *c
	m.byCode[c.Code] = &cp
	return nil
}

func (m *memPromoCodeRepo) FindByOwner(ctx context.Context, tx repository.Tx, ownerUserID int64) (*model.PromoCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.byCode {
		if c.OwnerUserID == ownerUserID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memPromoCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.PromoCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.byCode[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memPromoCodeRepo) IncrementPaidReferrals(ctx context.Context, tx repository.Tx, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byCode[code]
	if !ok {
		return domain.ErrNotFound
	}
	c.PaidReferrals++
	return nil
}

type memPromoUseRepo struct {
	mu      sync.RWMutex
	byOrder map[string]*model.PromoUse
}

var _ repository.PromoUseRepository = (*memPromoUseRepo)(nil)

func newMemPromoUseRepo() *memPromoUseRepo {
	return &memPromoUseRepo{byOrder: make(map[string]*model.PromoUse)}
}

func (m *memPromoUseRepo) Save(ctx context.Context, tx repository.Tx, u *model.PromoUse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.byOrder[u.OrderID] = &cp
	return nil
}

func (m *memPromoUseRepo) FindByOrder(ctx context.Context, tx repository.Tx, orderID string) (*model.PromoUse, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byOrder[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memPromoUseRepo) FindByUserAndStatus(ctx context.Context, tx repository.Tx, userID int64, status model.PromoUseStatus) (*model.PromoUse, error) {
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

func (m *memPromoUseRepo) HasAppliedForUser(ctx context.Context, tx repository.Tx, userID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.byOrder {
		if u.UserID == userID && u.Status == model.PromoUseApplied {
			return true, nil
		}
	}
	return false, nil
}

func (m *memPromoUseRepo) Resolve(ctx context.Context, tx repository.Tx, orderID string, code string, referrerUserID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byOrder[orderID]
	if !ok {
		return domain.ErrNotFound
	}
	u.Status = model.PromoUsePending
	u.PromoCode = &code
	u.ReferrerUserID = &referrerUserID
	return nil
}

func (m *memPromoUseRepo) MarkApplied(ctx context.Context, tx repository.Tx, orderID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byOrder[orderID]
	if !ok || u.Status != model.PromoUsePending {
		return false, nil
	}
	u.Status = model.PromoUseApplied
	return true, nil
}

func (m *memPromoUseRepo) DeleteByOrder(ctx context.Context, tx repository.Tx, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byOrder, orderID)
	return nil
}

type memIntentRepo struct {
	mu    sync.RWMutex
	store map[int64]*repository.PromoIntent
}

var _ repository.PromoIntentRepository = (*memIntentRepo)(nil)

func newMemIntentRepo() *memIntentRepo {
	return &memIntentRepo{store: make(map[int64]*repository.PromoIntent)}
}

func (m *memIntentRepo) Set(ctx context.Context, userID int64, intent *repository.PromoIntent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *intent
	m.store[userID] = &cp
	return nil
}

func (m *memIntentRepo) Get(ctx context.Context, userID int64) (*repository.PromoIntent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	intent, ok := m.store[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *intent
	return &cp, nil
}

func (m *memIntentRepo) Clear(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, userID)
	return nil
}

type memTxManager struct{}

var _ repository.TransactionManager = (*memTxManager)(nil)

func (memTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, repository.NoTX)
}
