package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"telegram-forecast-store/internal/domain"
	"telegram-forecast-store/internal/domain/model"
	"telegram-forecast-store/internal/domain/ports/repository"
	"telegram-forecast-store/internal/infra/metrics"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// codeAlphabet drops ambiguous characters (I, O, 0, 1) so codes survive
// being read aloud or retyped.
const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 8
)

// PromoUseCase is the promo/referral ledger: one code per referring user,
// one use per redeeming order. A use settles (applied) only once its order
// reaches paid; pricing consults the ledger only through the pending use.
type PromoUseCase interface {
	GetOrCreateCode(ctx context.Context, userID int64) (*model.PromoCode, error)

	// ReferralLink builds the deep link for a code; empty when no bot
	// username is configured.
	ReferralLink(code string) string

	FindCode(ctx context.Context, code string) (*model.PromoCode, error)

	// CodeByOwner looks up the user's existing code without creating one.
	CodeByOwner(ctx context.Context, ownerUserID int64) (*model.PromoCode, error)

	// BeginUse opens an awaiting_code use for the order: the user asked to
	// enter a code. One discount per user, ever.
	BeginUse(ctx context.Context, orderID string, userID int64) (*model.PromoUse, error)

	// ResolveUse validates the entered code against the order's use and
	// moves it to pending. Own codes are rejected.
	ResolveUse(ctx context.Context, orderID, code string) (*model.PromoUse, error)

	// PendingUse reports whether the order has a pending use with a code —
	// the applyPromo input for pricing.
	PendingUse(ctx context.Context, orderID string) (*model.PromoUse, error)

	// ApplyUse settles the use after its order reached paid and credits the
	// referrer. Idempotent: the settle and the credit happen atomically and
	// only for the first call.
	ApplyUse(ctx context.Context, orderID string) (bool, error)

	DiscardUse(ctx context.Context, orderID string) error
	HasApplied(ctx context.Context, userID int64) (bool, error)
}

var _ PromoUseCase = (*promoUC)(nil)

type promoUC struct {
	codes       repository.PromoCodeRepository
	uses        repository.PromoUseRepository
	orders      repository.OrderRepository
	tm          repository.TransactionManager
	botUsername string
	log         *zerolog.Logger
}

func NewPromoUseCase(
	codes repository.PromoCodeRepository,
	uses repository.PromoUseRepository,
	orders repository.OrderRepository,
	tm repository.TransactionManager,
	botUsername string,
	logger *zerolog.Logger,
) *promoUC {
	return &promoUC{codes: codes, uses: uses, orders: orders, tm: tm, botUsername: botUsername, log: logger}
}

func (p *promoUC) GetOrCreateCode(ctx context.Context, userID int64) (*model.PromoCode, error) {
	existing, err := p.codes.FindByOwner(ctx, nil, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	for attempt := 0; attempt < 10; attempt++ {
		code, err := generateCode()
		if err != nil {
			return nil, err
		}
		if _, err := p.codes.FindByCode(ctx, nil, code); err == nil {
			continue // collision, roll again
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		pc, err := model.NewPromoCode(code, userID)
		if err != nil {
			return nil, err
		}
		if err := p.codes.Save(ctx, nil, pc); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				continue
			}
			return nil, err
		}
		return pc, nil
	}
	return nil, fmt.Errorf("%w: could not generate a unique promo code", domain.ErrOperationFailed)
}

func (p *promoUC) ReferralLink(code string) string {
	if p.botUsername == "" {
		return ""
	}
	return fmt.Sprintf("https://t.me/%s?start=ref_%s", p.botUsername, code)
}

func (p *promoUC) FindCode(ctx context.Context, code string) (*model.PromoCode, error) {
	return p.codes.FindByCode(ctx, nil, code)
}

func (p *promoUC) CodeByOwner(ctx context.Context, ownerUserID int64) (*model.PromoCode, error) {
	return p.codes.FindByOwner(ctx, nil, ownerUserID)
}

func (p *promoUC) BeginUse(ctx context.Context, orderID string, userID int64) (*model.PromoUse, error) {
	applied, err := p.uses.HasAppliedForUser(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	if applied {
		return nil, domain.ErrPromoAlreadyUsed
	}

	// A new attempt supersedes any unsettled use left behind by an
	// abandoned order.
	for _, st := range []model.PromoUseStatus{model.PromoUseAwaitingCode, model.PromoUsePending} {
		stale, err := p.uses.FindByUserAndStatus(ctx, nil, userID, st)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if stale.OrderID != orderID {
			if err := p.uses.DeleteByOrder(ctx, nil, stale.OrderID); err != nil {
				return nil, err
			}
		}
	}

	use, err := model.NewPromoUse(orderID, userID, model.PromoUseAwaitingCode)
	if err != nil {
		return nil, err
	}
	if err := p.uses.Save(ctx, nil, use); err != nil {
		return nil, err
	}
	return use, nil
}

func (p *promoUC) ResolveUse(ctx context.Context, orderID, code string) (*model.PromoUse, error) {
	use, err := p.uses.FindByOrder(ctx, nil, orderID)
	if err != nil {
		return nil, err
	}
	promo, err := p.codes.FindByCode(ctx, nil, code)
	if err != nil {
		return nil, err
	}
	if promo.OwnerUserID == use.UserID {
		return nil, domain.ErrSelfReferral
	}
	applied, err := p.uses.HasAppliedForUser(ctx, nil, use.UserID)
	if err != nil {
		return nil, err
	}
	if applied {
		return nil, domain.ErrPromoAlreadyUsed
	}
	if err := p.uses.Resolve(ctx, nil, orderID, promo.Code, promo.OwnerUserID); err != nil {
		return nil, err
	}
	return p.uses.FindByOrder(ctx, nil, orderID)
}

func (p *promoUC) PendingUse(ctx context.Context, orderID string) (*model.PromoUse, error) {
	use, err := p.uses.FindByOrder(ctx, nil, orderID)
	if err != nil {
		return nil, err
	}
	if use.Status != model.PromoUsePending || use.PromoCode == nil {
		return nil, domain.ErrNotFound
	}
	return use, nil
}

func (p *promoUC) ApplyUse(ctx context.Context, orderID string) (bool, error) {
	use, err := p.uses.FindByOrder(ctx, nil, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil // nothing to settle
		}
		return false, err
	}
	if use.Status != model.PromoUsePending || use.PromoCode == nil {
		return false, nil
	}

	order, err := p.orders.FindByID(ctx, nil, orderID)
	if err != nil {
		return false, err
	}
	if order.Status != model.OrderStatusPaid {
		return false, nil
	}

	var settled bool
	err = p.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		changed, err := p.uses.MarkApplied(ctx, tx, orderID)
		if err != nil {
			return err
		}
		settled = changed
		if !changed {
			return nil // already applied by an earlier call
		}
		return p.codes.IncrementPaidReferrals(ctx, tx, *use.PromoCode)
	})
	if err != nil {
		return false, err
	}
	if settled {
		metrics.IncPromoApplied()
		p.log.Info().Str("order_id", orderID).Str("code", *use.PromoCode).Msg("referral applied")
	}
	return settled, nil
}

func (p *promoUC) DiscardUse(ctx context.Context, orderID string) error {
	return p.uses.DeleteByOrder(ctx, nil, orderID)
}

func (p *promoUC) HasApplied(ctx context.Context, userID int64) (bool, error) {
	return p.uses.HasAppliedForUser(ctx, nil, userID)
}

func generateCode() (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	buf := make([]byte, codeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
