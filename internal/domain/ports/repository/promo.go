package repository

import (
	"context"

	"telegram-forecast-store/internal/domain/model"
)

// -----------------------------
// Promo codes and uses
// -----------------------------

type PromoCodeRepository interface {
	Save(ctx context.Context, tx Tx, c *model.PromoCode) error
	FindByOwner(ctx context.Context, tx Tx, ownerUserID int64) (*model.PromoCode, error)
	FindByCode(ctx context.Context, tx Tx, code string) (*model.PromoCode, error)
	IncrementPaidReferrals(ctx context.Context, tx Tx, code string) error
}

type PromoUseRepository interface {
	Save(ctx context.Context, tx Tx, u *model.PromoUse) error
	FindByOrder(ctx context.Context, tx Tx, orderID string) (*model.PromoUse, error)
	FindByUserAndStatus(ctx context.Context, tx Tx, userID int64, status model.PromoUseStatus) (*model.PromoUse, error)
	HasAppliedForUser(ctx context.Context, tx Tx, userID int64) (bool, error)

	// Resolve moves an awaiting_code use to pending and records the code and
	// referrer.
	Resolve(ctx context.Context, tx Tx, orderID string, code string, referrerUserID int64) error

	// MarkApplied flips a pending use to applied; the returned bool reports
	// whether a row changed (false on repeat, so applying is idempotent).
	MarkApplied(ctx context.Context, tx Tx, orderID string) (bool, error)

	DeleteByOrder(ctx context.Context, tx Tx, orderID string) error
}
