package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-forecast-store/internal/domain"
	"telegram-forecast-store/internal/domain/model"
	"telegram-forecast-store/internal/domain/ports/repository"
)

var _ repository.PromoCodeRepository = (*promoCodeRepo)(nil)

type promoCodeRepo struct{ pool *pgxpool.Pool }

func NewPromoCodeRepo(pool *pgxpool.Pool) *promoCodeRepo {
	return &promoCodeRepo{pool: pool}
}

func (r *promoCodeRepo) Save(ctx context.Context, tx repository.Tx, c *model.PromoCode) error {
	const q = `
INSERT INTO promo_codes (code, owner_user_id, paid_referrals, created_at)
VALUES ($1,$2,$3,$4);`

	_, err := execSQL(ctx, r.pool, tx, q, c.Code, c.OwnerUserID, c.PaidReferrals, c.CreatedAt)
	if err != nil {
		switch {
		case uniqueViolation(err):
			return domain.ErrAlreadyExists
		case err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext:
			return err
		default:
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *promoCodeRepo) FindByOwner(ctx context.Context, tx repository.Tx, ownerUserID int64) (*model.PromoCode, error) {
	const q = `SELECT code, owner_user_id, paid_referrals, created_at FROM promo_codes WHERE owner_user_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, ownerUserID)
	if err != nil {
		return nil, err
	}
	return scanPromoCode(row)
}

func (r *promoCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.PromoCode, error) {
	const q = `SELECT code, owner_user_id, paid_referrals, created_at FROM promo_codes WHERE code=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return nil, err
	}
	return scanPromoCode(row)
}

func (r *promoCodeRepo) IncrementPaidReferrals(ctx context.Context, tx repository.Tx, code string) error {
	const q = `UPDATE promo_codes SET paid_referrals = paid_referrals + 1 WHERE code=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, code)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func scanPromoCode(row interface {
	Scan(dest ...interface{}) error
}) (*model.PromoCode, error) {
	c := &model.PromoCode{}
	if err := row.Scan(&c.Code, &c.OwnerUserID, &c.PaidReferrals, &c.CreatedAt); err != nil {
		return nil, scanErr(err)
	}
	return c, nil
}

var _ repository.PromoUseRepository = (*promoUseRepo)(nil)

type promoUseRepo struct{ pool *pgxpool.Pool }

func NewPromoUseRepo(pool *pgxpool.Pool) *promoUseRepo {
	return &promoUseRepo{pool: pool}
}

const promoUseColumns = `id, order_id, user_id, status, promo_code, referrer_user_id, created_at, updated_at`

func (r *promoUseRepo) Save(ctx context.Context, tx repository.Tx, u *model.PromoUse) error {
	const q = `
INSERT INTO promo_uses (id, order_id, user_id, status, promo_code, referrer_user_id, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (order_id) DO UPDATE SET
  status=$4, promo_code=$5, referrer_user_id=$6, updated_at=$8;`

	_, err := execSQL(ctx, r.pool, tx, q, u.ID, u.OrderID, u.UserID, u.Status, u.PromoCode, u.ReferrerUserID, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *promoUseRepo) FindByOrder(ctx context.Context, tx repository.Tx, orderID string) (*model.PromoUse, error) {
	const q = `SELECT ` + promoUseColumns + ` FROM promo_uses WHERE order_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, orderID)
	if err != nil {
		return nil, err
	}
	return scanPromoUse(row)
}

func (r *promoUseRepo) FindByUserAndStatus(ctx context.Context, tx repository.Tx, userID int64, status model.PromoUseStatus) (*model.PromoUse, error) {
	const q = `SELECT ` + promoUseColumns + ` FROM promo_uses WHERE user_id=$1 AND status=$2 ORDER BY created_at DESC LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID, status)
	if err != nil {
		return nil, err
	}
	return scanPromoUse(row)
}

func (r *promoUseRepo) HasAppliedForUser(ctx context.Context, tx repository.Tx, userID int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM promo_uses WHERE user_id=$1 AND status='applied');`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return false, err
	}
	var applied bool
	if err := row.Scan(&applied); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return applied, nil
}

func (r *promoUseRepo) Resolve(ctx context.Context, tx repository.Tx, orderID string, code string, referrerUserID int64) error {
	const q = `
UPDATE promo_uses SET status='pending', promo_code=$2, referrer_user_id=$3, updated_at=NOW()
 WHERE order_id=$1 AND status='awaiting_code';`

	cmd, err := execSQL(ctx, r.pool, tx, q, orderID, code, referrerUserID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkApplied flips pending to applied; RowsAffected makes the settle
// idempotent under replays.
func (r *promoUseRepo) MarkApplied(ctx context.Context, tx repository.Tx, orderID string) (bool, error) {
	const q = `UPDATE promo_uses SET status='applied', updated_at=NOW() WHERE order_id=$1 AND status='pending';`
	cmd, err := execSQL(ctx, r.pool, tx, q, orderID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *promoUseRepo) DeleteByOrder(ctx context.Context, tx repository.Tx, orderID string) error {
	const q = `DELETE FROM promo_uses WHERE order_id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, orderID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func scanPromoUse(row interface {
	Scan(dest ...interface{}) error
}) (*model.PromoUse, error) {
	u := &model.PromoUse{}
	if err := row.Scan(&u.ID, &u.OrderID, &u.UserID, &u.Status, &u.PromoCode, &u.ReferrerUserID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, scanErr(err)
	}
	return u, nil
}
