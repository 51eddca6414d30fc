package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-forecast-store/internal/domain"
	"telegram-forecast-store/internal/domain/model"
	"telegram-forecast-store/internal/domain/ports/repository"
)

var _ repository.PaymentEventRepository = (*paymentEventRepo)(nil)

type paymentEventRepo struct{ pool *pgxpool.Pool }

func NewPaymentEventRepo(pool *pgxpool.Pool) *paymentEventRepo {
	return &paymentEventRepo{pool: pool}
}

const paymentEventColumns = `id, order_id, provider_tx_id, status, amount_minor, currency, raw_payload, created_at, updated_at`

// Insert appends one event row. The UNIQUE index on provider_tx_id is the
// dedup guard: of two racing inserts exactly one lands, the other gets
// domain.ErrAlreadyExists.
func (r *paymentEventRepo) Insert(ctx context.Context, tx repository.Tx, ev *model.PaymentEvent) error {
	const q = `
INSERT INTO payment_events (id, order_id, provider_tx_id, status, amount_minor, currency, raw_payload, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9);`

	_, err := execSQL(ctx, r.pool, tx, q, ev.ID, ev.OrderID, ev.ProviderTxID, ev.Status, ev.AmountMinor, ev.Currency, ev.RawPayload, ev.CreatedAt, ev.UpdatedAt)
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

func (r *paymentEventRepo) FindByProviderTxID(ctx context.Context, tx repository.Tx, providerTxID string) (*model.PaymentEvent, error) {
	const q = `SELECT ` + paymentEventColumns + ` FROM payment_events WHERE provider_tx_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, providerTxID)
	if err != nil {
		return nil, err
	}

	ev := &model.PaymentEvent{}
	if err := row.Scan(&ev.ID, &ev.OrderID, &ev.ProviderTxID, &ev.Status, &ev.AmountMinor, &ev.Currency, &ev.RawPayload, &ev.CreatedAt, &ev.UpdatedAt); err != nil {
		return nil, scanErr(err)
	}
	return ev, nil
}
