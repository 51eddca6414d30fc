package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-forecast-store/internal/domain"
	"telegram-forecast-store/internal/domain/model"
	"telegram-forecast-store/internal/domain/ports/repository"
)

var _ repository.OrderRepository = (*orderRepo)(nil)

type orderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepo(pool *pgxpool.Pool) *orderRepo {
	return &orderRepo{pool: pool}
}

const orderColumns = `id, user_id, product_id, amount_minor, currency, status, provider_tx_id, created_at, paid_at, delivered_at`

func (r *orderRepo) Save(ctx context.Context, tx repository.Tx, o *model.Order) error {
	const q = `
INSERT INTO orders (id, user_id, product_id, amount_minor, currency, status, provider_tx_id, created_at, paid_at, delivered_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  product_id=$3, amount_minor=$4, currency=$5, status=$6;`

	_, err := execSQL(ctx, r.pool, tx, q, o.ID, o.UserID, o.ProductID, o.AmountMinor, o.Currency, o.Status, o.ProviderTxID, o.CreatedAt, o.PaidAt, o.DeliveredAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}

	o := &model.Order{}
	if err := row.Scan(&o.ID, &o.UserID, &o.ProductID, &o.AmountMinor, &o.Currency, &o.Status, &o.ProviderTxID, &o.CreatedAt, &o.PaidAt, &o.DeliveredAt); err != nil {
		return nil, scanErr(err)
	}
	return o, nil
}

// UpdateAmount touches only orders that are still repriceable; a paid or
// failed order keeps its amount.
func (r *orderRepo) UpdateAmount(ctx context.Context, tx repository.Tx, id string, amountMinor int64) (bool, error) {
	const q = `
UPDATE orders SET amount_minor=$2
 WHERE id=$1 AND status IN ('created','invoice_sent');`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, amountMinor)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *orderRepo) MarkInvoiceSent(ctx context.Context, tx repository.Tx, id string) error {
	const q = `UPDATE orders SET status='invoice_sent' WHERE id=$1 AND status='created';`
	_, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

// MarkPaid is first-write-wins on paid_at and provider_tx_id: COALESCE keeps
// the original values on replay.
func (r *orderRepo) MarkPaid(ctx context.Context, tx repository.Tx, id string, providerTxID string, paidAt time.Time) error {
	const q = `
UPDATE orders SET
  status='paid',
  provider_tx_id=COALESCE(provider_tx_id, $2),
  paid_at=COALESCE(paid_at, $3)
 WHERE id=$1;`

	_, err := execSQL(ctx, r.pool, tx, q, id, providerTxID, paidAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

// MarkFailed never downgrades a paid order.
func (r *orderRepo) MarkFailed(ctx context.Context, tx repository.Tx, id string) error {
	const q = `UPDATE orders SET status='failed' WHERE id=$1 AND status != 'paid';`
	_, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

// MarkDelivered sets delivered_at once; RowsAffected tells the caller
// whether this call won the write.
func (r *orderRepo) MarkDelivered(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `UPDATE orders SET delivered_at=NOW() WHERE id=$1 AND delivered_at IS NULL;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *orderRepo) SalesTotals(ctx context.Context, tx repository.Tx) ([]repository.ProductSales, error) {
	const q = `
SELECT product_id, COUNT(*), COALESCE(SUM(amount_minor),0)
  FROM orders
 WHERE status='paid'
 GROUP BY product_id
 ORDER BY COUNT(*) DESC, product_id ASC;`

	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []repository.ProductSales
	for rows.Next() {
		var ps repository.ProductSales
		if err := rows.Scan(&ps.ProductID, &ps.PaidCount, &ps.TotalAmount); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, ps)
	}
	return out, rows.Err()
}
