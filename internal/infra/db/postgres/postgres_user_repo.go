package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-forecast-store/internal/domain"
	"telegram-forecast-store/internal/domain/model"
	"telegram-forecast-store/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*userRepo)(nil)

type userRepo struct{ pool *pgxpool.Pool }

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

const userColumns = `user_id, state, last_order_id, created_at, updated_at`

func (r *userRepo) FindByID(ctx context.Context, tx repository.Tx, userID int64) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE user_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	return scanUser(row)
}

// Ensure inserts the user as idle when missing and returns the stored row.
// ON CONFLICT DO NOTHING keeps concurrent first contacts from clobbering an
// existing cursor.
func (r *userRepo) Ensure(ctx context.Context, tx repository.Tx, userID int64) (*model.User, error) {
	if userID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO users (user_id, state, created_at, updated_at)
VALUES ($1, 'idle', NOW(), NOW())
ON CONFLICT (user_id) DO NOTHING;`

	if _, err := execSQL(ctx, r.pool, tx, q, userID); err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	return r.FindByID(ctx, tx, userID)
}

func (r *userRepo) UpdateState(ctx context.Context, tx repository.Tx, userID int64, state model.UserState, lastOrderID *string) (*model.User, error) {
	const q = `
UPDATE users SET state=$2, last_order_id=$3, updated_at=NOW()
 WHERE user_id=$1
RETURNING ` + userColumns + `;`

	row, err := pickRow(ctx, r.pool, tx, q, userID, state, lastOrderID)
	if err != nil {
		return nil, err
	}
	return scanUser(row)
}

func (r *userRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM users;`)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func scanUser(row interface {
	Scan(dest ...interface{}) error
}) (*model.User, error) {
	u := &model.User{}
	var state string
	if err := row.Scan(&u.UserID, &state, &u.LastOrderID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, scanErr(err)
	}
	// Parse instead of casting: an unrecognized stored value must surface as
	// StateUnknown so the lifecycle service can recover it.
	u.State = model.ParseUserState(state)
	return u, nil
}
