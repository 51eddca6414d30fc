package repository

import (
	"context"

	"telegram-forecast-store/internal/domain/model"
)

// -----------------------------
// Users
// -----------------------------

type UserRepository interface {
	FindByID(ctx context.Context, tx Tx, userID int64) (*model.User, error)

	// Ensure inserts the user with state idle if missing and returns the
	// stored row either way (insert-if-absent, never overwrites).
	Ensure(ctx context.Context, tx Tx, userID int64) (*model.User, error)

	// UpdateState persists the lifecycle cursor. This is the only write path
	// for (state, last_order_id); callers go through the lifecycle service.
	UpdateState(ctx context.Context, tx Tx, userID int64, state model.UserState, lastOrderID *string) (*model.User, error)

	CountUsers(ctx context.Context, tx Tx) (int, error)
}
