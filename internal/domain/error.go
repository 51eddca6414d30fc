package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidTransition  = errors.New("lifecycle transition not allowed")
	ErrOwnershipMismatch  = errors.New("order is owned by another user")
	ErrOrderFinalized     = errors.New("order amount is frozen after payment")
	ErrPricingConfig      = errors.New("malformed pricing configuration")
	ErrSelfReferral       = errors.New("own promo code cannot be redeemed")
	ErrPromoAlreadyUsed   = errors.New("promo discount already redeemed")
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid database execution context")
)
