package repository

import "context"

// PromoIntent is the pre-order half of the promo ledger: a user arrived via
// a referral deep link (or asked to enter a code) before any order exists.
// Intents are short-lived and live in Redis, not Postgres.
type PromoIntent struct {
	PromoCode string `json:"promo_code"`
}

type PromoIntentRepository interface {
	Set(ctx context.Context, userID int64, intent *PromoIntent) error
	Get(ctx context.Context, userID int64) (*PromoIntent, error)
	Clear(ctx context.Context, userID int64) error
}
