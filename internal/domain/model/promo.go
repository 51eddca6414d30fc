package model

import (
	"time"

	"telegram-forecast-store/internal/domain"

	"github.com/google/uuid"
)

// PromoCode is one referral code per referring user.
type PromoCode struct {
	Code          string
	OwnerUserID   int64
	PaidReferrals int // how many referred orders reached paid
	CreatedAt     time.Time
}

func NewPromoCode(code string, ownerUserID int64) (*PromoCode, error) {
	if code == "" || ownerUserID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &PromoCode{Code: code, OwnerUserID: ownerUserID, CreatedAt: time.Now()}, nil
}

type PromoUseStatus string

const (
	PromoUseAwaitingCode PromoUseStatus = "awaiting_code" // user opted in, no code entered yet
	PromoUsePending      PromoUseStatus = "pending"       // code validated against the order
	PromoUseApplied      PromoUseStatus = "applied"       // order reached paid, discount settled
)

// PromoUse is one discount intent tied to a specific order. It resolves to
// applied only once the associated order reaches paid.
type PromoUse struct {
	ID             string
	OrderID        string
	UserID         int64
	Status         PromoUseStatus
	PromoCode      *string
	ReferrerUserID *int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func NewPromoUse(orderID string, userID int64, status PromoUseStatus) (*PromoUse, error) {
	if orderID == "" || userID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &PromoUse{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		UserID:    userID,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
