package model

import (
	"time"
)

// UserState is the per-user lifecycle cursor: what the user may legally do
// next. Persisted as text; parse with ParseUserState so an unrecognized
// stored value degrades to StateUnknown instead of silently becoming a
// distinct state.
type UserState string

const (
	StateIdle           UserState = "idle"
	StateOrderInitiated UserState = "order_initiated"
	StatePaymentPending UserState = "payment_pending"
	StatePaid           UserState = "paid"
	StateDelivered      UserState = "delivered"
	StateReviewPending  UserState = "review_pending"
	StateReviewed       UserState = "reviewed"

	// StateUnknown is never written; it marks a stored value the current
	// binary does not recognize. The lifecycle service recovers by forcing
	// the user back to idle.
	StateUnknown UserState = "unknown"
)

var knownStates = map[UserState]struct{}{
	StateIdle:           {},
	StateOrderInitiated: {},
	StatePaymentPending: {},
	StatePaid:           {},
	StateDelivered:      {},
	StateReviewPending:  {},
	StateReviewed:       {},
}

func ParseUserState(s string) UserState {
	st := UserState(s)
	if _, ok := knownStates[st]; ok {
		return st
	}
	return StateUnknown
}

// User is one chat participant. The pair (State, LastOrderID) is the
// complete lifecycle cursor and is only ever written through the lifecycle
// service's transition path.
type User struct {
	UserID      int64 // Telegram user id, primary key
	State       UserState
	LastOrderID *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewUser(userID int64) *User {
	now := time.Now()
	return &User{
		UserID:    userID,
		State:     StateIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (u *User) IsZero() bool { return u == nil || u.UserID == 0 }
